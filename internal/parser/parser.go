package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	stderrors "errors"

	"github.com/tidwall/jsonc"

	"github.com/mcncl/jsonfrag/internal/errors"
	"github.com/mcncl/jsonfrag/internal/models"
)

// Parse decodes a single JSON value from the reader into a models.JSONValue.
// Objects are decoded into ordered models.JSONObject values (key order as it
// appears in the document) and numbers into json.Number.
func Parse(reader io.Reader) (models.JSONValue, error) {
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	value, err := decodeValue(decoder)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		var syntaxError *json.SyntaxError
		if stderrors.As(err, &syntaxError) {
			return nil, errors.NewParsingError(
				fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
				errors.ErrInvalidJSON,
			)
		}
		return nil, errors.NewParsingError("failed to decode JSON", err)
	}

	// Anything after the first value means the document is not a single
	// JSON value.
	if decoder.More() {
		return nil, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	}

	return value, nil
}

// decodeValue consumes one complete JSON value from the decoder.
func decodeValue(decoder *json.Decoder) (models.JSONValue, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	switch t := token.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(decoder)
		case '[':
			return decodeArray(decoder)
		default:
			// ']' or '}' here would be a decoder bug; Token validates nesting.
			return nil, fmt.Errorf("unexpected delimiter %q", t.String())
		}
	default:
		// string, bool, json.Number or nil.
		return t, nil
	}
}

// decodeObject consumes object members up to and including the closing brace.
// Duplicate keys follow last-write-wins, keeping the first key's position.
func decodeObject(decoder *json.Decoder) (*models.JSONObject, error) {
	object := models.NewJSONObject()
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyToken.(string)
		if !ok {
			return nil, fmt.Errorf("object key is not a string: %v", keyToken)
		}
		value, err := decodeValue(decoder)
		if err != nil {
			return nil, err
		}
		object.Set(key, value)
	}
	// Consume the closing '}'.
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return object, nil
}

// decodeArray consumes array elements up to and including the closing bracket.
func decodeArray(decoder *json.Decoder) (models.JSONArray, error) {
	array := models.JSONArray{}
	for decoder.More() {
		value, err := decodeValue(decoder)
		if err != nil {
			return nil, err
		}
		array = append(array, value)
	}
	// Consume the closing ']'.
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return array, nil
}

// ParseString parses a JSON value from a string. The input may contain
// JSONC-style comments and trailing commas; they are stripped before
// decoding (plain JSON passes through untouched).
func ParseString(jsonString string) (models.JSONValue, error) {
	if strings.TrimSpace(jsonString) == "" {
		return nil, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	cleaned := jsonc.ToJSON([]byte(jsonString))
	return Parse(strings.NewReader(string(cleaned)))
}

// ParseFile parses a JSON value from a file path. Files with a .jsonc
// extension (and any other input; jsonc stripping is harmless on plain JSON)
// may contain comments and trailing commas.
func ParseFile(filePath string) (models.JSONValue, error) {
	data, err := readInputFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseString(string(data))
}

// FragmentDocument is a parsed top-level fragments object: the fragment map
// plus the names in document order, for deterministic iteration.
type FragmentDocument struct {
	Fragments models.FragmentMap
	Names     []string
}

// ParseFragments parses a fragments document: a single JSON object whose
// entries are fragment name -> raw value.
func ParseFragments(reader io.Reader) (*FragmentDocument, error) {
	value, err := Parse(reader)
	if err != nil {
		return nil, err
	}
	return fragmentsFromValue(value)
}

// ParseFragmentsString parses a fragments document from a string,
// tolerating JSONC comments.
func ParseFragmentsString(jsonString string) (*FragmentDocument, error) {
	value, err := ParseString(jsonString)
	if err != nil {
		return nil, err
	}
	return fragmentsFromValue(value)
}

// ParseFragmentsFile parses a fragments document from a file path.
func ParseFragmentsFile(filePath string) (*FragmentDocument, error) {
	value, err := ParseFile(filePath)
	if err != nil {
		return nil, err
	}
	return fragmentsFromValue(value)
}

func fragmentsFromValue(value models.JSONValue) (*FragmentDocument, error) {
	object, ok := value.(*models.JSONObject)
	if !ok {
		return nil, errors.NewParsingError(
			fmt.Sprintf("fragments document must be a JSON object, got %s", describeValue(value)),
			errors.ErrNotAnObject,
		)
	}

	doc := &FragmentDocument{
		Fragments: make(models.FragmentMap, object.Len()),
		Names:     make([]string, 0, object.Len()),
	}
	for _, name := range object.Keys() {
		fragmentValue, _ := object.Get(name)
		doc.Fragments[name] = fragmentValue
		doc.Names = append(doc.Names, name)
	}
	return doc, nil
}

func describeValue(value models.JSONValue) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case json.Number:
		return "a number"
	case models.JSONArray:
		return "an array"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func readInputFile(filePath string) ([]byte, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return nil, errors.NewInputError(
			fmt.Sprintf("failed to read file '%s'", filePath),
			err,
		)
	}
	if len(data) == 0 {
		return nil, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}
	return data, nil
}
