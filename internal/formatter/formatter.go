package formatter

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mcncl/jsonfrag/internal/errors"
	"github.com/mcncl/jsonfrag/internal/models"
)

// Formatter renders resolved JSON values as text. Ordered objects serialize
// in insertion order via the model's MarshalJSON.
type Formatter struct {
	indent  int
	compact bool
}

// NewFormatter creates a Formatter with the default two-space indent.
func NewFormatter() *Formatter {
	return &Formatter{indent: 2}
}

// NewFormatterWithOptions creates a Formatter with an explicit indent width.
// Compact output ignores the indent.
func NewFormatterWithOptions(indent int, compact bool) *Formatter {
	return &Formatter{indent: indent, compact: compact}
}

// Format renders value as JSON text with a trailing newline. HTML escaping
// is disabled: the output is JSON for humans and files, not for embedding
// in HTML.
func (f *Formatter) Format(value models.JSONValue) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if !f.compact && f.indent > 0 {
		encoder.SetIndent("", strings.Repeat(" ", f.indent))
	}
	if err := encoder.Encode(value); err != nil {
		return "", errors.NewOutputError("failed to encode resolved value as JSON", err)
	}
	// Encode appends exactly one newline.
	return buf.String(), nil
}
