package models

import (
	"bytes"
	"encoding/json"
)

// JSONValue is a generic type to represent any JSON value.
// Concrete values are string, bool, nil, json.Number, *JSONObject or JSONArray.
type JSONValue interface{}

// JSONArray represents a JSON array, which is a slice of JSONValues.
type JSONArray []JSONValue

// FragmentMap maps fragment names to their raw JSON values. It is owned by
// the caller and is never mutated by the resolver.
type FragmentMap map[string]JSONValue

// JSONObject represents a JSON object that remembers the order in which its
// keys were first inserted. encoding/json maps lose ordering, which matters
// here: object entries are evaluated in document order, and output should
// round-trip in the same order it came in.
type JSONObject struct {
	keys   []string
	values map[string]JSONValue
}

// NewJSONObject creates an empty ordered object.
func NewJSONObject() *JSONObject {
	return &JSONObject{
		values: make(map[string]JSONValue),
	}
}

// Set inserts or replaces the value for key. A replaced key keeps its
// original position (last-write-wins for the value, first-write for order).
func (o *JSONObject) Set(key string, value JSONValue) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value for key and whether the key is present.
func (o *JSONObject) Get(key string) (JSONValue, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *JSONObject) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Delete removes key if present.
func (o *JSONObject) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not modify it.
func (o *JSONObject) Keys() []string {
	return o.keys
}

// Len returns the number of entries.
func (o *JSONObject) Len() int {
	return len(o.keys)
}

// MarshalJSON emits the object with keys in insertion order. HTML escaping
// is off: values round-trip as written, and an enclosing encoder cannot
// unescape what a nested MarshalJSON already escaped.
func (o *JSONObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := marshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valueJSON, err := marshalNoEscape(o.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
