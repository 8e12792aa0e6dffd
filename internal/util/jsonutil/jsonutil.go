package jsonutil

import (
	"bytes"
	"encoding/json"
)

// MarshalNoEscape encodes v into JSON without escaping <, >, & into <, etc.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalNoEscapeIndent encodes v with indentation but without HTML escaping.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	raw, err := MarshalNoEscape(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, prefix, indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
