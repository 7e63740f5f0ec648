package vapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text is a string that accepts any JSON scalar.
// Numbers and booleans keep their literal form; objects, arrays and null decode to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*t = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*t = ""
			return nil
		}
		*t = Text(s)
	case '{', '[', 'n':
		*t = ""
	default:
		*t = Text(b)
	}
	return nil
}

// String returns the trimmed value.
func (t Text) String() string { return strings.TrimSpace(string(t)) }

// Args holds structured key/value data emitted by the voice model.
// It accepts either a JSON object or a string containing a JSON object
// (function_call.arguments is sent as a string). Anything else is empty.
type Args map[string]any

func (a *Args) UnmarshalJSON(b []byte) error {
	*a = parseArgs(b)
	return nil
}

func parseArgs(b []byte) Args {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		return parseArgs([]byte(s))
	}
	if b[0] != '{' {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return Args(m)
}

// Lookup walks a key path through nested objects and returns a non-empty scalar as text.
func (a Args) Lookup(path ...string) (string, bool) {
	if len(path) == 0 || a == nil {
		return "", false
	}
	v, ok := a[path[0]]
	if !ok {
		return "", false
	}
	if len(path) > 1 {
		m, ok := v.(map[string]any)
		if !ok {
			return "", false
		}
		return Args(m).Lookup(path[1:]...)
	}
	return scalarText(v)
}

func scalarText(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case string:
		s = strings.TrimSpace(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	default:
		return "", false
	}
	return s, s != ""
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}
