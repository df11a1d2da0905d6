package telemetry

import (
	"encoding/json"
	"strconv"
)

// FieldState describes the outcome of a typed payload lookup.
type FieldState int

const (
	// FieldAbsent means the key is missing or explicitly null.
	FieldAbsent FieldState = iota
	// FieldWrongType means the key exists but holds a different type.
	FieldWrongType
	// FieldPresent means the key exists with the requested type.
	FieldPresent
)

func (s FieldState) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldWrongType:
		return "wrong_type"
	default:
		return "absent"
	}
}

// Payload is the schema-free body of a telemetry record. It is treated as
// read-only once an Event is constructed; every accessor tolerates missing keys
// and type mismatches.
type Payload map[string]any

// Value returns the raw value stored at key.
func (p Payload) Value(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// StringField returns the string at key and the lookup outcome.
func (p Payload) StringField(key string) (string, FieldState) {
	v, ok := p.Value(key)
	if !ok {
		return "", FieldAbsent
	}
	s, ok := v.(string)
	if !ok {
		return "", FieldWrongType
	}
	return s, FieldPresent
}

// MapField returns the nested object at key and the lookup outcome.
func (p Payload) MapField(key string) (Payload, FieldState) {
	v, ok := p.Value(key)
	if !ok {
		return nil, FieldAbsent
	}
	switch m := v.(type) {
	case map[string]any:
		return Payload(m), FieldPresent
	case Payload:
		return m, FieldPresent
	default:
		return nil, FieldWrongType
	}
}

// String returns the string at key if present with the string type.
func (p Payload) String(key string) (string, bool) {
	s, state := p.StringField(key)
	return s, state == FieldPresent
}

// Map returns the nested object at key if present with the object type.
func (p Payload) Map(key string) (Payload, bool) {
	m, state := p.MapField(key)
	return m, state == FieldPresent
}

// Text renders a scalar value at key as text so that `"4625"` and `4625`
// compare equal. Objects and arrays are not scalars and report false.
func (p Payload) Text(key string) (string, bool) {
	v, ok := p.Value(key)
	if !ok {
		return "", false
	}
	return scalarText(v)
}

// Truthy reports whether key holds a non-empty, non-zero value.
func (p Payload) Truthy(key string) bool {
	v, ok := p.Value(key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
