package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"
)

// JSONObject is a decoded JSON object whose fields are parsed on demand
type JSONObject map[string]json.RawMessage

// CustomParser runs after built-in parsing succeeded and may replace the parsed value
type CustomParser[T any] func(obj JSONObject, parsed T) (T, error)

// CustomSerializer runs after built-in serialization and may replace or augment the JSON object
type CustomSerializer[T any] func(value T, obj *JSONWriter) *JSONWriter

// DecodeJSONObject decodes data that must hold a single JSON object
func DecodeJSONObject(data []byte) (JSONObject, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, NewParseError("", "data cannot be empty")
	}
	if trimmed[0] != '{' {
		return nil, NewParseError("", "expected a JSON object")
	}

	var obj JSONObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, &ParseError{Reason: err.Error(), Err: err}
	}
	return obj, nil
}

// Has reports whether the field is present and not null
func (o JSONObject) Has(field string) bool {
	raw, ok := o[field]
	return ok && !isNull(raw)
}

// Keys returns the field names in sorted order
func (o JSONObject) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Mandatory parses a field that must be present
func Mandatory[T any](o JSONObject, field string, parse func(json.RawMessage) (T, error)) (T, error) {
	var zero T

	raw, ok := o[field]
	if !ok || isNull(raw) {
		return zero, &ParseError{Field: field, Reason: ErrMissingField.Error(), Err: ErrMissingField}
	}

	v, err := parse(raw)
	if err != nil {
		return zero, WrapParseError(field, err)
	}
	return v, nil
}

// OptionalField parses a field that may be absent; an absent field yields an unset Optional
func OptionalField[T any](o JSONObject, field string, parse func(json.RawMessage) (T, error)) (Optional[T], error) {
	raw, ok := o[field]
	if !ok || isNull(raw) {
		return None[T](), nil
	}

	v, err := parse(raw)
	if err != nil {
		return None[T](), WrapParseError(field, err)
	}
	return Some(v), nil
}

// ApplyCustomParser runs the first non-nil hook over a parsed value
func ApplyCustomParser[T any](obj JSONObject, parsed T, hooks []CustomParser[T]) (T, error) {
	for _, hook := range hooks {
		if hook != nil {
			return hook(obj, parsed)
		}
	}
	return parsed, nil
}

// ApplyCustomSerializer runs the first non-nil hook over a serialized value
func ApplyCustomSerializer[T any](value T, obj *JSONWriter, hooks []CustomSerializer[T]) *JSONWriter {
	for _, hook := range hooks {
		if hook != nil {
			if replaced := hook(value, obj); replaced != nil {
				return replaced
			}
			return obj
		}
	}
	return obj
}

// ParseString parses a JSON string
func ParseString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected a string")
	}
	return s, nil
}

// BoundedString returns a parser accepting strings of at most max characters
func BoundedString(max int) func(json.RawMessage) (string, error) {
	return func(raw json.RawMessage) (string, error) {
		s, err := ParseString(raw)
		if err != nil {
			return "", err
		}
		if n := utf8.RuneCountInString(s); n > max {
			return "", fmt.Errorf("string length %d exceeds maximum %d", n, max)
		}
		return s, nil
	}
}

// NonEmptyString parses a string that must not be empty
func NonEmptyString(raw json.RawMessage) (string, error) {
	s, err := ParseString(raw)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("value cannot be empty")
	}
	return s, nil
}

// ParseInt parses a JSON integer
func ParseInt(raw json.RawMessage) (int, error) {
	var n json.Number
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '"' {
		return 0, fmt.Errorf("expected an integer")
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("expected an integer")
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, fmt.Errorf("expected an integer, got %s", n.String())
	}
	return i, nil
}

// ParseBool parses a JSON boolean
func ParseBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, fmt.Errorf("expected a boolean")
	}
	return b, nil
}

// ParseTime parses an RFC 3339 timestamp
func ParseTime(raw json.RawMessage) (time.Time, error) {
	s, err := ParseString(raw)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid RFC 3339 timestamp %q", s)
	}
	return t.UTC(), nil
}

// FormatTime renders a timestamp the way it is sent on the wire
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseRaw returns a compacted copy of any JSON value
func ParseRaw(raw json.RawMessage) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// ParseObject parses a nested JSON object
func ParseObject(raw json.RawMessage) (JSONObject, error) {
	return DecodeJSONObject(raw)
}

// ParseArray returns a parser for a JSON array whose items are parsed by item
func ParseArray[T any](item func(json.RawMessage) (T, error)) func(json.RawMessage) ([]T, error) {
	return func(raw json.RawMessage) ([]T, error) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("expected an array")
		}

		out := make([]T, 0, len(items))
		for i, it := range items {
			v, err := item(it)
			if err != nil {
				return nil, WrapParseError(fmt.Sprintf("[%d]", i), err)
			}
			out = append(out, v)
		}
		return out, nil
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// JSONWriter builds a JSON object whose keys keep their insertion order
type JSONWriter struct {
	keys   []string
	values map[string]json.RawMessage
	err    error
}

// NewJSONWriter creates an empty writer
func NewJSONWriter() *JSONWriter {
	return &JSONWriter{values: make(map[string]json.RawMessage)}
}

// Set marshals v and stores it under key
func (w *JSONWriter) Set(key string, v any) *JSONWriter {
	data, err := json.Marshal(v)
	if err != nil {
		if w.err == nil {
			w.err = fmt.Errorf("failed to marshal field '%s': %w", key, err)
		}
		return w
	}
	return w.SetRaw(key, data)
}

// SetRaw stores pre-encoded JSON under key
func (w *JSONWriter) SetRaw(key string, raw json.RawMessage) *JSONWriter {
	if _, exists := w.values[key]; !exists {
		w.keys = append(w.keys, key)
	}
	w.values[key] = raw
	return w
}

// Prepend stores v under key as the first field of the object
func (w *JSONWriter) Prepend(key string, v any) *JSONWriter {
	w.Delete(key)
	w.Set(key, v)
	if n := len(w.keys); n > 1 {
		copy(w.keys[1:], w.keys[:n-1])
		w.keys[0] = key
	}
	return w
}

// SetOptional stores the value only when it is set
func SetOptional[T any](w *JSONWriter, key string, o Optional[T]) *JSONWriter {
	if v, ok := o.Get(); ok {
		w.Set(key, v)
	}
	return w
}

// Delete removes a key
func (w *JSONWriter) Delete(key string) *JSONWriter {
	if _, exists := w.values[key]; !exists {
		return w
	}
	delete(w.values, key)
	for i, k := range w.keys {
		if k == key {
			w.keys = append(w.keys[:i], w.keys[i+1:]...)
			break
		}
	}
	return w
}

// Has reports whether the key is present
func (w *JSONWriter) Has(key string) bool {
	_, ok := w.values[key]
	return ok
}

// Get returns the encoded value of a key
func (w *JSONWriter) Get(key string) (json.RawMessage, bool) {
	v, ok := w.values[key]
	return v, ok
}

// Keys returns the keys in output order
func (w *JSONWriter) Keys() []string {
	out := make([]string, len(w.keys))
	copy(out, w.keys)
	return out
}

// Len returns the number of keys
func (w *JSONWriter) Len() int {
	return len(w.keys)
}

// MarshalJSON implements json.Marshaler
func (w *JSONWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range w.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(w.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Bytes returns the encoded object
func (w *JSONWriter) Bytes() ([]byte, error) {
	return w.MarshalJSON()
}
