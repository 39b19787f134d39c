package model

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Resource is one content-platform entity as exported by a backup: a JSON
// object carrying at least "id" and "uuid" plus type-specific payload fields.
//
// Resource values are immutable. With and Without return modified copies and
// never touch the receiver, so a Resource can be handed to any number of
// preprocessors without defensive copying. Nested objects and arrays are
// shared between copies and must be treated as read-only.
type Resource struct {
	fields map[string]any
}

// NewResource builds a Resource from a decoded JSON object. The top-level map
// is copied; later changes to fields do not affect the Resource.
func NewResource(fields map[string]any) Resource {
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Resource{fields: cp}
}

// ParseResource decodes a single JSON object into a Resource. Numbers are kept
// as json.Number so large identifiers survive without float rounding.
func ParseResource(data []byte) (Resource, error) {
	var r Resource
	if err := r.UnmarshalJSON(data); err != nil {
		return Resource{}, err
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Resource) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("decoding resource: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("decoding resource: expected a JSON object, got null")
	}
	r.fields = fields
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Resource) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.fields)
}

// ID returns the numeric identity, or 0 when absent or not an integer.
func (r Resource) ID() int64 {
	id, _ := r.Int64("id")
	return id
}

// UUID returns the global identity, or "" when absent.
func (r Resource) UUID() string {
	uuid, _ := r.String("uuid")
	return uuid
}

// Get returns the raw value of field and whether the field is present.
func (r Resource) Get(field string) (any, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Has reports whether field is present, even when its value is null.
func (r Resource) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Truthy reports whether field is present and holds a value other than
// null, false, zero or the empty string.
func (r Resource) Truthy(field string) bool {
	v, ok := r.fields[field]
	return ok && IsTruthy(v)
}

// Int64 returns field as an integer. It accepts any JSON number that holds
// an integral value and numeric strings.
func (r Resource) Int64(field string) (int64, bool) {
	v, ok := r.fields[field]
	if !ok {
		return 0, false
	}
	return ToInt64(v)
}

// String returns field when it holds a string.
func (r Resource) String(field string) (string, bool) {
	v, ok := r.fields[field].(string)
	return v, ok
}

// Key returns a canonical string form of a truthy scalar field, suitable for
// use as a map key. Integral numbers are formatted in base 10 so that 7,
// 7.0 and "7" all produce the same key.
func (r Resource) Key(field string) (string, bool) {
	v, ok := r.fields[field]
	if !ok || !IsTruthy(v) {
		return "", false
	}
	if n, ok := ToInt64(v); ok {
		return strconv.FormatInt(n, 10), true
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// With returns a copy of r with field set to value.
func (r Resource) With(field string, value any) Resource {
	cp := make(map[string]any, len(r.fields)+1)
	for k, v := range r.fields {
		cp[k] = v
	}
	cp[field] = value
	return Resource{fields: cp}
}

// Without returns a copy of r with the given fields removed.
func (r Resource) Without(fields ...string) Resource {
	drop := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		drop[f] = struct{}{}
	}
	cp := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		if _, ok := drop[k]; ok {
			continue
		}
		cp[k] = v
	}
	return Resource{fields: cp}
}

// Fields returns a shallow copy of the resource's top-level fields.
func (r Resource) Fields() map[string]any {
	cp := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		cp[k] = v
	}
	return cp
}

// Label returns a short human-readable name for log and error output.
func (r Resource) Label() string {
	for _, f := range []string{"full_slug", "name", "slug", "short_filename", "filename", "friendly_name"} {
		if s, ok := r.String(f); ok && s != "" {
			return s
		}
	}
	if uuid := r.UUID(); uuid != "" {
		return uuid
	}
	return strconv.FormatInt(r.ID(), 10)
}

// IsTruthy mirrors JSON truthiness: null, false, 0 and "" are falsy.
func IsTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}

// ToInt64 converts JSON-decoded numeric values to int64. Non-integral
// numbers and non-numeric strings are rejected.
func ToInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(x)
	case float32:
		return floatToInt64(float64(x))
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
