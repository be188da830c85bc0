package schema

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Record is a candidate or validated entity in its untyped form.
// Values are canonical after validation (see coerce). Records are never
// mutated in place by the engine; With and Without return modified copies.
type Record map[string]interface{}

// Get resolves a dotted path. Explicit nulls count as absent.
func (r Record) Get(path string) (interface{}, bool) {
	var cur interface{} = r
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Has reports whether path resolves to a non-null value.
func (r Record) Has(path string) bool {
	_, ok := r.Get(path)
	return ok
}

// HasAll reports whether every path resolves.
func (r Record) HasAll(paths ...string) bool {
	for _, p := range paths {
		if !r.Has(p) {
			return false
		}
	}
	return true
}

// String returns the value at path as a string, or "" when absent.
func (r Record) String(path string) string {
	v, ok := r.Get(path)
	if !ok {
		return ""
	}
	return cast.ToString(v)
}

// Float returns the numeric value at path. Decimals are converted.
func (r Record) Float(path string) (float64, bool) {
	v, ok := r.Get(path)
	if !ok {
		return 0, false
	}
	if d, isDec := v.(decimal.Decimal); isDec {
		return d.InexactFloat64(), true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int returns the integer value at path.
func (r Record) Int(path string) (int64, bool) {
	v, ok := r.Get(path)
	if !ok {
		return 0, false
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Decimal returns the exact numeric value at path.
func (r Record) Decimal(path string) (decimal.Decimal, bool) {
	v, ok := r.Get(path)
	if !ok {
		return decimal.Zero, false
	}
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Bool returns the boolean at path, false when absent.
func (r Record) Bool(path string) bool {
	v, ok := r.Get(path)
	if !ok {
		return false
	}
	return cast.ToBool(v)
}

// Time returns the timestamp at path.
func (r Record) Time(path string) (time.Time, bool) {
	v, ok := r.Get(path)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

// List returns the list at path, nil when absent.
func (r Record) List(path string) []interface{} {
	v, ok := r.Get(path)
	if !ok {
		return nil
	}
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil
	}
	return items
}

// Map returns the map at path, nil when absent.
func (r Record) Map(path string) map[string]interface{} {
	v, ok := r.Get(path)
	if !ok {
		return nil
	}
	m, _ := asMap(v)
	return m
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// With returns a copy of r with path set to value. Intermediate objects
// along the path are copied, never shared with r.
func (r Record) With(path string, value interface{}) Record {
	head, rest, nested := strings.Cut(path, ".")
	out := r.Clone()
	if !nested {
		out[head] = value
		return out
	}
	child, _ := asMap(out[head])
	out[head] = Record(child).With(rest, value)
	return out
}

// Without returns a copy of r with path removed.
func (r Record) Without(path string) Record {
	head, rest, nested := strings.Cut(path, ".")
	out := r.Clone()
	if !nested {
		delete(out, head)
		return out
	}
	child, ok := asMap(out[head])
	if !ok {
		return out
	}
	out[head] = Record(child).Without(rest)
	return out
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out, err := cast.ToStringMapE(m)
		return out, err == nil
	default:
		return nil, false
	}
}
