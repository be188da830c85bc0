package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Kind is the semantic type of a contract field.
type Kind string

const (
	KindString   Kind = "string"
	KindInteger  Kind = "integer"
	KindNumber   Kind = "number"
	KindDecimal  Kind = "decimal"
	KindBoolean  Kind = "boolean"
	KindDateTime Kind = "datetime"
	KindDate     Kind = "date"
	KindUUID     Kind = "uuid"
	KindEnum     Kind = "enum"
	KindObject   Kind = "object"
	KindList     Kind = "list"
	KindMap      Kind = "map"
	KindAny      Kind = "any"
)

// CheckFunc is a field-level predicate evaluated after the built-in constraints.
// The returned error's message is reported verbatim.
type CheckFunc func(value interface{}) error

// Field declares one attribute of a contract and its constraints.
//
// Fields are built fluently and are treated as immutable once their contract
// has been registered:
//
//	schema.String("email").Require().MaxLen(255).Match(emailPattern).Lower()
type Field struct {
	Name string
	Kind Kind

	required  bool
	minLength *int
	maxLength *int
	min       *float64
	max       *float64
	pattern   *regexp.Regexp
	enum      []string
	maxItems  *int
	normalize func(string) string
	checks    []CheckFunc
	object    *Contract
	elem      *Field
	def       func(env Env) interface{}
}

func newField(name string, kind Kind) *Field {
	return &Field{Name: name, Kind: kind}
}

// String declares a free-text field.
func String(name string) *Field { return newField(name, KindString) }

// Integer declares a whole-number field.
func Integer(name string) *Field { return newField(name, KindInteger) }

// Number declares a floating point field.
func Number(name string) *Field { return newField(name, KindNumber) }

// Decimal declares an exact numeric field (money).
func Decimal(name string) *Field { return newField(name, KindDecimal) }

// Boolean declares a true/false field.
func Boolean(name string) *Field { return newField(name, KindBoolean) }

// DateTime declares a timestamp field, normalised to UTC.
func DateTime(name string) *Field { return newField(name, KindDateTime) }

// Date declares a calendar date, stored as midnight UTC.
func Date(name string) *Field { return newField(name, KindDate) }

// UUID declares a lowercase canonical UUID string.
func UUID(name string) *Field { return newField(name, KindUUID) }

// Any declares an unconstrained JSON value.
func Any(name string) *Field { return newField(name, KindAny) }

// Enum declares a string field restricted to values.
func Enum(name string, values ...string) *Field {
	f := newField(name, KindEnum)
	f.enum = values
	return f
}

// Object declares a nested value object validated against c.
func Object(name string, c *Contract) *Field {
	f := newField(name, KindObject)
	f.object = c
	return f
}

// List declares an ordered collection whose items are validated against elem.
// elem may be nil for an untyped list.
func List(name string, elem *Field) *Field {
	f := newField(name, KindList)
	f.elem = elem
	return f
}

// Map declares a string-keyed collection whose values are validated against elem.
// elem may be nil for an untyped map.
func Map(name string, elem *Field) *Field {
	f := newField(name, KindMap)
	f.elem = elem
	return f
}

// Require marks the field as mandatory.
func (f *Field) Require() *Field {
	f.required = true
	return f
}

// MinLen sets the minimum string length in characters.
func (f *Field) MinLen(n int) *Field {
	f.minLength = &n
	return f
}

// MaxLen sets the maximum string length in characters.
func (f *Field) MaxLen(n int) *Field {
	f.maxLength = &n
	return f
}

// Len sets both string length bounds.
func (f *Field) Len(min, max int) *Field {
	return f.MinLen(min).MaxLen(max)
}

// AtLeast sets an inclusive lower bound for numeric fields.
func (f *Field) AtLeast(v float64) *Field {
	f.min = &v
	return f
}

// AtMost sets an inclusive upper bound for numeric fields.
func (f *Field) AtMost(v float64) *Field {
	f.max = &v
	return f
}

// Between sets inclusive numeric bounds.
func (f *Field) Between(min, max float64) *Field {
	return f.AtLeast(min).AtMost(max)
}

// Match restricts string values to a regular expression.
func (f *Field) Match(pattern string) *Field {
	f.pattern = regexp.MustCompile(pattern)
	return f
}

// MaxItems caps the number of entries of a list or map.
func (f *Field) MaxItems(n int) *Field {
	f.maxItems = &n
	return f
}

// Upper upper-cases string values before they are checked.
func (f *Field) Upper() *Field {
	f.normalize = strings.ToUpper
	return f
}

// Lower lower-cases string values before they are checked.
func (f *Field) Lower() *Field {
	f.normalize = strings.ToLower
	return f
}

// Normalize rewrites string values before they are checked.
func (f *Field) Normalize(fn func(string) string) *Field {
	f.normalize = fn
	return f
}

// Check appends a custom predicate.
func (f *Field) Check(fn CheckFunc) *Field {
	f.checks = append(f.checks, fn)
	return f
}

// Default supplies value when the field is absent from the candidate.
func (f *Field) Default(value interface{}) *Field {
	f.def = func(Env) interface{} { return value }
	return f
}

// DefaultFn supplies a computed value when the field is absent.
func (f *Field) DefaultFn(fn func(env Env) interface{}) *Field {
	f.def = fn
	return f
}

// DefaultNow defaults a timestamp field to the validation clock.
func (f *Field) DefaultNow() *Field {
	return f.DefaultFn(func(env Env) interface{} { return env.Now })
}

// DefaultToday defaults a date field to the validation clock's date.
func (f *Field) DefaultToday() *Field {
	return f.DefaultFn(func(env Env) interface{} { return env.Today() })
}

// IsRequired reports whether the field must be present.
func (f *Field) IsRequired() bool { return f.required }

// HasDefault reports whether an absent value is filled in.
func (f *Field) HasDefault() bool { return f.def != nil }

// Contract returns the nested contract of an object field.
func (f *Field) Contract() *Contract { return f.object }

// Elem returns the item declaration of a list or map field.
func (f *Field) Elem() *Field { return f.elem }

func (f *Field) clone() *Field {
	c := *f
	return &c
}

// Constraints renders the declared constraints for listings.
func (f *Field) Constraints() []string {
	var out []string
	if f.required {
		out = append(out, "required")
	}
	if f.minLength != nil {
		out = append(out, fmt.Sprintf("minLength=%d", *f.minLength))
	}
	if f.maxLength != nil {
		out = append(out, fmt.Sprintf("maxLength=%d", *f.maxLength))
	}
	if f.min != nil {
		out = append(out, fmt.Sprintf("min=%v", *f.min))
	}
	if f.max != nil {
		out = append(out, fmt.Sprintf("max=%v", *f.max))
	}
	if f.pattern != nil {
		out = append(out, fmt.Sprintf("pattern=%s", f.pattern.String()))
	}
	if len(f.enum) > 0 {
		out = append(out, fmt.Sprintf("enum=%s", strings.Join(f.enum, "|")))
	}
	if f.maxItems != nil {
		out = append(out, fmt.Sprintf("maxItems=%d", *f.maxItems))
	}
	if f.def != nil {
		out = append(out, "default")
	}
	return out
}

// Env carries the per-validation context handed to defaults and invariants.
type Env struct {
	Now       time.Time
	Operation Operation
}

// Today is Now truncated to midnight UTC.
func (e Env) Today() time.Time {
	y, m, d := e.Now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
