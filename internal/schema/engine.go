package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Outcome is the accepted form of a candidate record.
type Outcome struct {
	// Record is the normalised record after defaults and derivations.
	Record Record
	// Value is the typed entity when the contract declares one, otherwise Record.
	Value interface{}
	// Warnings are non-blocking findings from advisory invariants.
	Warnings []string
}

// Engine validates candidate records against contracts.
// It holds no per-record state and is safe for concurrent use.
type Engine struct {
	nowFn func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the time source used for defaults and time-relative rules.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		e.nowFn = fn
	}
}

// NewEngine creates an engine using the wall clock unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{nowFn: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock in UTC.
func (e *Engine) Now() time.Time {
	return e.nowFn().UTC()
}

// Validate checks candidate against c. On rejection the error is a
// *MultiValidationError holding every violation found in one pass.
//
// Evaluation order per object: unknown-field check, field constraints in
// declaration order (nested objects inside-out), then invariants in
// declaration order once all field constraints of that object passed.
func (e *Engine) Validate(c *Contract, candidate map[string]interface{}) (*Outcome, error) {
	return e.ValidateOp(c, OpBase, candidate)
}

// ValidateOp is Validate with the operation exposed to invariants through Env.
func (e *Engine) ValidateOp(c *Contract, op Operation, candidate map[string]interface{}) (*Outcome, error) {
	if c == nil {
		return nil, ErrNotFound
	}
	run := &validation{
		contract: c.Name,
		env:      Env{Now: e.Now(), Operation: op},
	}

	rec, _ := run.object(c, "", candidate)
	if len(run.errs) > 0 {
		return nil, &MultiValidationError{Errors: run.errs}
	}

	out := &Outcome{Record: rec, Value: rec, Warnings: run.warnings}
	if c.New != nil {
		target := c.New()
		if err := decode(rec, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.Name, err)
		}
		out.Value = target
	}
	return out, nil
}

// Decode converts a validated record into a typed value using json tags.
func Decode(rec Record, target interface{}) error {
	return decode(rec, target)
}

func decode(rec Record, target interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]interface{}(rec))
}

// validation accumulates the findings of one Validate call.
type validation struct {
	contract string
	env      Env
	errs     []*ValidationError
	warnings []string
}

func (v *validation) fail(path, message string) {
	v.errs = append(v.errs, &ValidationError{Contract: v.contract, Field: path, Message: message})
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	if name == "" {
		return path
	}
	return path + "." + name
}

// object validates one object level and returns the normalised record and
// whether that level (including nested levels) is free of violations.
func (v *validation) object(c *Contract, path string, input map[string]interface{}) (Record, bool) {
	before := len(v.errs)
	rec := make(Record, len(c.Fields))

	var unknown []string
	for key := range input {
		if c.Field(key) == nil {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		v.errs = append(v.errs, NewUnknownFieldsError(v.contract, path, unknown))
	}

	for _, f := range c.Fields {
		fieldPath := joinPath(path, f.Name)
		raw, present := input[f.Name]
		if !present || raw == nil {
			switch {
			case !present && f.def != nil:
				rec[f.Name] = f.def(v.env)
			case f.required && present:
				v.fail(fieldPath, "value must not be null")
			case f.required:
				v.errs = append(v.errs, NewRequiredFieldError(v.contract, fieldPath))
			}
			continue
		}
		if val, ok := v.value(f, fieldPath, raw); ok {
			rec[f.Name] = val
		}
	}

	if len(v.errs) > before {
		return rec, false
	}

	for _, inv := range c.Invariants {
		if !rec.HasAll(inv.Requires...) {
			continue
		}
		next, err := inv.Check(v.env, rec)
		if err != nil {
			if IsWarning(err) {
				v.warnings = append(v.warnings, prefixed(path, err.Error()))
				continue
			}
			v.errs = append(v.errs, &ValidationError{
				Contract:  v.contract,
				Field:     path,
				Invariant: inv.Name,
				Message:   err.Error(),
			})
			continue
		}
		if next != nil {
			rec = next
		}
	}
	return rec, len(v.errs) == before
}

func prefixed(path, msg string) string {
	if path == "" {
		return msg
	}
	return path + ": " + msg
}

// value validates one non-null field value.
func (v *validation) value(f *Field, path string, raw interface{}) (interface{}, bool) {
	var (
		val interface{}
		ok  bool
	)
	switch f.Kind {
	case KindObject:
		m, isMap := asMap(raw)
		if !isMap {
			v.errs = append(v.errs, NewTypeMismatchError(v.contract, path, KindObject, "value is not a valid object"))
			return nil, false
		}
		val, ok = v.object(f.object, path, m)
	case KindList:
		val, ok = v.list(f, path, raw)
	case KindMap:
		val, ok = v.mapping(f, path, raw)
	default:
		val, ok = v.scalar(f, path, raw)
	}
	if !ok {
		return nil, false
	}

	for _, check := range f.checks {
		if err := check(val); err != nil {
			v.fail(path, err.Error())
			return nil, false
		}
	}
	return val, true
}

func (v *validation) list(f *Field, path string, raw interface{}) (interface{}, bool) {
	if _, isString := raw.(string); isString {
		v.errs = append(v.errs, NewTypeMismatchError(v.contract, path, KindList, "value is not a valid list"))
		return nil, false
	}
	items, err := cast.ToSliceE(raw)
	if err != nil {
		v.errs = append(v.errs, NewTypeMismatchError(v.contract, path, KindList, "value is not a valid list"))
		return nil, false
	}
	if f.maxItems != nil && len(items) > *f.maxItems {
		v.fail(path, fmt.Sprintf("list must have at most %d items", *f.maxItems))
		return nil, false
	}
	if f.elem == nil {
		return items, true
	}

	before := len(v.errs)
	out := make([]interface{}, 0, len(items))
	for i, item := range items {
		itemPath := joinPath(path, strconv.Itoa(i))
		if item == nil {
			v.fail(itemPath, "value must not be null")
			continue
		}
		if val, ok := v.value(f.elem, itemPath, item); ok {
			out = append(out, val)
		}
	}
	return out, len(v.errs) == before
}

func (v *validation) mapping(f *Field, path string, raw interface{}) (interface{}, bool) {
	m, isMap := asMap(raw)
	if !isMap {
		v.errs = append(v.errs, NewTypeMismatchError(v.contract, path, KindMap, "value is not a valid object"))
		return nil, false
	}
	if f.maxItems != nil && len(m) > *f.maxItems {
		v.fail(path, fmt.Sprintf("map must have at most %d entries", *f.maxItems))
		return nil, false
	}

	out := make(map[string]interface{}, len(m))
	if f.elem == nil {
		for k, val := range m {
			out[k] = val
		}
		return out, true
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	before := len(v.errs)
	for _, k := range keys {
		itemPath := joinPath(path, k)
		if m[k] == nil {
			v.fail(itemPath, "value must not be null")
			continue
		}
		if val, ok := v.value(f.elem, itemPath, m[k]); ok {
			out[k] = val
		}
	}
	return out, len(v.errs) == before
}

func (v *validation) scalar(f *Field, path string, raw interface{}) (interface{}, bool) {
	val, msg := coerce(f.Kind, raw)
	if msg != "" {
		v.errs = append(v.errs, NewTypeMismatchError(v.contract, path, f.Kind, msg))
		return nil, false
	}

	if s, isString := val.(string); isString && (f.Kind == KindString || f.Kind == KindEnum) {
		s = strings.TrimSpace(s)
		if f.normalize != nil {
			s = f.normalize(s)
		}
		val = s
		if msg := checkString(f, s); msg != "" {
			v.fail(path, msg)
			return nil, false
		}
		return val, true
	}

	if msg := checkBounds(f, val); msg != "" {
		v.fail(path, msg)
		return nil, false
	}
	return val, true
}

func checkString(f *Field, s string) string {
	n := utf8.RuneCountInString(s)
	if f.minLength != nil && n < *f.minLength {
		return fmt.Sprintf("string must have at least %d characters", *f.minLength)
	}
	if f.maxLength != nil && n > *f.maxLength {
		return fmt.Sprintf("string must have at most %d characters", *f.maxLength)
	}
	if f.pattern != nil && !f.pattern.MatchString(s) {
		return fmt.Sprintf("string does not match pattern '%s'", f.pattern.String())
	}
	if len(f.enum) > 0 {
		for _, allowed := range f.enum {
			if s == allowed {
				return ""
			}
		}
		return fmt.Sprintf("value must be one of: %s", strings.Join(f.enum, ", "))
	}
	return ""
}

func checkBounds(f *Field, val interface{}) string {
	if f.min == nil && f.max == nil {
		return ""
	}
	var n decimal.Decimal
	switch x := val.(type) {
	case int64:
		n = decimal.NewFromInt(x)
	case float64:
		n = decimal.NewFromFloat(x)
	case decimal.Decimal:
		n = x
	default:
		return ""
	}
	if f.min != nil && n.LessThan(decimal.NewFromFloat(*f.min)) {
		return fmt.Sprintf("value must be >= %s", formatBound(*f.min))
	}
	if f.max != nil && n.GreaterThan(decimal.NewFromFloat(*f.max)) {
		return fmt.Sprintf("value must be <= %s", formatBound(*f.max))
	}
	return ""
}

func formatBound(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}
