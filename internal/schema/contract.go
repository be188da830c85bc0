package schema

import (
	"fmt"
)

// Operation selects which variant of an entity contract applies.
type Operation string

const (
	OpBase     Operation = "base"
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpResponse Operation = "response"
)

// Operations lists every operation in canonical order.
var Operations = []Operation{OpBase, OpCreate, OpUpdate, OpResponse}

// ParseOperation maps a user-facing name to an Operation.
// An empty name selects OpBase.
func ParseOperation(s string) (Operation, error) {
	if s == "" {
		return OpBase, nil
	}
	for _, op := range Operations {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q (must be: base, create, update, response)", s)
}

// Invariant is a named cross-field rule over one record. It runs only after
// every field constraint of its contract passed, and is skipped when any of
// the Requires paths is absent.
//
// Check either rejects (non-nil error) or returns a derived record; a nil
// record means unchanged. A rejected invariant never contributes a derived
// value. Errors built with Warn are reported as warnings instead.
type Invariant struct {
	Name     string
	Requires []string
	Check    func(env Env, r Record) (Record, error)
}

// Predicate builds a reject-only invariant.
func Predicate(name string, requires []string, fn func(env Env, r Record) error) Invariant {
	return Invariant{
		Name:     name,
		Requires: requires,
		Check: func(env Env, r Record) (Record, error) {
			return nil, fn(env, r)
		},
	}
}

// Derivation builds an invariant that only rewrites dependent fields.
func Derivation(name string, requires []string, fn func(env Env, r Record) Record) Invariant {
	return Invariant{
		Name:     name,
		Requires: requires,
		Check: func(env Env, r Record) (Record, error) {
			return fn(env, r), nil
		},
	}
}

// Contract is the declared shape of one entity or nested value object.
type Contract struct {
	Name       string
	Fields     []*Field
	Invariants []Invariant

	// New allocates the typed value a validated record decodes into.
	// Nil keeps the result as a Record.
	New func() interface{}

	index map[string]*Field
}

// NewContract declares a contract with fields in evaluation order.
func NewContract(name string, fields ...*Field) *Contract {
	c := &Contract{Name: name}
	c.setFields(fields)
	return c
}

func (c *Contract) setFields(fields []*Field) {
	c.Fields = fields
	c.index = make(map[string]*Field, len(fields))
	for _, f := range fields {
		if _, dup := c.index[f.Name]; dup {
			panic(fmt.Sprintf("contract %s: duplicate field %q", c.Name, f.Name))
		}
		c.index[f.Name] = f
	}
}

// Field returns the declaration for name, or nil.
func (c *Contract) Field(name string) *Field {
	return c.index[name]
}

// Rules appends invariants in evaluation order.
func (c *Contract) Rules(invariants ...Invariant) *Contract {
	c.Invariants = append(c.Invariants, invariants...)
	return c
}

// Into sets the typed target of the contract.
func (c *Contract) Into(fn func() interface{}) *Contract {
	c.New = fn
	return c
}

// Pick derives a contract named name holding only the listed fields, in the
// order this contract declares them. Invariants and the typed target are not
// carried over.
func (c *Contract) Pick(name string, fields ...string) *Contract {
	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		if c.index[f] == nil {
			panic(fmt.Sprintf("contract %s: cannot pick unknown field %q", c.Name, f))
		}
		want[f] = true
	}
	var picked []*Field
	for _, f := range c.Fields {
		if want[f.Name] {
			picked = append(picked, f.clone())
		}
	}
	return NewContract(name, picked...)
}

// Partial returns a copy where every field is optional and no defaults apply.
// Nested object contracts keep their own constraints.
func (c *Contract) Partial(name string) *Contract {
	fields := make([]*Field, len(c.Fields))
	for i, f := range c.Fields {
		cp := f.clone()
		cp.required = false
		cp.def = nil
		fields[i] = cp
	}
	return NewContract(name, fields...)
}

// Extend returns a copy with extra fields appended. A field with an existing
// name replaces the declaration in place.
func (c *Contract) Extend(name string, fields ...*Field) *Contract {
	out := make([]*Field, 0, len(c.Fields)+len(fields))
	replaced := make(map[string]*Field, len(fields))
	for _, f := range fields {
		replaced[f.Name] = f
	}
	for _, f := range c.Fields {
		if r, ok := replaced[f.Name]; ok {
			out = append(out, r)
			delete(replaced, f.Name)
			continue
		}
		out = append(out, f.clone())
	}
	for _, f := range fields {
		if _, pending := replaced[f.Name]; pending {
			out = append(out, f)
		}
	}
	ext := NewContract(name, out...)
	ext.Invariants = append([]Invariant(nil), c.Invariants...)
	ext.New = c.New
	return ext
}

// FieldInfo describes one field for listings.
type FieldInfo struct {
	Name        string      `json:"name"`
	Kind        Kind        `json:"kind"`
	Constraints []string    `json:"constraints,omitempty"`
	Fields      []FieldInfo `json:"fields,omitempty"`
}

// Describe lists the fields of the contract, recursing into nested objects.
func (c *Contract) Describe() []FieldInfo {
	out := make([]FieldInfo, 0, len(c.Fields))
	for _, f := range c.Fields {
		info := FieldInfo{Name: f.Name, Kind: f.Kind, Constraints: f.Constraints()}
		switch {
		case f.object != nil:
			info.Fields = f.object.Describe()
		case f.elem != nil && f.elem.object != nil:
			info.Fields = f.elem.object.Describe()
		}
		out = append(out, info)
	}
	return out
}

// InvariantNames lists the cross-field rules in evaluation order.
func (c *Contract) InvariantNames() []string {
	names := make([]string, len(c.Invariants))
	for i, inv := range c.Invariants {
		names[i] = inv.Name
	}
	return names
}
