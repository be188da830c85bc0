package entities

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
)

const (
	currencyPattern = `^[A-Z]{3}$`
	countryPattern  = `^[A-Z]{2}$`
	semverPattern   = `^v?\d+\.\d+\.\d+(-[a-z0-9]+)?$`

	minModelYear = 1900
	maxModelYear = 2030
)

// ValidateDTC checks a diagnostic trouble code such as "P0301": five
// characters, a P/B/C/U system letter and four digits.
func ValidateDTC(code string) error {
	if len(code) != 5 {
		return errors.New("DTC code must be exactly 5 characters")
	}
	switch code[0] {
	case 'P', 'B', 'C', 'U':
	default:
		return errors.New("DTC code must start with P, B, C, or U")
	}
	for _, r := range code[1:] {
		if r < '0' || r > '9' {
			return errors.New("DTC code must have 4 digits after the category letter")
		}
	}
	return nil
}

func dtcCheck(v interface{}) error {
	return ValidateDTC(v.(string))
}

// tags declares the shared free-form tag list: at most 20 lower-cased,
// non-empty tags of up to 50 characters.
func tags() *schema.Field {
	return schema.List("tags", schema.String("").Lower().Check(tagItem)).Check(func(v interface{}) error {
		if len(v.([]interface{})) > 20 {
			return errors.New("Maximum 20 tags allowed")
		}
		return nil
	})
}

func tagItem(v interface{}) error {
	s := v.(string)
	if s == "" {
		return errors.New("Tags must be non-empty strings")
	}
	if len([]rune(s)) > 50 {
		return errors.New("Individual tags cannot exceed 50 characters")
	}
	return nil
}

// maxEntries caps a list with a domain-specific message.
func maxEntries(n int, message string) schema.CheckFunc {
	return func(v interface{}) error {
		if len(v.([]interface{})) > n {
			return errors.New(message)
		}
		return nil
	}
}

// slugRule describes the shape rules of an identifier such as a part
// number or model name.
type slugRule struct {
	label       string // "Part number"
	min         int
	separators  string // characters that may not lead, trail or double up
	edgeMessage string
	runMessage  string
}

func (s slugRule) check(v interface{}) error {
	id := v.(string)
	if len(id) < s.min {
		return fmt.Errorf("%s must be at least %d characters", s.label, s.min)
	}
	if strings.ContainsAny(id[:1], s.separators) || strings.ContainsAny(id[len(id)-1:], s.separators) {
		return errors.New(s.edgeMessage)
	}
	for i := 1; i < len(id); i++ {
		if id[i-1] == id[i] && strings.IndexByte(s.separators, id[i]) >= 0 {
			return errors.New(s.runMessage)
		}
	}
	return nil
}

// passwordStrength requires three of lowercase, uppercase, digit and
// special characters. label prefixes the message ("Password").
func passwordStrength(label string) schema.CheckFunc {
	return func(v interface{}) error {
		var lower, upper, digit, special bool
		for _, r := range v.(string) {
			switch {
			case unicode.IsLower(r):
				lower = true
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsDigit(r):
				digit = true
			case strings.ContainsRune("!@#$%^&*()_+-=[]{}|;:,.<>?", r):
				special = true
			}
		}
		score := 0
		for _, ok := range []bool{lower, upper, digit, special} {
			if ok {
				score++
			}
		}
		if score < 3 {
			return fmt.Errorf("%s must contain at least 3 of: lowercase, uppercase, digit, special character", label)
		}
		return nil
	}
}

// timestamps declares the audit columns shared by every entity.
func timestamps() []*schema.Field {
	return []*schema.Field{
		schema.DateTime("created_at").DefaultNow(),
		schema.DateTime("updated_at").DefaultNow(),
		schema.DateTime("deleted_at"),
	}
}

var updatedAfterCreated = schema.Predicate("updated_after_created",
	[]string{"created_at", "updated_at"},
	func(_ schema.Env, r schema.Record) error {
		created, _ := r.Time("created_at")
		updated, _ := r.Time("updated_at")
		if updated.Before(created) {
			return errors.New("Updated timestamp must be after created timestamp")
		}
		return nil
	})

// notBefore rejects when the later timestamp precedes the earlier one.
func notBefore(name, later, earlier, message string) schema.Invariant {
	return schema.Predicate(name, []string{later, earlier}, func(_ schema.Env, r schema.Record) error {
		l, _ := r.Time(later)
		e, _ := r.Time(earlier)
		if l.Before(e) {
			return errors.New(message)
		}
		return nil
	})
}

// requiredWhen rejects records whose status equals value without field set.
func requiredWhen(statusField, value, field, message string) schema.Invariant {
	return unlessPatch(schema.Predicate(field+"_when_"+value, []string{statusField}, func(_ schema.Env, r schema.Record) error {
		if r.String(statusField) == value && !r.Has(field) {
			return errors.New(message)
		}
		return nil
	}))
}

// unlessPatch skips inv on update, where an absent field means unchanged
// rather than unset.
func unlessPatch(inv schema.Invariant) schema.Invariant {
	check := inv.Check
	inv.Check = func(env schema.Env, r schema.Record) (schema.Record, error) {
		if env.Operation == schema.OpUpdate {
			return nil, nil
		}
		return check(env, r)
	}
	return inv
}

// stampManaged assigns the primary id and audit timestamps of a new record.
func stampManaged(idField string, stamps ...string) schema.Invariant {
	return schema.Derivation("stamp_managed_fields", nil, func(env schema.Env, r schema.Record) schema.Record {
		out := r
		for _, name := range stamps {
			out = out.With(name, env.Now)
		}
		if idField != "" {
			out = out.With(idField, uuid.NewString())
		}
		return out
	})
}

// createVariant picks the caller-supplied fields of base, applies
// create-specific overrides and stamps managed fields. An empty idField
// means the entity has no generated key.
func createVariant(base *schema.Contract, idField string, fields []string, overrides ...*schema.Field) *schema.Contract {
	c := base.Pick(base.Name+".create", fields...)
	if len(overrides) > 0 {
		c = c.Extend(c.Name, overrides...)
	}
	var stamps []string
	for _, name := range []string{"created_at", "updated_at"} {
		if base.Field(name) != nil {
			stamps = append(stamps, name)
		}
	}
	if idField != "" || len(stamps) > 0 {
		c = c.Rules(stampManaged(idField, stamps...))
	}
	return c.Rules(base.Invariants...)
}

// updateVariant makes the listed fields optional, drops their defaults and
// refreshes updated_at where the entity tracks it. Invariants run only when
// their inputs are present.
func updateVariant(base *schema.Contract, fields []string) *schema.Contract {
	c := base.Pick(base.Name+".update", fields...).Partial(base.Name + ".update")
	if base.Field("updated_at") != nil {
		c = c.Extend(c.Name, schema.DateTime("updated_at").DefaultNow())
	}
	return c.Rules(base.Invariants...)
}
