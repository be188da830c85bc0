package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// ErrNotFound is returned when no contract is registered for an entity or table.
	ErrNotFound = errors.New("contract not found")

	// ErrUnsupportedOperation is returned when an entity has no contract for an operation.
	ErrUnsupportedOperation = errors.New("operation not available")
)

// ValidationError is one contract violation found in a candidate record.
type ValidationError struct {
	Contract      string   `json:"contract"`
	Field         string   `json:"field,omitempty"`     // dotted path, empty for record-level rules
	Invariant     string   `json:"invariant,omitempty"` // set for cross-field rule failures
	Message       string   `json:"message"`
	ExpectedType  string   `json:"expected_type,omitempty"`
	UnknownFields []string `json:"unknown_fields,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.UnknownFields) > 0 {
		if e.Field != "" {
			return fmt.Sprintf("field '%s': unknown field(s) %v not allowed in contract %s", e.Field, e.UnknownFields, e.Contract)
		}
		return fmt.Sprintf("unknown field(s) %v not allowed in contract %s", e.UnknownFields, e.Contract)
	}
	if e.Field != "" {
		return fmt.Sprintf("field '%s': %s (contract %s)", e.Field, e.Message, e.Contract)
	}
	return fmt.Sprintf("%s (contract %s)", e.Message, e.Contract)
}

// Short renders the violation without the contract suffix, for reports.
func (e *ValidationError) Short() string {
	if len(e.UnknownFields) > 0 {
		return fmt.Sprintf("%s: %v", e.Message, e.UnknownFields)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// MultiValidationError aggregates every violation of one candidate record.
type MultiValidationError struct {
	Errors []*ValidationError
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// Messages returns the short form of each violation in order.
func (e *MultiValidationError) Messages() []string {
	out := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		out[i] = err.Short()
	}
	return out
}

// ValidationDetailer surfaces structured validation details for API error responses.
// Implemented by all validation error types so consumers extract details without
// type-asserting against concrete structs.
type ValidationDetailer interface {
	Details() map[string]interface{}
}

// Details returns the structured fields from this single validation error.
func (e *ValidationError) Details() map[string]interface{} {
	d := make(map[string]interface{})
	if len(e.UnknownFields) > 0 {
		d["unknown_fields"] = e.UnknownFields
	}
	if e.Field != "" {
		d["field"] = e.Field
	}
	if e.Invariant != "" {
		d["invariant"] = e.Invariant
	}
	return d
}

// Details aggregates the failed field names and messages from all child errors.
func (e *MultiValidationError) Details() map[string]interface{} {
	d := make(map[string]interface{})
	var fields []string
	for _, ve := range e.Errors {
		if ve.Field != "" {
			fields = append(fields, ve.Field)
		}
	}
	if len(fields) > 0 {
		d["fields"] = fields
	}
	d["violations"] = e.Errors
	return d
}

// NewUnknownFieldsError creates an error for fields the contract does not declare.
func NewUnknownFieldsError(contract, path string, fields []string) *ValidationError {
	return &ValidationError{
		Contract:      contract,
		Field:         path,
		Message:       "extra fields not permitted",
		UnknownFields: fields,
	}
}

// NewTypeMismatchError creates an error for values of the wrong kind.
func NewTypeMismatchError(contract, field string, expected Kind, message string) *ValidationError {
	return &ValidationError{
		Contract:     contract,
		Field:        field,
		Message:      message,
		ExpectedType: string(expected),
	}
}

// NewRequiredFieldError creates an error for missing required fields.
func NewRequiredFieldError(contract, field string) *ValidationError {
	return &ValidationError{
		Contract: contract,
		Field:    field,
		Message:  "field required",
	}
}

// advisory marks an invariant outcome that is reported but never rejects.
type advisory struct {
	msg string
}

func (a *advisory) Error() string { return a.msg }

// Warn builds a non-blocking invariant outcome. The engine records it as a
// warning and keeps the record unchanged.
func Warn(format string, args ...interface{}) error {
	return &advisory{msg: fmt.Sprintf(format, args...)}
}

// IsWarning reports whether err was produced by Warn.
func IsWarning(err error) bool {
	var a *advisory
	return errors.As(err, &a)
}
