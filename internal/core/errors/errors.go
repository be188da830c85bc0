package errors

import "fmt"

const (
	HttpInternalError             = "internal_error"
	HttpInvalidJsonError          = "invalid_json"
	HttpEntityNotFoundError       = "entity_not_found"
	HttpUnsupportedOperationError = "unsupported_operation"
	HttpContractViolationError    = "contract_violation"
	HttpWarehouseUnavailableError = "warehouse_unavailable"
	HttpInvalidLimitError         = "invalid_limit"
)

// ErrorResponse is the error response body shared by every HTTP handler.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// Severity decides whether a finding fails its check.
type Severity string

const (
	SeverityHard    Severity = "hard"
	SeverityWarning Severity = "warning"
)

// Kind classifies pipeline findings.
type Kind string

const (
	ContractViolation    Kind = "contract_violation"
	SchemaMismatch       Kind = "schema_mismatch"
	ConstraintViolation  Kind = "constraint_violation"
	SLABreach            Kind = "sla_breach"
	ConfigurationGap     Kind = "configuration_gap"
	WarehouseUnavailable Kind = "warehouse_unavailable"
	NoMatchingTables     Kind = "no_matching_tables"
)

var severities = map[Kind]Severity{
	ContractViolation:    SeverityHard,
	SchemaMismatch:       SeverityHard,
	ConstraintViolation:  SeverityHard,
	SLABreach:            SeverityWarning,
	ConfigurationGap:     SeverityWarning,
	WarehouseUnavailable: SeverityWarning,
	NoMatchingTables:     SeverityHard,
}

// Severity returns the severity of k. Unknown kinds are hard.
func (k Kind) Severity() Severity {
	if s, ok := severities[k]; ok {
		return s
	}
	return SeverityHard
}

// Finding is one message produced by a pipeline stage.
type Finding struct {
	Kind    Kind
	Message string
}

// Newf builds a finding with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) Finding {
	return Finding{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Hard reports whether the finding fails its check.
func (f Finding) Hard() bool {
	return f.Kind.Severity() == SeverityHard
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}
