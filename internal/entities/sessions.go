package entities

import (
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/shopspring/decimal"
)

// completionEstimates holds the typical duration in minutes per session type.
var completionEstimates = map[string]int{
	"routine_maintenance": 60,
	"diagnostic":          90,
	"repair":              180,
	"inspection":          45,
	"warranty":            120,
}

const defaultCompletionEstimate = 90

// Session is one diagnostic or service visit for an asset.
type Session struct {
	SessionID        string           `json:"session_id"`
	SessionDate      time.Time        `json:"session_date"`
	EquipmentID      string           `json:"equipment_id"`
	TechnicianID     *string          `json:"technician_id,omitempty"`
	CustomerID       *string          `json:"customer_id,omitempty"`
	SessionType      *string          `json:"session_type,omitempty"`
	SessionStatus    string           `json:"session_status"`
	Priority         string           `json:"priority"`
	DiagnosticCodes  []DiagnosticCode `json:"diagnostic_codes,omitempty"`
	SymptomsReported *string          `json:"symptoms_reported,omitempty"`
	WorkPerformed    *string          `json:"work_performed,omitempty"`
	Recommendations  *string          `json:"recommendations,omitempty"`
	Resolution       *Resolution      `json:"resolution,omitempty"`
	Metrics          *SessionMetrics  `json:"metrics,omitempty"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	DurationMinutes  *int             `json:"duration_minutes,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	InternalNotes    *string          `json:"internal_notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        *time.Time       `json:"deleted_at,omitempty"`
}

// DiagnosticCode is a trouble code recorded during a session.
type DiagnosticCode struct {
	Code          string     `json:"code"`
	Description   *string    `json:"description,omitempty"`
	Severity      *string    `json:"severity,omitempty"`
	Status        string     `json:"status"`
	FirstDetected *time.Time `json:"first_detected,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

type Resolution struct {
	TotalCost      *decimal.Decimal `json:"total_cost,omitempty"`
	LaborHours     *decimal.Decimal `json:"labor_hours,omitempty"`
	PartsCost      *decimal.Decimal `json:"parts_cost,omitempty"`
	LaborCost      *decimal.Decimal `json:"labor_cost,omitempty"`
	TaxAmount      *decimal.Decimal `json:"tax_amount,omitempty"`
	CurrencyCode   string           `json:"currency_code"`
	WarrantyMonths *int             `json:"warranty_months,omitempty"`
}

type SessionMetrics struct {
	CompletionPercentage *decimal.Decimal `json:"completion_percentage,omitempty"`
	QualityScore         *decimal.Decimal `json:"quality_score,omitempty"`
	CustomerSatisfaction *int             `json:"customer_satisfaction,omitempty"`
	TechnicianEfficiency *decimal.Decimal `json:"technician_efficiency,omitempty"`
	DiagnosticAccuracy   *decimal.Decimal `json:"diagnostic_accuracy,omitempty"`
}

var sessionVariants = variants{
	base: sessionContract,
	create: func(base *schema.Contract) *schema.Contract {
		return createVariant(base, "session_id", []string{
			"session_date", "equipment_id", "technician_id", "customer_id",
			"session_type", "priority", "symptoms_reported", "notes",
		},
			schema.Date("session_date").DefaultToday(),
			schema.Enum("session_type", sessionTypes...).Default("diagnostic"),
		)
	},
	update: func(base *schema.Contract) *schema.Contract {
		return updateVariant(base, []string{
			"technician_id", "customer_id", "session_type", "session_status", "priority",
			"diagnostic_codes", "symptoms_reported", "work_performed", "recommendations",
			"resolution", "metrics", "started_at", "completed_at", "duration_minutes",
			"notes", "internal_notes",
		})
	},
}

var sessionTypes = []string{"routine_maintenance", "diagnostic", "repair", "inspection", "warranty"}

func sessionContract() *schema.Contract {
	code := schema.NewContract("diagnostic_code",
		schema.String("code").Require().Check(dtcCheck),
		schema.String("description").MaxLen(500),
		schema.Enum("severity", "low", "medium", "high", "critical"),
		schema.Enum("status", "active", "pending", "resolved").Default("active"),
		schema.DateTime("first_detected"),
		schema.DateTime("resolved_at"),
	)

	resolution := schema.NewContract("resolution",
		schema.Decimal("total_cost").AtLeast(0),
		schema.Decimal("labor_hours").Between(0, 100),
		schema.Decimal("parts_cost").AtLeast(0),
		schema.Decimal("labor_cost").AtLeast(0),
		schema.Decimal("tax_amount").AtLeast(0),
		schema.String("currency_code").Match(currencyPattern).Default("USD"),
		schema.Integer("warranty_months").Between(0, 120),
	)

	metrics := schema.NewContract("metrics",
		schema.Decimal("completion_percentage").Between(0, 100),
		schema.Decimal("quality_score").Between(0, 10),
		schema.Integer("customer_satisfaction").Between(1, 5),
		schema.Decimal("technician_efficiency").Between(0, 5),
		schema.Decimal("diagnostic_accuracy").Between(0, 100),
	)

	fields := []*schema.Field{
		schema.UUID("session_id").Require(),
		schema.Date("session_date").Require(),
		schema.UUID("equipment_id").Require(),
		schema.UUID("technician_id"),
		schema.UUID("customer_id"),
		schema.Enum("session_type", sessionTypes...),
		schema.Enum("session_status", "pending", "in_progress", "completed", "cancelled").Default("pending"),
		schema.Enum("priority", "low", "medium", "high", "critical").Default("medium"),
		schema.List("diagnostic_codes", schema.Object("", code)).
			Check(maxEntries(50, "Maximum 50 diagnostic codes allowed per session")),
		schema.String("symptoms_reported").MaxLen(2000),
		schema.String("work_performed").MaxLen(5000),
		schema.String("recommendations").MaxLen(2000),
		schema.Object("resolution", resolution),
		schema.Object("metrics", metrics),
		schema.DateTime("started_at"),
		schema.DateTime("completed_at"),
		schema.Integer("duration_minutes").Between(1, 10080),
		schema.String("notes").MaxLen(2000),
		schema.String("internal_notes").MaxLen(2000),
	}
	fields = append(fields, timestamps()...)

	return schema.NewContract(string(DiagnosticSessions), fields...).Rules(
		notBefore("completed_after_started", "completed_at", "started_at", "completed_at cannot be before started_at"),
		requiredWhen("session_status", "completed", "completed_at", "completed_at must be set when session_status is completed"),
		schema.Derivation("duration_backfill", []string{"started_at", "completed_at"}, func(_ schema.Env, r schema.Record) schema.Record {
			if r.Has("duration_minutes") {
				return nil
			}
			started, _ := r.Time("started_at")
			completed, _ := r.Time("completed_at")
			minutes := int64(completed.Sub(started) / time.Minute)
			if minutes < 1 || minutes > 10080 {
				return nil
			}
			return r.With("duration_minutes", minutes)
		}),
		updatedAfterCreated,
	).Into(func() interface{} { return &Session{} })
}

// IsBillable reports a completed session with a positive total cost.
func (s *Session) IsBillable() bool {
	return s.SessionStatus == "completed" &&
		s.Resolution != nil && s.Resolution.TotalCost != nil && s.Resolution.TotalCost.IsPositive()
}

// ActiveDTCCount counts codes still marked active.
func (s *Session) ActiveDTCCount() int {
	n := 0
	for _, c := range s.DiagnosticCodes {
		if c.Status == "active" {
			n++
		}
	}
	return n
}

// EstimatedCompletion projects the end of a running session from the
// typical duration of its type. It is nil unless the session has started
// and not yet completed.
func (s *Session) EstimatedCompletion() (*time.Time, int) {
	if s.StartedAt == nil || s.CompletedAt != nil {
		return nil, 0
	}
	minutes := defaultCompletionEstimate
	if s.SessionType != nil {
		if m, ok := completionEstimates[*s.SessionType]; ok {
			minutes = m
		}
	}
	at := s.StartedAt.Add(time.Duration(minutes) * time.Minute)
	return &at, minutes
}

// Computed implements Computer.
func (s *Session) Computed(_ time.Time) map[string]interface{} {
	out := map[string]interface{}{
		"is_billable":                  s.IsBillable(),
		"active_dtc_count":             s.ActiveDTCCount(),
		"estimated_completion":         nil,
		"estimated_completion_minutes": nil,
	}
	if at, minutes := s.EstimatedCompletion(); at != nil {
		out["estimated_completion"] = *at
		out["estimated_completion_minutes"] = minutes
	}
	return out
}
