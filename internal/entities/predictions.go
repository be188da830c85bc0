package entities

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/shopspring/decimal"
)

// riskBands maps a categorical risk level to the inclusive score range it
// may carry. Bands overlap on purpose at their edges.
var riskBands = map[string][2]float64{
	"low":      {0.0, 0.3},
	"medium":   {0.2, 0.7},
	"high":     {0.6, 0.9},
	"critical": {0.8, 1.0},
}

// financialFloor is the financial impact expected at minimum per risk level.
var financialFloor = map[string]int64{
	"low":      1000,
	"medium":   5000,
	"high":     20000,
	"critical": 50000,
}

const maxExpiry = 365 * 24 * time.Hour

// Prediction is a predictive-maintenance recommendation for one asset.
type Prediction struct {
	PredictionID             string                     `json:"prediction_id"`
	PredictionDate           time.Time                  `json:"prediction_date"`
	EquipmentID              string                     `json:"equipment_id"`
	SessionID                *string                    `json:"session_id,omitempty"`
	PredictionType           string                     `json:"prediction_type"`
	PredictedFailureDate     *time.Time                 `json:"predicted_failure_date,omitempty"`
	PredictedMaintenanceDate *time.Time                 `json:"predicted_maintenance_date,omitempty"`
	Priority                 string                     `json:"priority"`
	Status                   string                     `json:"status"`
	RiskAssessment           *RiskAssessment            `json:"risk_assessment,omitempty"`
	Recommendation           *MaintenanceRecommendation `json:"recommendation,omitempty"`
	ModelInfo                *PredictionModelInfo       `json:"model_info,omitempty"`
	SymptomsDetected         []string                   `json:"symptoms_detected,omitempty"`
	TriggerConditions        map[string]interface{}     `json:"trigger_conditions,omitempty"`
	HistoricalPatterns       map[string]interface{}     `json:"historical_patterns,omitempty"`
	AcknowledgedAt           *time.Time                 `json:"acknowledged_at,omitempty"`
	AcknowledgedBy           *string                    `json:"acknowledged_by,omitempty"`
	ScheduledMaintenanceDate *time.Time                 `json:"scheduled_maintenance_date,omitempty"`
	CompletedAt              *time.Time                 `json:"completed_at,omitempty"`
	ActualOutcome            *string                    `json:"actual_outcome,omitempty"`
	PredictionAccuracy       *float64                   `json:"prediction_accuracy,omitempty"`
	Notes                    *string                    `json:"notes,omitempty"`
	InternalNotes            *string                    `json:"internal_notes,omitempty"`
	CreatedAt                time.Time                  `json:"created_at"`
	UpdatedAt                time.Time                  `json:"updated_at"`
	ExpiresAt                *time.Time                 `json:"expires_at,omitempty"`
}

type RiskAssessment struct {
	OverallRiskScore         *float64         `json:"overall_risk_score,omitempty"`
	FailureProbability       *float64         `json:"failure_probability,omitempty"`
	ConfidenceLevel          *float64         `json:"confidence_level,omitempty"`
	RiskLevel                string           `json:"risk_level"`
	FinancialImpact          *decimal.Decimal `json:"financial_impact,omitempty"`
	DowntimeImpactHours      *float64         `json:"downtime_impact_hours,omitempty"`
	SafetyImpactScore        *float64         `json:"safety_impact_score,omitempty"`
	EnvironmentalImpactScore *float64         `json:"environmental_impact_score,omitempty"`
}

type MaintenanceRecommendation struct {
	Action                 string           `json:"action"`
	Description            string           `json:"description"`
	EstimatedDurationHours *float64         `json:"estimated_duration_hours,omitempty"`
	EstimatedCost          *decimal.Decimal `json:"estimated_cost,omitempty"`
	CurrencyCode           *string          `json:"currency_code,omitempty"`
	RequiredSkills         []string         `json:"required_skills,omitempty"`
	RequiredTools          []string         `json:"required_tools,omitempty"`
	RequiredParts          []string         `json:"required_parts,omitempty"`
	SafetyPrecautions      []string         `json:"safety_precautions,omitempty"`
}

type PredictionModelInfo struct {
	ModelID           *string            `json:"model_id,omitempty"`
	ModelName         *string            `json:"model_name,omitempty"`
	ModelVersion      *string            `json:"model_version,omitempty"`
	AlgorithmType     *string            `json:"algorithm_type,omitempty"`
	TrainingDataSize  *int64             `json:"training_data_size,omitempty"`
	ModelAccuracy     *float64           `json:"model_accuracy,omitempty"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
}

var predictionVariants = variants{
	base: predictionContract,
	create: func(base *schema.Contract) *schema.Contract {
		return createVariant(base, "prediction_id", []string{
			"prediction_date", "equipment_id", "prediction_type", "predicted_failure_date",
			"predicted_maintenance_date", "priority", "risk_assessment", "recommendation",
			"model_info", "symptoms_detected",
		},
			schema.Date("prediction_date").DefaultToday(),
		)
	},
	update: func(base *schema.Contract) *schema.Contract {
		return updateVariant(base, []string{
			"prediction_type", "predicted_failure_date", "predicted_maintenance_date", "priority",
			"status", "risk_assessment", "recommendation", "symptoms_detected", "acknowledged_at",
			"acknowledged_by", "scheduled_maintenance_date", "completed_at", "actual_outcome",
			"prediction_accuracy", "notes", "internal_notes",
		})
	},
}

// CheckRiskBand reports whether score is allowed for level.
func CheckRiskBand(level string, score float64) error {
	band, ok := riskBands[level]
	if !ok {
		band = [2]float64{0, 1}
	}
	if score < band[0] || score > band[1] {
		return fmt.Errorf("Risk score %s inconsistent with risk level %s", strconv.FormatFloat(score, 'f', -1, 64), level)
	}
	return nil
}

func riskAssessmentContract() *schema.Contract {
	return schema.NewContract("risk_assessment",
		schema.Number("overall_risk_score").Between(0, 1),
		schema.Number("failure_probability").Between(0, 1),
		schema.Number("confidence_level").Between(0, 1),
		schema.Enum("risk_level", "low", "medium", "high", "critical").Default("medium"),
		schema.Decimal("financial_impact").AtLeast(0),
		schema.Number("downtime_impact_hours").Between(0, 8760),
		schema.Number("safety_impact_score").Between(0, 10),
		schema.Number("environmental_impact_score").Between(0, 10),
	).Rules(
		schema.Predicate("risk_band", []string{"overall_risk_score", "risk_level"}, func(_ schema.Env, r schema.Record) error {
			score, _ := r.Float("overall_risk_score")
			return CheckRiskBand(r.String("risk_level"), score)
		}),
		schema.Predicate("financial_floor", []string{"financial_impact", "risk_level"}, func(_ schema.Env, r schema.Record) error {
			impact, _ := r.Decimal("financial_impact")
			level := r.String("risk_level")
			floor, ok := financialFloor[level]
			if ok && impact.IsPositive() && impact.LessThan(decimal.NewFromInt(floor)) {
				return schema.Warn("Financial impact %s below typical minimum %d for %s risk", impact.String(), floor, level)
			}
			return nil
		}),
	)
}

func recommendationContract() *schema.Contract {
	return schema.NewContract("recommendation",
		schema.Enum("action",
			"inspect", "service", "replace", "repair", "calibrate",
			"clean", "lubricate", "adjust", "monitor", "no_action").Require(),
		schema.String("description").Require().MaxLen(1000),
		schema.Number("estimated_duration_hours").Between(0.1, 168),
		schema.Decimal("estimated_cost").AtLeast(0),
		schema.String("currency_code").Match(currencyPattern).Default("USD"),
		schema.List("required_skills", schema.String("")),
		schema.List("required_tools", schema.String("")),
		schema.List("required_parts", schema.String("")),
		schema.List("safety_precautions", schema.String("")),
	).Rules(
		schema.Predicate("currency_with_cost", []string{"estimated_cost"}, func(_ schema.Env, r schema.Record) error {
			cost, _ := r.Decimal("estimated_cost")
			if cost.IsPositive() && !r.Has("currency_code") {
				return errors.New("Currency code required when estimated cost is specified")
			}
			return nil
		}),
	)
}

func predictionContract() *schema.Contract {
	modelInfo := schema.NewContract("model_info",
		schema.UUID("model_id"),
		schema.String("model_name").MaxLen(100),
		schema.String("model_version").MaxLen(50),
		schema.String("algorithm_type").MaxLen(50),
		schema.Integer("training_data_size").AtLeast(1),
		schema.Number("model_accuracy").Between(0, 1),
		schema.Map("feature_importance", schema.Number("")),
	)

	return schema.NewContract(string(MaintenancePredictions),
		schema.UUID("prediction_id").Require(),
		schema.Date("prediction_date").Require(),
		schema.UUID("equipment_id").Require(),
		schema.UUID("session_id"),
		schema.Enum("prediction_type",
			"failure_prediction", "maintenance_due", "performance_degradation",
			"cost_optimization", "safety_alert", "efficiency_warning").Require(),
		schema.Date("predicted_failure_date"),
		schema.Date("predicted_maintenance_date"),
		schema.Enum("priority", "low", "medium", "high", "urgent").Default("medium"),
		schema.Enum("status", "active", "acknowledged", "scheduled", "completed", "dismissed").Default("active"),
		schema.Object("risk_assessment", riskAssessmentContract()),
		schema.Object("recommendation", recommendationContract()),
		schema.Object("model_info", modelInfo),
		schema.List("symptoms_detected", schema.String("")).Check(maxEntries(50, "Maximum 50 symptoms allowed per prediction")),
		schema.Map("trigger_conditions", nil),
		schema.Map("historical_patterns", nil),
		schema.DateTime("acknowledged_at"),
		schema.UUID("acknowledged_by"),
		schema.Date("scheduled_maintenance_date"),
		schema.DateTime("completed_at"),
		schema.String("actual_outcome").MaxLen(500),
		schema.Number("prediction_accuracy").Between(0, 1),
		schema.String("notes").MaxLen(2000),
		schema.String("internal_notes").MaxLen(2000),
		schema.DateTime("created_at").DefaultNow(),
		schema.DateTime("updated_at").DefaultNow(),
		schema.DateTime("expires_at"),
	).Rules(
		schema.Predicate("failure_after_prediction", []string{"prediction_date", "predicted_failure_date"}, func(_ schema.Env, r schema.Record) error {
			predicted, _ := r.Time("prediction_date")
			failure, _ := r.Time("predicted_failure_date")
			if !failure.After(predicted) {
				return errors.New("Predicted failure date must be after prediction date")
			}
			return nil
		}),
		schema.Predicate("maintenance_before_failure", []string{"predicted_maintenance_date", "predicted_failure_date"}, func(_ schema.Env, r schema.Record) error {
			maintenance, _ := r.Time("predicted_maintenance_date")
			failure, _ := r.Time("predicted_failure_date")
			if !maintenance.Before(failure) {
				return errors.New("Predicted maintenance date should be before predicted failure date")
			}
			return nil
		}),
		notBefore("scheduled_after_prediction", "scheduled_maintenance_date", "prediction_date",
			"Scheduled maintenance date cannot be before prediction date"),
		requiredWhen("status", "acknowledged", "acknowledged_at", "acknowledged_at required when status is acknowledged"),
		requiredWhen("status", "scheduled", "scheduled_maintenance_date", "scheduled_maintenance_date required when status is scheduled"),
		requiredWhen("status", "completed", "completed_at", "completed_at required when status is completed"),
		schema.Predicate("expiry_window", []string{"expires_at", "created_at"}, func(_ schema.Env, r schema.Record) error {
			expires, _ := r.Time("expires_at")
			created, _ := r.Time("created_at")
			if !expires.After(created) {
				return errors.New("Expiration must be after creation")
			}
			if expires.Sub(created) > maxExpiry {
				return errors.New("Expiration cannot be more than 365 days after creation")
			}
			return nil
		}),
		updatedAfterCreated,
		unlessPatch(schema.Predicate("urgent_completeness", []string{"priority"}, func(_ schema.Env, r schema.Record) error {
			switch r.String("priority") {
			case "high", "urgent":
				if !r.Has("risk_assessment") {
					return errors.New("High/urgent priority predictions must include risk assessment")
				}
				if !r.Has("recommendation") {
					return errors.New("High/urgent priority predictions must include recommendations")
				}
			}
			return nil
		})),
	).Into(func() interface{} { return &Prediction{} })
}

func daysUntil(day, now time.Time) int {
	today := schema.Env{Now: now}.Today()
	return int(math.Round(day.Sub(today).Hours() / 24))
}

// Computed implements Computer.
func (p *Prediction) Computed(now time.Time) map[string]interface{} {
	out := map[string]interface{}{
		"days_until_failure":     nil,
		"days_until_maintenance": nil,
		"is_overdue":             false,
		"urgency_score":          p.UrgencyScore(now),
		"cost_risk_ratio":        nil,
		"age_days":               ageDays(p.CreatedAt, now),
	}
	if p.PredictedFailureDate != nil {
		out["days_until_failure"] = daysUntil(*p.PredictedFailureDate, now)
	}
	if p.PredictedMaintenanceDate != nil {
		days := daysUntil(*p.PredictedMaintenanceDate, now)
		out["days_until_maintenance"] = days
		out["is_overdue"] = days < 0
	}
	if p.Recommendation != nil && p.Recommendation.EstimatedCost != nil &&
		p.RiskAssessment != nil && p.RiskAssessment.FinancialImpact != nil && p.RiskAssessment.FinancialImpact.IsPositive() {
		out["cost_risk_ratio"] = p.Recommendation.EstimatedCost.Div(*p.RiskAssessment.FinancialImpact).InexactFloat64()
	}
	return out
}

// UrgencyScore blends risk score, time to failure and priority into [0, 1].
func (p *Prediction) UrgencyScore(now time.Time) float64 {
	var score float64
	if p.RiskAssessment != nil && p.RiskAssessment.OverallRiskScore != nil {
		score += *p.RiskAssessment.OverallRiskScore * 0.4
	}
	if p.PredictedFailureDate != nil {
		switch days := daysUntil(*p.PredictedFailureDate, now); {
		case days <= 7:
			score += 0.3
		case days <= 30:
			score += 0.2
		case days <= 90:
			score += 0.1
		}
	}
	switch p.Priority {
	case "urgent":
		score += 0.3
	case "high":
		score += 0.2
	case "medium":
		score += 0.1
	}
	return math.Min(1, score)
}
