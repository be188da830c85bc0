package entities_test

import (
	"testing"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/stretchr/testify/require"
)

func predictionRecord() map[string]interface{} {
	return map[string]interface{}{
		"prediction_id":              otherID,
		"prediction_date":            "2025-09-16",
		"equipment_id":               equipmentID,
		"prediction_type":            "failure_prediction",
		"predicted_failure_date":     "2025-10-16",
		"predicted_maintenance_date": "2025-10-01",
		"risk_assessment": map[string]interface{}{
			"overall_risk_score": 0.5,
			"risk_level":         "medium",
			"financial_impact":   "8000",
		},
		"recommendation": map[string]interface{}{
			"action":         "replace",
			"description":    "Replace ignition coil on cylinder 1",
			"estimated_cost": "400",
		},
	}
}

func TestCheckRiskBand(t *testing.T) {
	tests := []struct {
		level string
		score float64
		ok    bool
	}{
		{level: "low", score: 0.3, ok: true},
		{level: "medium", score: 0.2, ok: true},
		{level: "high", score: 0.9, ok: true},
		{level: "critical", score: 0.8, ok: true},
		{level: "low", score: 0.31},
		{level: "critical", score: 0.5},
	}

	for _, tt := range tests {
		err := entities.CheckRiskBand(tt.level, tt.score)
		if tt.ok {
			require.NoError(t, err, "%s %v", tt.level, tt.score)
		} else {
			require.Error(t, err, "%s %v", tt.level, tt.score)
		}
	}
	require.EqualError(t, entities.CheckRiskBand("low", 0.95), "Risk score 0.95 inconsistent with risk level low")
}

func TestPrediction_Valid(t *testing.T) {
	out, err := validate(t, entities.MaintenancePredictions, schema.OpBase, predictionRecord())
	require.NoError(t, err)
	require.Empty(t, out.Warnings)

	p := out.Value.(*entities.Prediction)
	require.Equal(t, "active", p.Status)
	require.Equal(t, "USD", *p.Recommendation.CurrencyCode)

	computed := entities.Computed(p, fixedNow)
	require.Equal(t, 29, computed["days_until_failure"])
	require.Equal(t, 14, computed["days_until_maintenance"])
	require.Equal(t, false, computed["is_overdue"])
	require.InDelta(t, 0.5, computed["urgency_score"], 1e-9)
	require.InDelta(t, 0.05, computed["cost_risk_ratio"], 1e-9)
	require.Equal(t, 0, computed["age_days"])
}

func TestPrediction_FinancialFloorWarns(t *testing.T) {
	rec := predictionRecord()
	rec["risk_assessment"].(map[string]interface{})["financial_impact"] = "500"

	out, err := validate(t, entities.MaintenancePredictions, schema.OpBase, rec)
	require.NoError(t, err)
	require.Equal(t, []string{"risk_assessment: Financial impact 500 below typical minimum 5000 for medium risk"}, out.Warnings)
}

func TestPrediction_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		want   []string
	}{
		{
			name: "risk band mismatch",
			mutate: func(r map[string]interface{}) {
				r["risk_assessment"] = map[string]interface{}{"overall_risk_score": 0.95, "risk_level": "low"}
			},
			want: []string{"risk_assessment: Risk score 0.95 inconsistent with risk level low"},
		},
		{
			name:   "failure on prediction date",
			mutate: func(r map[string]interface{}) { r["predicted_failure_date"] = "2025-09-16" },
			want: []string{
				"Predicted failure date must be after prediction date",
				"Predicted maintenance date should be before predicted failure date",
			},
		},
		{
			name:   "acknowledged without timestamp",
			mutate: func(r map[string]interface{}) { r["status"] = "acknowledged" },
			want:   []string{"acknowledged_at required when status is acknowledged"},
		},
		{
			name:   "scheduled without date",
			mutate: func(r map[string]interface{}) { r["status"] = "scheduled" },
			want:   []string{"scheduled_maintenance_date required when status is scheduled"},
		},
		{
			name:   "expiry beyond a year",
			mutate: func(r map[string]interface{}) { r["expires_at"] = "2026-10-01T00:00:00Z" },
			want:   []string{"Expiration cannot be more than 365 days after creation"},
		},
		{
			name:   "expiry before creation",
			mutate: func(r map[string]interface{}) { r["expires_at"] = "2025-09-01T00:00:00Z" },
			want:   []string{"Expiration must be after creation"},
		},
		{
			name: "urgent without recommendation",
			mutate: func(r map[string]interface{}) {
				r["priority"] = "urgent"
				delete(r, "recommendation")
			},
			want: []string{"High/urgent priority predictions must include recommendations"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := predictionRecord()
			tt.mutate(rec)
			require.Equal(t, tt.want, violations(t, entities.MaintenancePredictions, schema.OpBase, rec))
		})
	}
}

func TestPrediction_CreateDefaultsPredictionDate(t *testing.T) {
	rec := predictionRecord()
	delete(rec, "prediction_id")
	delete(rec, "prediction_date")
	rec["predicted_failure_date"] = "2025-10-16"

	out, err := validate(t, entities.MaintenancePredictions, schema.OpCreate, rec)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC), out.Record["prediction_date"])
	require.Len(t, out.Record.String("prediction_id"), 36)
}
