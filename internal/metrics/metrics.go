package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for validation runs and record checks.
// Every method is safe on a nil receiver so callers never guard.
type Metrics struct {
	// Check outcomes by category (pass | warn | fail)
	Checks *prometheus.CounterVec

	// Check latency by category
	CheckDuration *prometheus.HistogramVec

	// Completed runs by exit code
	Runs *prometheus.CounterVec

	// Record validations by entity, operation and outcome (valid | invalid)
	RecordValidations *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dpvalidate_checks_total",
			Help: "Validation checks by category and outcome",
		}, []string{"category", "outcome"}),

		CheckDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dpvalidate_check_duration_seconds",
			Help:    "Duration of one validation check including warehouse queries",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"category"}),

		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dpvalidate_runs_total",
			Help: "Completed validation runs by exit code",
		}, []string{"exit"}),

		RecordValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dpvalidate_record_validations_total",
			Help: "Record contract validations by entity, operation and outcome",
		}, []string{"entity", "operation", "outcome"}),
	}
}

// ObserveCheck records one finished check.
func (m *Metrics) ObserveCheck(category, outcome string, d time.Duration) {
	if m != nil {
		m.Checks.WithLabelValues(category, outcome).Inc()
		m.CheckDuration.WithLabelValues(category).Observe(d.Seconds())
	}
}

// IncrementRun records a completed run.
func (m *Metrics) IncrementRun(exitCode int) {
	if m != nil {
		m.Runs.WithLabelValues(strconv.Itoa(exitCode)).Inc()
	}
}

// IncrementRecordValidation records one record validation.
func (m *Metrics) IncrementRecordValidation(entity, operation string, valid bool) {
	if m != nil {
		outcome := "invalid"
		if valid {
			outcome = "valid"
		}
		m.RecordValidations.WithLabelValues(entity, operation, outcome).Inc()
	}
}
