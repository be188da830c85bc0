package report

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	coreerrors "github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/errors"
)

// Category names one check stage.
type Category string

const (
	CategorySchema      Category = "schema_compliance"
	CategoryConstraints Category = "data_constraints"
	CategoryFreshness   Category = "freshness_sla"
	CategoryRecords     Category = "record_contracts"
)

// Categories lists the stages in report order.
var Categories = []Category{CategorySchema, CategoryConstraints, CategoryFreshness, CategoryRecords}

func (c Category) rank() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return len(Categories)
}

// Result is the outcome of one (table, category) check.
// Passed flips to false on the first hard error and never back.
type Result struct {
	Name     string                 `json:"name"`
	Category Category               `json:"category"`
	Passed   bool                   `json:"passed"`
	Errors   []string               `json:"errors"`
	Warnings []string               `json:"warnings"`
	Details  map[string]interface{} `json:"details"`
	Duration time.Duration          `json:"-"`
}

// NewResult creates a passing result with no messages.
func NewResult(name string, category Category) *Result {
	return &Result{
		Name:     name,
		Category: category,
		Passed:   true,
		Errors:   []string{},
		Warnings: []string{},
		Details:  map[string]interface{}{},
	}
}

// AddError appends a hard error and fails the result.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Passed = false
}

// AddWarning appends a non-blocking warning.
func (r *Result) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Add routes a finding by its severity.
func (r *Result) Add(f coreerrors.Finding) {
	if f.Hard() {
		r.AddError(f.Message)
		return
	}
	r.AddWarning(f.Message)
}

// Outcome is pass, warn or fail.
func (r *Result) Outcome() string {
	switch {
	case !r.Passed:
		return "fail"
	case len(r.Warnings) > 0:
		return "warn"
	default:
		return "pass"
	}
}

// MarshalJSON reports the duration in seconds.
func (r *Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		*alias
		Duration float64 `json:"duration"`
	}{
		alias:    (*alias)(r),
		Duration: r.Duration.Seconds(),
	})
}

// Collector accumulates results from concurrent checks.
type Collector struct {
	mu      sync.Mutex
	results []*Result
}

// Add appends a result. Safe for concurrent use.
func (c *Collector) Add(r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// Results returns the collected results ordered by table, then stage.
func (c *Collector) Results() []*Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Result, len(c.results))
	copy(out, c.results)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Category.rank() < out[j].Category.rank()
	})
	return out
}
