package report

import (
	"fmt"
	"time"
)

// ExitCode is the automation-facing outcome of a run.
type ExitCode int

const (
	ExitSuccess     ExitCode = 0
	ExitHardFailure ExitCode = 1
	ExitSoftFailure ExitCode = 2
)

func (c ExitCode) String() string {
	switch c {
	case ExitSuccess:
		return "success"
	case ExitHardFailure:
		return "hard_failure"
	case ExitSoftFailure:
		return "soft_failure"
	default:
		return fmt.Sprintf("exit_%d", int(c))
	}
}

// FailOn decides whether warnings alone fail a run.
type FailOn string

const (
	FailOnError FailOn = "error"
	FailOnWarn  FailOn = "warn"
)

// ParseFailOn validates a fail_on policy string.
func ParseFailOn(s string) (FailOn, error) {
	switch FailOn(s) {
	case FailOnError, FailOnWarn:
		return FailOn(s), nil
	case "":
		return FailOnError, nil
	default:
		return "", fmt.Errorf("invalid fail_on %q (must be warn or error)", s)
	}
}

// Summary holds the run-wide counters.
type Summary struct {
	TotalChecks   int    `json:"total_checks"`
	PassedChecks  int    `json:"passed_checks"`
	FailedChecks  int    `json:"failed_checks"`
	TotalWarnings int    `json:"total_warnings"`
	TotalErrors   int    `json:"total_errors"`
	SuccessRate   string `json:"success_rate"`
}

// CategoryCounts are the per-category counters.
type CategoryCounts struct {
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Warnings int `json:"warnings"`
}

// Report is the aggregated outcome of one run.
type Report struct {
	RunID      string                       `json:"run_id,omitempty"`
	Timestamp  time.Time                    `json:"timestamp"`
	Project    string                       `json:"project_id"`
	Dataset    string                       `json:"dataset_id"`
	Pattern    string                       `json:"tables_pattern"`
	Tables     []string                     `json:"tables"`
	FailOn     FailOn                       `json:"fail_on"`
	ExitCode   ExitCode                     `json:"exit_code"`
	Error      string                       `json:"error,omitempty"`
	Warnings   []string                     `json:"configuration_warnings,omitempty"`
	Summary    Summary                      `json:"summary"`
	ByCategory map[Category]*CategoryCounts `json:"by_category"`
	Results    []*Result                    `json:"results"`

	// Duration is the summed check time; TotalDuration mirrors it in seconds.
	Duration      time.Duration `json:"-"`
	TotalDuration float64       `json:"total_duration"`
}

// Params describes the run being aggregated.
type Params struct {
	RunID     string
	Timestamp time.Time
	Project   string
	Dataset   string
	Pattern   string
	Tables    []string
	FailOn    FailOn

	// Warnings are configuration warnings raised before any table ran.
	Warnings []string

	// Err is a run-level failure (no matching tables, warehouse unusable).
	Err error
}

// Aggregate folds results into a report and decides the exit code.
func Aggregate(p Params, results []*Result) *Report {
	r := &Report{
		RunID:      p.RunID,
		Timestamp:  p.Timestamp,
		Project:    p.Project,
		Dataset:    p.Dataset,
		Pattern:    p.Pattern,
		Tables:     p.Tables,
		FailOn:     p.FailOn,
		Warnings:   p.Warnings,
		ByCategory: make(map[Category]*CategoryCounts),
		Results:    results,
	}
	if r.Tables == nil {
		r.Tables = []string{}
	}
	if r.Results == nil {
		r.Results = []*Result{}
	}
	if p.Err != nil {
		r.Error = p.Err.Error()
	}

	for _, res := range results {
		r.Summary.TotalChecks++
		r.Summary.TotalWarnings += len(res.Warnings)
		r.Summary.TotalErrors += len(res.Errors)
		r.Duration += res.Duration

		counts, ok := r.ByCategory[res.Category]
		if !ok {
			counts = &CategoryCounts{}
			r.ByCategory[res.Category] = counts
		}
		if res.Passed {
			r.Summary.PassedChecks++
			counts.Passed++
		} else {
			r.Summary.FailedChecks++
			counts.Failed++
		}
		counts.Warnings += len(res.Warnings)
	}

	r.TotalDuration = r.Duration.Seconds()

	r.Summary.SuccessRate = "0%"
	if r.Summary.TotalChecks > 0 {
		r.Summary.SuccessRate = fmt.Sprintf("%.1f%%", float64(r.Summary.PassedChecks)/float64(r.Summary.TotalChecks)*100)
	}

	r.ExitCode = DetermineExitCode(results, len(p.Tables), p.FailOn)
	if p.Err != nil {
		r.ExitCode = ExitHardFailure
	}
	return r
}

// DetermineExitCode applies the exit policy. Zero resolved tables is a hard
// failure regardless of the results.
func DetermineExitCode(results []*Result, tables int, failOn FailOn) ExitCode {
	if tables == 0 {
		return ExitHardFailure
	}

	hasWarnings := false
	for _, res := range results {
		if !res.Passed {
			return ExitHardFailure
		}
		if len(res.Warnings) > 0 {
			hasWarnings = true
		}
	}

	if failOn == FailOnWarn && hasWarnings {
		return ExitSoftFailure
	}
	return ExitSuccess
}

// Failures returns the results that did not pass.
func (r *Report) Failures() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// WithWarnings returns the results carrying at least one warning.
func (r *Report) WithWarnings() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if len(res.Warnings) > 0 {
			out = append(out, res)
		}
	}
	return out
}
