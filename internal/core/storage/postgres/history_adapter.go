package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
)

// HistoryAdapter implements storage.RunStore using PostgreSQL.
// A run and all of its results are written in one transaction.
type HistoryAdapter struct {
	db *sql.DB
}

// NewHistoryAdapter creates a HistoryAdapter sharing the given connection.
func NewHistoryAdapter(db *sql.DB) *HistoryAdapter {
	return &HistoryAdapter{db: db}
}

// CheckSchema returns an error when the history tables are missing.
func (a *HistoryAdapter) CheckSchema(ctx context.Context) error {
	var exists bool
	if err := a.db.QueryRowContext(ctx, queryHistoryTableExists).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validation_runs table does not exist")
	}
	return nil
}

// SaveRun persists rep and its results. A missing RunID is generated and
// written back to rep.
func (a *HistoryAdapter) SaveRun(ctx context.Context, rep *report.Report) error {
	if rep.RunID == "" {
		rep.RunID = uuid.NewString()
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var runErr interface{}
	if rep.Error != "" {
		runErr = rep.Error
	}
	s := rep.Summary
	if _, err := tx.ExecContext(ctx, querySaveRun,
		rep.RunID,
		rep.Timestamp,
		rep.Project,
		rep.Dataset,
		rep.Pattern,
		string(rep.FailOn),
		int(rep.ExitCode),
		s.TotalChecks,
		s.PassedChecks,
		s.FailedChecks,
		s.TotalWarnings,
		s.TotalErrors,
		rep.Duration.Seconds(),
		runErr,
	); err != nil {
		return fmt.Errorf("save run: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, querySaveResult)
	if err != nil {
		return fmt.Errorf("save run: prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range rep.Results {
		errorsJSON, warningsJSON, detailsJSON, err := marshalResultJSON(res.Errors, res.Warnings, res.Details)
		if err != nil {
			return fmt.Errorf("save run: %s/%s: %w", res.Name, res.Category, err)
		}
		if _, err := stmt.ExecContext(ctx,
			rep.RunID,
			res.Name,
			string(res.Category),
			res.Passed,
			errorsJSON,
			warningsJSON,
			detailsJSON,
			res.Duration.Seconds(),
		); err != nil {
			return fmt.Errorf("save run: insert result %s/%s: %w", res.Name, res.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit: %w", err)
	}

	slog.Info("[HistoryAdapter] Saved run",
		"run_id", rep.RunID,
		"results", len(rep.Results),
		"exit_code", int(rep.ExitCode))
	return nil
}

// RunSummary is one row of validation_runs.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	Project       string    `json:"project_id"`
	Dataset       string    `json:"dataset_id"`
	Pattern       string    `json:"tables_pattern"`
	FailOn        string    `json:"fail_on"`
	ExitCode      int       `json:"exit_code"`
	TotalChecks   int       `json:"total_checks"`
	PassedChecks  int       `json:"passed_checks"`
	FailedChecks  int       `json:"failed_checks"`
	TotalWarnings int       `json:"total_warnings"`
	TotalErrors   int       `json:"total_errors"`
	Duration      float64   `json:"duration_seconds"`
}

// RecentRuns returns up to limit runs, newest first.
func (a *HistoryAdapter) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := a.db.QueryContext(ctx, queryRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(
			&r.RunID,
			&r.StartedAt,
			&r.Project,
			&r.Dataset,
			&r.Pattern,
			&r.FailOn,
			&r.ExitCode,
			&r.TotalChecks,
			&r.PassedChecks,
			&r.FailedChecks,
			&r.TotalWarnings,
			&r.TotalErrors,
			&r.Duration,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
