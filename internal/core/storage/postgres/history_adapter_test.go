package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/stretchr/testify/require"
)

func sampleReport() *report.Report {
	schemaResult := report.NewResult("users", report.CategorySchema)
	schemaResult.AddError("Required field 'created_at' missing from schema")
	schemaResult.Duration = 250 * time.Millisecond

	freshResult := report.NewResult("users", report.CategoryFreshness)
	freshResult.AddWarning("Data is stale: 30.0h > 24h threshold")
	freshResult.Duration = 750 * time.Millisecond

	return report.Aggregate(report.Params{
		RunID:     "5b0c9a1e-6f0e-4c4e-8d63-6b1b4f0e2a10",
		Timestamp: time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC),
		Project:   "diagnostic-pro-start-up",
		Dataset:   dataset,
		Pattern:   "users",
		Tables:    []string{"users"},
		FailOn:    report.FailOnError,
	}, []*report.Result{schemaResult, freshResult})
}

func TestHistoryAdapter_SaveRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rep := sampleReport()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(querySaveRun)).
		WithArgs(
			rep.RunID,
			rep.Timestamp,
			"diagnostic-pro-start-up",
			dataset,
			"users",
			"error",
			1,
			2, 1, 1, 1, 1,
			1.0,
			nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare(regexp.QuoteMeta(querySaveResult))
	mock.ExpectExec(regexp.QuoteMeta(querySaveResult)).
		WithArgs(
			rep.RunID, "users", "schema_compliance", false,
			[]byte(`["Required field 'created_at' missing from schema"]`),
			[]byte(`[]`),
			sqlmock.AnyArg(),
			0.25,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(querySaveResult)).
		WithArgs(
			rep.RunID, "users", "freshness_sla", true,
			[]byte(`[]`),
			[]byte(`["Data is stale: 30.0h > 24h threshold"]`),
			sqlmock.AnyArg(),
			0.75,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewHistoryAdapter(db).SaveRun(context.Background(), rep))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryAdapter_SaveRunGeneratesID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rep := sampleReport()
	rep.RunID = ""
	rep.Results = nil

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(querySaveRun)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare(regexp.QuoteMeta(querySaveResult))
	mock.ExpectCommit()

	require.NoError(t, NewHistoryAdapter(db).SaveRun(context.Background(), rep))
	require.Len(t, rep.RunID, 36)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryAdapter_SaveRunRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(querySaveRun)).WillReturnError(errors.New("relation \"validation_runs\" does not exist"))
	mock.ExpectRollback()

	err = NewHistoryAdapter(db).SaveRun(context.Background(), sampleReport())
	require.ErrorContains(t, err, "save run: insert run")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryAdapter_CheckSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryHistoryTableExists)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err = NewHistoryAdapter(db).CheckSchema(context.Background())
	require.ErrorContains(t, err, "validation_runs table does not exist")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryAdapter_RecentRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	started := time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(queryRecentRuns)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{
			"run_id", "started_at", "project_id", "dataset_id", "tables_pattern", "fail_on",
			"exit_code", "total_checks", "passed_checks", "failed_checks",
			"total_warnings", "total_errors", "duration_seconds",
		}).AddRow("run-1", started, "p", dataset, "*", "warn", 2, 24, 24, 0, 3, 0, 1.25))

	runs, err := NewHistoryAdapter(db).RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, []RunSummary{{
		RunID:         "run-1",
		StartedAt:     started,
		Project:       "p",
		Dataset:       dataset,
		Pattern:       "*",
		FailOn:        "warn",
		ExitCode:      2,
		TotalChecks:   24,
		PassedChecks:  24,
		TotalWarnings: 3,
		Duration:      1.25,
	}}, runs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarshalResultJSON_KeepsMessagesReadable(t *testing.T) {
	errs, warnings, details, err := marshalResultJSON(
		nil,
		[]string{"Data is stale: 30.0h > 24h threshold", "a < b && c"},
		map[string]interface{}{"sla_category": "core_tables"},
	)
	require.NoError(t, err)
	require.Equal(t, `[]`, string(errs))
	require.Equal(t, `["Data is stale: 30.0h > 24h threshold","a < b && c"]`, string(warnings))
	require.Equal(t, `{"sla_category":"core_tables"}`, string(details))

	_, _, details, err = marshalResultJSON([]string{"x"}, nil, nil)
	require.NoError(t, err)
	require.Nil(t, details)
}
