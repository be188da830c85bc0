package storage

import (
	"context"
	"errors"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
)

// ErrNotFound is returned when a table does not exist in the dataset.
var ErrNotFound = errors.New("table not found")

// Column is one column of a live warehouse table, with its type mapped to the
// contract vocabulary (STRING, INT64, FLOAT64, NUMERIC, BOOL, TIMESTAMP, DATE, JSON).
type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Row is one result row keyed by column name.
type Row map[string]interface{}

// AggregateQuery is a named single-row query template. "{table}" in SQL is
// replaced by the quoted, qualified table name.
type AggregateQuery struct {
	Name string
	SQL  string
}

// TimestampAudit counts the rows violating timestamp sanity rules.
var TimestampAudit = AggregateQuery{
	Name: "timestamp_audit",
	SQL: `
		SELECT
			COUNT(*) AS total_rows,
			COUNT(CASE WHEN created_at IS NULL THEN 1 END) AS null_created_at,
			COUNT(CASE WHEN updated_at IS NULL THEN 1 END) AS null_updated_at,
			COUNT(CASE WHEN created_at > CURRENT_TIMESTAMP THEN 1 END) AS future_created_at,
			COUNT(CASE WHEN updated_at < created_at THEN 1 END) AS invalid_updated_at
		FROM {table}
	`,
}

// Freshness reads the most recent timestamps of a table.
var Freshness = AggregateQuery{
	Name: "freshness",
	SQL: `
		SELECT
			MAX(created_at) AS latest_created_at,
			MAX(updated_at) AS latest_updated_at,
			COUNT(*) AS total_rows
		FROM {table}
	`,
}

// DataWarehouse is the live dataset being validated.
type DataWarehouse interface {
	// ListTables returns the table names in dataset, sorted.
	ListTables(ctx context.Context, dataset string) ([]string, error)

	// GetTableSchema returns the columns of a table, or ErrNotFound.
	GetTableSchema(ctx context.Context, dataset, table string) ([]Column, error)

	// RunAggregateQuery runs a single-row query against one table.
	RunAggregateQuery(ctx context.Context, query AggregateQuery, dataset, table string) (Row, error)

	// SampleRows returns up to limit rows of a table.
	SampleRows(ctx context.Context, dataset, table string, limit int) ([]Row, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

// RunStore persists finished validation runs.
type RunStore interface {
	SaveRun(ctx context.Context, rep *report.Report) error
}
