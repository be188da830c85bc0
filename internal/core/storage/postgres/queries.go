package postgres

// SQL queries for warehouse introspection and validation run history

const (
	// queryListTables lists base tables and views of one schema (the dataset).
	queryListTables = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name ASC
	`

	// queryTableColumns returns the declared columns of one table in ordinal order.
	// udt_name distinguishes json from jsonb and names array element types.
	queryTableColumns = `
		SELECT column_name, data_type, udt_name
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position ASC
	`

	// querySampleRows is rendered like an aggregate template.
	querySampleRows = `SELECT * FROM {table} LIMIT $1`

	// queryHistoryTableExists guards against writing history before migrations ran.
	queryHistoryTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'validation_runs'
		)
	`

	querySaveRun = `
		INSERT INTO validation_runs (
			run_id, started_at, project_id, dataset_id, tables_pattern, fail_on,
			exit_code, total_checks, passed_checks, failed_checks,
			total_warnings, total_errors, duration_seconds, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	querySaveResult = `
		INSERT INTO validation_results (
			run_id, table_name, category, passed, errors, warnings, details, duration_seconds
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	// queryRecentRuns returns the latest runs, newest first.
	queryRecentRuns = `
		SELECT
			run_id, started_at, project_id, dataset_id, tables_pattern, fail_on,
			exit_code, total_checks, passed_checks, failed_checks,
			total_warnings, total_errors, duration_seconds
		FROM validation_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
)
