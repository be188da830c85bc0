package postgres

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/lib/pq"
)

// qualifiedName quotes dataset and table for interpolation into a template.
func qualifiedName(dataset, table string) string {
	if dataset == "" {
		return pq.QuoteIdentifier(table)
	}
	return pq.QuoteIdentifier(dataset) + "." + pq.QuoteIdentifier(table)
}

// render replaces {table} in a query template.
func render(template, dataset, table string) string {
	return strings.ReplaceAll(template, "{table}", qualifiedName(dataset, table))
}

// warehouseType maps information_schema.columns types onto the contract
// vocabulary. Unknown types are returned upper-cased so mismatches stay visible.
func warehouseType(dataType, udtName string) string {
	switch strings.ToLower(dataType) {
	case "character varying", "character", "text", "uuid", "citext", "name":
		return schema.TypeString
	case "smallint", "integer", "bigint":
		return schema.TypeInt64
	case "real", "double precision":
		return schema.TypeFloat64
	case "numeric", "decimal", "money":
		return schema.TypeNumeric
	case "boolean":
		return schema.TypeBool
	case "timestamp with time zone", "timestamp without time zone":
		return schema.TypeTimestamp
	case "date":
		return schema.TypeDate
	case "json", "jsonb", "array":
		return schema.TypeJSON
	case "user-defined":
		if udtName == "citext" {
			return schema.TypeString
		}
	}
	return strings.ToUpper(dataType)
}

// scanRows reads every row of rows into a column-keyed map.
// NUMERIC values arrive as text and are kept as strings; JSON columns are decoded.
func scanRows(rows *sql.Rows) ([]storage.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	dbTypes := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}

	var out []storage.Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(storage.Row, len(columns))
		for i, col := range columns {
			v, err := normalize(values[i], dbTypes[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func normalize(v interface{}, dbType string) (interface{}, error) {
	raw, ok := v.([]byte)
	if !ok {
		return v, nil
	}
	if dbType == "JSON" || dbType == "JSONB" {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("failed to unmarshal json: %w", err)
		}
		return decoded, nil
	}
	return string(raw), nil
}

// marshalResultJSON marshals the message lists and details of one result.
// Nil details produce nil (SQL NULL) rather than JSON "null".
func marshalResultJSON(errs, warnings []string, details map[string]interface{}) (errorsJSON, warningsJSON, detailsJSON []byte, err error) {
	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	if errorsJSON, err = encodeJSON(errs); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal errors: %w", err)
	}
	if warningsJSON, err = encodeJSON(warnings); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal warnings: %w", err)
	}
	if len(details) > 0 {
		if detailsJSON, err = encodeJSON(details); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal details: %w", err)
		}
	}
	return errorsJSON, warningsJSON, detailsJSON, nil
}

// encodeJSON marshals v without HTML escaping so stored messages keep
// characters such as '>' readable.
func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
