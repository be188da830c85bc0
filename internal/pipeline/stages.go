package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	coreerrors "github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/errors"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/rules"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/spf13/cast"
)

// maxRowViolations caps the per-row messages of the sampling stage.
const maxRowViolations = 20

type stage struct {
	category report.Category
	run      func(ctx context.Context, table string, res *report.Result)
}

func (r *Runner) stagesFor(table string) []stage {
	stages := []stage{
		{category: report.CategorySchema, run: r.checkSchema},
		{category: report.CategoryConstraints, run: r.checkConstraints},
		{category: report.CategoryFreshness, run: r.checkFreshness},
	}
	if r.opts.SampleRows > 0 {
		if _, err := entities.ParseEntity(table); err == nil {
			stages = append(stages, stage{category: report.CategoryRecords, run: r.checkRecords})
		}
	}
	return stages
}

// checkSchema compares the live columns of table with its table contract.
func (r *Runner) checkSchema(ctx context.Context, table string, res *report.Result) {
	contract, err := r.registry.TableContract(table)
	if err != nil {
		if errors.Is(err, schema.ErrNotFound) {
			res.Add(coreerrors.Newf(coreerrors.ConfigurationGap, "No schema contract defined for %s", table))
			return
		}
		res.Add(coreerrors.Newf(coreerrors.ConfigurationGap, "Schema validation failed: %v", err))
		return
	}

	qctx, cancel := r.queryContext(ctx)
	defer cancel()

	columns, err := r.warehouse.GetTableSchema(qctx, r.opts.Dataset, table)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			res.Add(coreerrors.Newf(coreerrors.SchemaMismatch, "Table %s not found in dataset %s", table, r.opts.Dataset))
			return
		}
		res.Add(coreerrors.Newf(coreerrors.WarehouseUnavailable, "Schema validation failed: %s", r.describeQueryError(err)))
		return
	}

	actual := make(map[string]string, len(columns))
	for _, col := range columns {
		actual[col.Name] = col.Type
	}

	for _, field := range contract.RequiredFields {
		if _, ok := actual[field]; !ok {
			res.Add(coreerrors.Newf(coreerrors.SchemaMismatch, "Required field '%s' missing from schema", field))
		}
	}

	declared := make([]string, 0, len(contract.Fields))
	for name := range contract.Fields {
		declared = append(declared, name)
	}
	sort.Strings(declared)

	for _, name := range declared {
		expected := contract.ExpectedType(name)
		got, ok := actual[name]
		if !ok || expected == "" {
			continue
		}
		if !sameType(expected, got) {
			res.Add(coreerrors.Newf(coreerrors.SchemaMismatch, "Field '%s' type mismatch: expected %s, got %s", name, expected, got))
		}
	}

	res.Details["table_schema"] = map[string]interface{}{
		"field_count":             len(columns),
		"required_fields_checked": len(contract.RequiredFields),
		"contract_fields_checked": len(contract.Fields),
		"contract_source":         contract.Source,
	}
}

// sameType compares types after folding aliases; unknown names compare
// case-insensitively.
func sameType(expected, actual string) bool {
	e, eok := schema.CanonicalType(expected)
	a, aok := schema.CanonicalType(actual)
	if eok && aok {
		return e == a
	}
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(actual))
}

// checkConstraints applies the effective quality rules of table. Timestamp
// rules are checked with one aggregate query.
func (r *Runner) checkConstraints(ctx context.Context, table string, res *report.Result) {
	ruleSet := r.catalog.EffectiveRules(table)
	if ruleSet.Empty() {
		res.Add(coreerrors.Newf(coreerrors.ConfigurationGap, "No data quality rules defined for %s", table))
		return
	}

	if patterns := ruleSet.PatternNames(); len(patterns) > 0 {
		res.Details["patterns"] = patterns
	}
	if len(ruleSet.Timestamps) == 0 {
		return
	}

	qctx, cancel := r.queryContext(ctx)
	defer cancel()

	row, err := r.warehouse.RunAggregateQuery(qctx, storage.TimestampAudit, r.opts.Dataset, table)
	if err != nil {
		slog.Warn("[Pipeline] Timestamp audit failed", "table", table, "error", err)
		res.Add(coreerrors.Newf(coreerrors.WarehouseUnavailable, "Could not validate timestamps: %s", r.describeQueryError(err)))
		return
	}

	counts := map[string]int64{}
	for _, key := range []string{"total_rows", "null_created_at", "null_updated_at", "future_created_at", "invalid_updated_at"} {
		counts[key] = count(row, key)
	}

	if ruleSet.TimestampRule(rules.RuleCreatedAtRequired, true) && counts["null_created_at"] > 0 {
		res.Add(coreerrors.Newf(coreerrors.ConstraintViolation, "Found %d rows with NULL created_at", counts["null_created_at"]))
	}
	if ruleSet.TimestampRule(rules.RuleUpdatedAtRequired, false) && counts["null_updated_at"] > 0 {
		res.Add(coreerrors.Newf(coreerrors.ConstraintViolation, "Found %d rows with NULL updated_at", counts["null_updated_at"]))
	}
	if ruleSet.TimestampRule(rules.RuleNoFutureTimestamps, true) && counts["future_created_at"] > 0 {
		res.Add(coreerrors.Newf(coreerrors.ConstraintViolation, "Found %d rows with future created_at", counts["future_created_at"]))
	}
	if ruleSet.TimestampRule(rules.RuleUpdatedAfterCreated, true) && counts["invalid_updated_at"] > 0 {
		res.Add(coreerrors.Newf(coreerrors.ConstraintViolation, "Found %d rows with updated_at < created_at", counts["invalid_updated_at"]))
	}

	res.Details["timestamp_validation"] = map[string]interface{}{
		"total_rows_checked": counts["total_rows"],
		"null_created_at":    counts["null_created_at"],
		"null_updated_at":    counts["null_updated_at"],
		"future_created_at":  counts["future_created_at"],
		"invalid_updated_at": counts["invalid_updated_at"],
	}
}

// count reads an integer column; NULL and unparsable values count as zero.
func count(row storage.Row, key string) int64 {
	n, err := cast.ToInt64E(row[key])
	if err != nil {
		return 0
	}
	return n
}

// checkFreshness compares the age of the newest row of table with its SLA.
func (r *Runner) checkFreshness(ctx context.Context, table string, res *report.Result) {
	sla, err := r.catalog.SLAFor(table)
	if err != nil {
		if errors.Is(err, rules.ErrNoSLA) {
			res.Add(coreerrors.Newf(coreerrors.ConfigurationGap, "No SLA configuration found for %s", table))
			return
		}
		res.Add(coreerrors.Newf(coreerrors.ConfigurationGap, "Freshness validation failed: %v", err))
		return
	}

	qctx, cancel := r.queryContext(ctx)
	defer cancel()

	row, err := r.warehouse.RunAggregateQuery(qctx, storage.Freshness, r.opts.Dataset, table)
	if err != nil {
		slog.Warn("[Pipeline] Freshness query failed", "table", table, "error", err)
		res.Add(coreerrors.Newf(coreerrors.WarehouseUnavailable, "Could not check freshness: %s", r.describeQueryError(err)))
		return
	}

	total := count(row, "total_rows")
	if total == 0 {
		res.Add(coreerrors.Newf(coreerrors.SLABreach, "Table %s is empty", table))
		return
	}

	latest, ok := latestTimestamp(row)
	if !ok {
		res.Add(coreerrors.Newf(coreerrors.SLABreach, "No timestamp data found for freshness check"))
		return
	}

	staleness := r.now().Sub(latest)
	stalenessHours := staleness.Hours()
	maxHours := sla.MaxStaleness.Hours()
	lateHours := sla.LateArrivalThreshold.Hours()

	res.Details["freshness_check"] = map[string]interface{}{
		"latest_timestamp":  latest.Format(time.RFC3339),
		"staleness_hours":   math.Round(stalenessHours*100) / 100,
		"max_allowed_hours": maxHours,
		"sla_category":      sla.Category,
		"total_rows":        total,
	}

	switch {
	case staleness > sla.MaxStaleness:
		res.Add(coreerrors.Newf(coreerrors.SLABreach, "Data is stale: %.1fh > %gh threshold", stalenessHours, maxHours))
	case staleness > sla.LateArrivalThreshold:
		res.Add(coreerrors.Newf(coreerrors.SLABreach, "Data approaching staleness: %.1fh > %gh late threshold", stalenessHours, lateHours))
	}
}

// latestTimestamp returns the more recent of latest_updated_at and
// latest_created_at, whichever are present.
func latestTimestamp(row storage.Row) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, key := range []string{"latest_updated_at", "latest_created_at"} {
		raw, ok := row[key]
		if !ok || raw == nil {
			continue
		}
		t, err := cast.ToTimeE(raw)
		if err != nil || t.IsZero() {
			continue
		}
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	return latest.UTC(), found
}

// checkRecords samples rows of an entity table and validates each against
// the base entity contract.
func (r *Runner) checkRecords(ctx context.Context, table string, res *report.Result) {
	contract, err := r.registry.ContractFor(table, schema.OpBase)
	if err != nil {
		res.Add(coreerrors.Newf(coreerrors.ConfigurationGap, "No record contract defined for %s", table))
		return
	}

	qctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.warehouse.SampleRows(qctx, r.opts.Dataset, table, r.opts.SampleRows)
	if err != nil {
		res.Add(coreerrors.Newf(coreerrors.WarehouseUnavailable, "Could not sample rows: %s", r.describeQueryError(err)))
		return
	}

	rejected, reported, suppressed := 0, 0, 0
	for i, row := range rows {
		_, err := r.engine.Validate(contract, row)
		r.metrics.IncrementRecordValidation(table, string(schema.OpBase), err == nil)
		if err == nil {
			continue
		}
		rejected++

		for _, msg := range violationMessages(err) {
			if reported >= maxRowViolations {
				suppressed++
				continue
			}
			res.Add(coreerrors.Newf(coreerrors.ContractViolation, "Row %d: %s", i+1, msg))
			reported++
		}
	}
	if suppressed > 0 {
		res.Add(coreerrors.Newf(coreerrors.ContractViolation, "%d more violations not shown (%d of %d sampled rows rejected)", suppressed, rejected, len(rows)))
	}

	res.Details["record_sampling"] = map[string]interface{}{
		"rows_sampled":  len(rows),
		"rows_rejected": rejected,
		"contract":      contract.Name,
	}
}

func violationMessages(err error) []string {
	var multi *schema.MultiValidationError
	if errors.As(err, &multi) {
		return multi.Messages()
	}
	var single *schema.ValidationError
	if errors.As(err, &single) {
		return []string{single.Short()}
	}
	return []string{fmt.Sprintf("%v", err)}
}
