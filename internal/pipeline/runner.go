// Package pipeline checks warehouse tables against table contracts, quality
// rules and freshness SLAs, and folds the outcomes into a report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	coreerrors "github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/errors"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/metrics"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/rules"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency  = 4
	defaultQueryTimeout = 30 * time.Second
	saveRunTimeout      = 30 * time.Second
)

// Options controls one pipeline run.
type Options struct {
	Project string
	Dataset string
	Tables  string
	FailOn  report.FailOn

	// Concurrency bounds the tables checked at once.
	Concurrency int
	// StageConcurrency runs the stages of one table in parallel.
	StageConcurrency bool
	// QueryTimeout bounds every warehouse call; expiry degrades to a warning.
	QueryTimeout time.Duration
	// SampleRows enables record-contract sampling when > 0.
	SampleRows int
}

func (o Options) normalized() Options {
	n := o
	if n.Concurrency <= 0 {
		n.Concurrency = defaultConcurrency
	}
	if n.QueryTimeout <= 0 {
		n.QueryTimeout = defaultQueryTimeout
	}
	if n.Tables == "" {
		n.Tables = AllTables
	}
	if n.FailOn == "" {
		n.FailOn = report.FailOnError
	}
	return n
}

// Runner executes validation runs. A Runner holds no per-run state and may
// be reused, e.g. by the scheduler.
type Runner struct {
	warehouse storage.DataWarehouse
	registry  *schema.Registry
	catalog   *rules.Catalog
	engine    *schema.Engine
	metrics   *metrics.Metrics
	store     storage.RunStore
	warnings  []string
	opts      Options
	nowFn     func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock injects the time source used for staleness and report timestamps.
func WithClock(fn func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.nowFn = fn
	}
}

// WithMetrics records check and run metrics.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithRunStore persists every finished run.
func WithRunStore(s storage.RunStore) RunnerOption {
	return func(r *Runner) {
		r.store = s
	}
}

// WithEngine sets the engine used for record-contract sampling.
func WithEngine(e *schema.Engine) RunnerOption {
	return func(r *Runner) {
		r.engine = e
	}
}

// WithConfigWarnings attaches warnings raised while loading documents.
// They are reported with every run.
func WithConfigWarnings(warnings []string) RunnerOption {
	return func(r *Runner) {
		r.warnings = append(r.warnings, warnings...)
	}
}

// NewRunner creates a runner. A nil catalog behaves as an empty one.
func NewRunner(wh storage.DataWarehouse, registry *schema.Registry, catalog *rules.Catalog, opts Options, options ...RunnerOption) *Runner {
	if catalog == nil {
		catalog = rules.NewCatalog(rules.RuleSet{}, nil)
	}
	if registry == nil {
		registry = schema.NewRegistry(nil)
	}
	r := &Runner{
		warehouse: wh,
		registry:  registry,
		catalog:   catalog,
		opts:      opts.normalized(),
		nowFn:     time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.engine == nil {
		r.engine = schema.NewEngine(schema.WithClock(r.nowFn))
	}
	return r
}

// Options returns the normalised run options.
func (r *Runner) Options() Options {
	return r.opts
}

func (r *Runner) now() time.Time {
	return r.nowFn().UTC()
}

// Run validates every table matching the configured pattern. It never
// returns an error: failures are part of the report and its exit code.
//
// Cancelling ctx stops new table checks; checks already running finish or
// hit their query timeout.
func (r *Runner) Run(ctx context.Context) *report.Report {
	started := r.now()
	runID := uuid.NewString()
	warnings := append([]string(nil), r.warnings...)

	slog.Info("[Pipeline] Starting validation run",
		"run_id", runID,
		"project", r.opts.Project,
		"dataset", r.opts.Dataset,
		"tables", r.opts.Tables,
		"fail_on", r.opts.FailOn,
		"concurrency", r.opts.Concurrency)

	params := report.Params{
		RunID:     runID,
		Timestamp: started,
		Project:   r.opts.Project,
		Dataset:   r.opts.Dataset,
		Pattern:   r.opts.Tables,
		FailOn:    r.opts.FailOn,
	}

	listCtx, cancel := context.WithTimeout(ctx, r.opts.QueryTimeout)
	tables, err := ResolveTables(listCtx, r.warehouse, r.opts.Dataset, r.opts.Tables)
	cancel()
	if err != nil {
		slog.Warn("[Pipeline] Could not list tables", "dataset", r.opts.Dataset, "error", err)
		warnings = append(warnings, coreerrors.Newf(coreerrors.WarehouseUnavailable, "Could not list tables: %v", err).Message)
	}

	if len(tables) == 0 {
		finding := coreerrors.Newf(coreerrors.NoMatchingTables, "No matching tables found")
		slog.Error("[Pipeline] No matching tables found",
			"dataset", r.opts.Dataset,
			"pattern", r.opts.Tables)
		params.Warnings = warnings
		params.Err = errors.New(finding.Message)
		return r.finish(ctx, report.Aggregate(params, nil))
	}

	slog.Info("[Pipeline] Resolved tables", "count", len(tables), "tables", tables)

	collector := &report.Collector{}
	checked := r.checkTables(ctx, tables, collector)
	if checked < len(tables) {
		skipped := len(tables) - checked
		slog.Warn("[Pipeline] Run cancelled before all tables were checked",
			"checked", checked,
			"skipped", skipped)
		params.Err = fmt.Errorf("run cancelled: %d of %d tables not checked", skipped, len(tables))
	}

	params.Tables = tables
	params.Warnings = warnings
	return r.finish(ctx, report.Aggregate(params, collector.Results()))
}

// checkTables fans tables out over a bounded worker group and returns how
// many were started before ctx was cancelled. Started checks run on a
// context detached from ctx so in-flight queries end by their own timeout.
func (r *Runner) checkTables(ctx context.Context, tables []string, collector *report.Collector) int {
	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)

	checkCtx := context.WithoutCancel(ctx)
	started := 0
	for _, table := range tables {
		if ctx.Err() != nil {
			break
		}
		table := table
		started++
		g.Go(func() error {
			r.checkTable(checkCtx, table, collector)
			return nil
		})
	}
	_ = g.Wait()
	return started
}

func (r *Runner) checkTable(ctx context.Context, table string, collector *report.Collector) {
	stages := r.stagesFor(table)

	if !r.opts.StageConcurrency {
		for _, st := range stages {
			collector.Add(r.runStage(ctx, table, st))
		}
		return
	}

	var g errgroup.Group
	for _, st := range stages {
		st := st
		g.Go(func() error {
			collector.Add(r.runStage(ctx, table, st))
			return nil
		})
	}
	_ = g.Wait()
}

// runStage times one stage and turns a panic into a failed result so one
// table never aborts the run.
func (r *Runner) runStage(ctx context.Context, table string, st stage) (res *report.Result) {
	res = report.NewResult(table, st.category)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			slog.Error("[Pipeline] Stage panicked",
				"table", table,
				"category", st.category,
				"panic", p,
				"stack", string(debug.Stack()))
			res.AddError(fmt.Sprintf("%s check failed: %v", st.category, p))
		}
		res.Duration = time.Since(start)
		r.metrics.ObserveCheck(string(st.category), res.Outcome(), res.Duration)

		slog.Debug("[Pipeline] Table check complete",
			"table", table,
			"category", st.category,
			"outcome", res.Outcome(),
			"errors", len(res.Errors),
			"warnings", len(res.Warnings),
			"duration", res.Duration)
	}()

	st.run(ctx, table, res)
	return res
}

func (r *Runner) finish(ctx context.Context, rep *report.Report) *report.Report {
	r.metrics.IncrementRun(int(rep.ExitCode))

	slog.Info("[Pipeline] Validation run complete",
		"run_id", rep.RunID,
		"checks", rep.Summary.TotalChecks,
		"passed", rep.Summary.PassedChecks,
		"failed", rep.Summary.FailedChecks,
		"warnings", rep.Summary.TotalWarnings,
		"exit_code", int(rep.ExitCode))

	if r.store != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveRunTimeout)
		defer cancel()
		if err := r.store.SaveRun(saveCtx, rep); err != nil {
			slog.Error("[Pipeline] Failed to save run history", "run_id", rep.RunID, "error", err)
		}
	}
	return rep
}

// queryContext bounds one warehouse call.
func (r *Runner) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opts.QueryTimeout)
}

// describeQueryError renders a warehouse failure, naming timeouts explicitly.
func (r *Runner) describeQueryError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("query timed out after %s", r.opts.QueryTimeout)
	}
	return err.Error()
}
