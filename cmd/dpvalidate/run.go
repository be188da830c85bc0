package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/config"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/pipeline"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/spf13/cobra"
)

type runFlags struct {
	project     string
	dataset     string
	tables      string
	failOn      string
	output      string
	schedule    string
	sampleRows  int
	concurrency int
}

func newRunCmd(root *rootOptions) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate warehouse tables and print the report",
		Long: `Runs the schema, constraint and freshness checks over every table matching
--tables and prints the aggregated report.

Exit codes: 0 success, 1 hard failure, 2 warnings present with --fail-on warn.
With --schedule the checks repeat on a cron schedule until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(strings.ToLower(strings.TrimSpace(flags.output)))
			if err != nil {
				return withCode(exitFailure, fmt.Errorf("invalid --output: %w", err))
			}

			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return withCode(exitFailure, err)
			}
			if err := cfg.ValidateWarehouse(); err != nil {
				return withCode(exitFailure, err)
			}

			ctx := cmd.Context()

			wh, err := openWarehouse(cfg)
			if err != nil {
				return err
			}
			defer wh.Close()

			docs := loadDocuments(ctx, cfg)
			opts, err := pipelineOptions(cfg)
			if err != nil {
				return err
			}

			runnerOpts := []pipeline.RunnerOption{pipeline.WithConfigWarnings(docs.warnings)}
			if cfg.History.Enabled {
				history, closeHistory, err := openHistory(ctx, cfg, wh)
				if err != nil {
					return err
				}
				defer closeHistory()
				runnerOpts = append(runnerOpts, pipeline.WithRunStore(history))
			}
			runner := pipeline.NewRunner(wh, docs.registry, docs.catalog, opts, runnerOpts...)

			out := cmd.OutOrStdout()
			if cfg.Pipeline.Schedule != "" {
				scheduler, err := pipeline.NewScheduler(cfg.Pipeline.Schedule, runner, func(rep *report.Report) {
					if err := report.Write(out, rep, format); err != nil {
						slog.Error("Failed to write report", "run_id", rep.RunID, "error", err)
					}
				})
				if err != nil {
					return withCode(exitFailure, err)
				}
				return scheduler.Start(ctx)
			}

			rep := runner.Run(ctx)
			if err := report.Write(out, rep, format); err != nil {
				return withCode(exitFailure, err)
			}
			if rep.ExitCode != report.ExitSuccess {
				return withCode(int(rep.ExitCode), nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.project, "project", "", "Project id (default from config)")
	cmd.Flags().StringVar(&flags.dataset, "dataset", "", "Dataset (schema) to validate (default from config)")
	cmd.Flags().StringVar(&flags.tables, "tables", "", `Table pattern: "*" or comma-separated globs`)
	cmd.Flags().StringVar(&flags.failOn, "fail-on", "", "Failure threshold: error|warn")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "text", "Report format: text|json")
	cmd.Flags().StringVar(&flags.schedule, "schedule", "", `Cron schedule, e.g. "0 * * * *" or "@hourly"`)
	cmd.Flags().IntVar(&flags.sampleRows, "sample-rows", 0, "Validate up to N rows per entity table against its record contract")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "Max tables checked at once")
	return cmd
}

// apply copies explicitly set flags over the loaded config.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("project") {
		cfg.Pipeline.Project = f.project
	}
	if changed("dataset") {
		cfg.Pipeline.Dataset = f.dataset
	}
	if changed("tables") {
		cfg.Pipeline.Tables = f.tables
	}
	if changed("fail-on") {
		cfg.Pipeline.FailOn = strings.ToLower(strings.TrimSpace(f.failOn))
	}
	if changed("schedule") {
		cfg.Pipeline.Schedule = f.schedule
	}
	if changed("sample-rows") {
		cfg.Pipeline.SampleRows = f.sampleRows
	}
	if changed("concurrency") {
		cfg.Pipeline.Concurrency = f.concurrency
	}
}
