package main

import (
	"fmt"
	"log/slog"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/metrics"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/pipeline"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema/api"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the record validation API",
		Long: `Serves health, metrics, contract listing and record validation over HTTP.
When pipeline.schedule is configured the table checks also run on that
schedule in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return withCode(exitFailure, err)
			}
			if err := cfg.ValidateWarehouse(); err != nil {
				return withCode(exitFailure, err)
			}

			ctx := cmd.Context()

			// 1. Metrics
			var m *metrics.Metrics
			promRegistry := prometheus.NewRegistry()
			if cfg.Metrics.Enabled {
				promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				m = metrics.New(promRegistry)
			}

			// 2. Warehouse and documents
			wh, err := openWarehouse(cfg)
			if err != nil {
				return err
			}
			defer wh.Close()
			docs := loadDocuments(ctx, cfg)
			engine := schema.NewEngine()

			// 3. HTTP server
			srv := server.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), wh, cfg.Server.Mode)
			if cfg.Metrics.Enabled {
				srv.EnableMetrics(promRegistry)
			}
			api.NewService(docs.registry, engine,
				api.WithMetrics(m),
				api.WithMaxBodySize(cfg.Server.MaxBodySizeMB),
			).RegisterRoutes(srv.Engine)

			// 4. Optional scheduled table checks
			runnerOpts := []pipeline.RunnerOption{
				pipeline.WithConfigWarnings(docs.warnings),
				pipeline.WithMetrics(m),
				pipeline.WithEngine(engine),
			}
			if cfg.History.Enabled {
				history, closeHistory, err := openHistory(ctx, cfg, wh)
				if err != nil {
					return err
				}
				defer closeHistory()
				runnerOpts = append(runnerOpts, pipeline.WithRunStore(history))
				srv.EnableRunHistory(history)
			}

			g, gctx := errgroup.WithContext(ctx)
			if cfg.Pipeline.Schedule != "" {
				opts, err := pipelineOptions(cfg)
				if err != nil {
					return err
				}
				runner := pipeline.NewRunner(wh, docs.registry, docs.catalog, opts, runnerOpts...)
				scheduler, err := pipeline.NewScheduler(cfg.Pipeline.Schedule, runner, logScheduledRun)
				if err != nil {
					return withCode(exitFailure, err)
				}
				g.Go(func() error { return scheduler.Start(gctx) })
			} else {
				slog.Info("[Serve] No pipeline.schedule configured; table checks run only via the run command")
			}

			// HTTP server blocks until the context is cancelled.
			g.Go(func() error { return srv.Run(gctx) })

			if err := g.Wait(); err != nil {
				return withCode(exitFailure, fmt.Errorf("server stopped with error: %w", err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	return cmd
}

// logScheduledRun records the outcome of one background run.
func logScheduledRun(rep *report.Report) {
	slog.Info("[Serve] Scheduled validation finished",
		"run_id", rep.RunID,
		"tables", len(rep.Tables),
		"exit", rep.ExitCode.String())
}
