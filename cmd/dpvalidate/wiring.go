package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/config"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage/memory"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage/postgres"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/migrations"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/pipeline"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/rules"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema/formats/yaml"
	schemaStorage "github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema/storage"
)

// warehouseHandle is an opened warehouse plus the pool it owns, if any.
type warehouseHandle struct {
	storage.DataWarehouse
	db    *sql.DB
	close func() error
}

func (h *warehouseHandle) Close() error {
	if h == nil || h.close == nil {
		return nil
	}
	return h.close()
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, withCode(exitFailure, fmt.Errorf("failed to load config: %w", err))
	}
	return cfg, nil
}

// openWarehouse opens the configured warehouse. Any failure here is a
// process-level hard failure.
func openWarehouse(cfg *config.Config) (*warehouseHandle, error) {
	switch cfg.Warehouse.Type {
	case "memory":
		wh, err := memory.Load(cfg.Warehouse.FixturePath)
		if err != nil {
			return nil, withCode(exitFailure, fmt.Errorf("failed to initialize warehouse: %w", err))
		}
		return &warehouseHandle{DataWarehouse: wh}, nil

	default:
		db, err := postgres.Open(cfg.Warehouse.DSN, cfg.Warehouse.MaxOpenConns, cfg.Warehouse.MaxIdleConns)
		if err != nil {
			return nil, withCode(exitFailure, fmt.Errorf("failed to initialize warehouse: %w", err))
		}
		adapter, err := postgres.NewWarehouseAdapter(db)
		if err != nil {
			db.Close()
			return nil, withCode(exitFailure, fmt.Errorf("failed to initialize warehouse: %w", err))
		}
		return &warehouseHandle{DataWarehouse: adapter, db: db, close: adapter.Close}, nil
	}
}

// documents are the contracts and rules loaded fresh for one invocation.
type documents struct {
	registry *schema.Registry
	catalog  *rules.Catalog
	warnings []string
}

// loadDocuments reads the three rule documents. Missing or malformed
// documents become warnings and never fail startup.
func loadDocuments(ctx context.Context, cfg *config.Config) *documents {
	repo := schemaStorage.NewFileSystemRepository(cfg.Documents.Dir)

	catalog, warnings := rules.Load(ctx, repo, rules.Documents{
		QualityRules:  cfg.Documents.QualityRules,
		SLA:           cfg.Documents.SLA,
		CategoryOrder: cfg.Documents.SLACategoryOrder,
	})

	tables, tableWarnings := yaml.LoadTableContracts(ctx, repo, cfg.Documents.TableContracts)
	warnings = append(warnings, tableWarnings...)

	registry := entities.NewRegistry(
		schema.WithTableContracts(tables),
		schema.WithDerivedTableContracts(cfg.Documents.DeriveTableContracts),
	)

	for _, w := range warnings {
		slog.Warn("[Documents] " + w)
	}
	return &documents{registry: registry, catalog: catalog, warnings: warnings}
}

// openHistory prepares the run history store, sharing the warehouse pool
// when both point at the same database.
func openHistory(ctx context.Context, cfg *config.Config, wh *warehouseHandle) (*postgres.HistoryAdapter, func() error, error) {
	dsn := cfg.EffectiveHistoryDSN()

	var db *sql.DB
	closeFn := func() error { return nil }
	if wh != nil && wh.db != nil && dsn == cfg.Warehouse.DSN {
		db = wh.db
	} else {
		opened, err := postgres.Open(dsn, cfg.Warehouse.MaxOpenConns, cfg.Warehouse.MaxIdleConns)
		if err != nil {
			return nil, nil, withCode(exitFailure, fmt.Errorf("failed to open history database: %w", err))
		}
		db = opened
		closeFn = opened.Close
	}

	if err := migrations.RunMigrations(db, cfg.History.AutoMigrate); err != nil {
		closeFn()
		return nil, nil, withCode(exitFailure, fmt.Errorf("failed to run history migrations: %w", err))
	}
	history := postgres.NewHistoryAdapter(db)
	if !cfg.History.AutoMigrate {
		if err := history.CheckSchema(ctx); err != nil {
			closeFn()
			return nil, nil, withCode(exitFailure, fmt.Errorf("history schema not ready (enable history.auto_migrate): %w", err))
		}
	}
	return history, closeFn, nil
}

func pipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	failOn, err := report.ParseFailOn(cfg.Pipeline.FailOn)
	if err != nil {
		return pipeline.Options{}, withCode(exitFailure, err)
	}
	return pipeline.Options{
		Project:          cfg.Pipeline.Project,
		Dataset:          cfg.Pipeline.Dataset,
		Tables:           cfg.Pipeline.Tables,
		FailOn:           failOn,
		Concurrency:      cfg.Pipeline.Concurrency,
		StageConcurrency: cfg.Pipeline.StageConcurrency,
		QueryTimeout:     cfg.Warehouse.QueryTimeoutDuration(),
		SampleRows:       cfg.Pipeline.SampleRows,
	}, nil
}
