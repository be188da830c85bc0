package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// EnvPrefix prefixes environment overrides; "__" separates nested keys,
// e.g. DPV_WAREHOUSE__DSN sets warehouse.dsn.
const EnvPrefix = "DPV_"

// Config represents the top-level application config.
type Config struct {
	Warehouse WarehouseConfig `koanf:"warehouse"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Documents DocumentsConfig `koanf:"documents"`
	Server    ServerConfig    `koanf:"server"`
	History   HistoryConfig   `koanf:"history"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type WarehouseConfig struct {
	Type         string `koanf:"type"` // postgres | memory
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	QueryTimeout string `koanf:"query_timeout"` // parsed and validated on startup
	FixturePath  string `koanf:"fixture_path"`  // memory warehouse only
}

type PipelineConfig struct {
	Project          string `koanf:"project"`
	Dataset          string `koanf:"dataset"`
	Tables           string `koanf:"tables"`
	FailOn           string `koanf:"fail_on"` // error | warn
	Concurrency      int    `koanf:"concurrency"`
	StageConcurrency bool   `koanf:"stage_concurrency"`
	Schedule         string `koanf:"schedule"` // cron spec, empty runs once
	SampleRows       int    `koanf:"sample_rows"`
}

type DocumentsConfig struct {
	Dir                  string   `koanf:"dir"`
	QualityRules         string   `koanf:"quality_rules"`
	TableContracts       string   `koanf:"table_contracts"`
	SLA                  string   `koanf:"sla"`
	SLACategoryOrder     []string `koanf:"sla_category_order"`
	DeriveTableContracts bool     `koanf:"derive_table_contracts"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type HistoryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	AutoMigrate bool   `koanf:"auto_migrate"`
	DSN         string `koanf:"dsn"` // defaults to warehouse.dsn
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// QueryTimeoutDuration returns the parsed per-query timeout.
func (c WarehouseConfig) QueryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.QueryTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// EffectiveHistoryDSN returns the history DSN, falling back to the warehouse DSN
// when the warehouse is postgres.
func (c *Config) EffectiveHistoryDSN() string {
	if strings.TrimSpace(c.History.DSN) != "" {
		return c.History.DSN
	}
	if c.Warehouse.Type == "postgres" {
		return c.Warehouse.DSN
	}
	return ""
}

// Validate checks the structural settings. Connection settings are checked
// by ValidateWarehouse, only for commands that open the warehouse.
func (c *Config) Validate() error {
	switch c.Warehouse.Type {
	case "postgres":
		if c.Warehouse.MaxOpenConns <= 0 {
			return fmt.Errorf("warehouse.max_open_conns must be > 0")
		}
		if c.Warehouse.MaxIdleConns <= 0 {
			return fmt.Errorf("warehouse.max_idle_conns must be > 0")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported warehouse.type %q", c.Warehouse.Type)
	}
	timeout, err := time.ParseDuration(c.Warehouse.QueryTimeout)
	if err != nil {
		return fmt.Errorf("invalid warehouse.query_timeout %q: %w", c.Warehouse.QueryTimeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("warehouse.query_timeout must be > 0")
	}

	if strings.TrimSpace(c.Pipeline.Dataset) == "" {
		return fmt.Errorf("pipeline.dataset is required")
	}
	if _, err := report.ParseFailOn(c.Pipeline.FailOn); err != nil {
		return fmt.Errorf("invalid pipeline.fail_on: %w", err)
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.SampleRows < 0 {
		return fmt.Errorf("pipeline.sample_rows must be >= 0")
	}
	if c.Pipeline.Schedule != "" {
		if _, err := cron.ParseStandard(c.Pipeline.Schedule); err != nil {
			return fmt.Errorf("invalid pipeline.schedule %q: %w", c.Pipeline.Schedule, err)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	return nil
}

// ValidateWarehouse checks that the configured warehouse can be opened.
func (c *Config) ValidateWarehouse() error {
	switch c.Warehouse.Type {
	case "postgres":
		if strings.TrimSpace(c.Warehouse.DSN) == "" {
			return fmt.Errorf("warehouse.dsn is required for the postgres warehouse")
		}
	case "memory":
		if strings.TrimSpace(c.Warehouse.FixturePath) == "" {
			return fmt.Errorf("warehouse.fixture_path is required for the memory warehouse")
		}
	}
	if c.History.Enabled && c.EffectiveHistoryDSN() == "" {
		return fmt.Errorf("history.dsn is required when history is enabled without a postgres warehouse")
	}
	return nil
}

// Load parses config from defaults, an optional file and the environment,
// then validates it. Document contents are not read here: missing rule or
// contract documents degrade at run time instead of failing startup.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"warehouse.type":                   "postgres",
		"warehouse.dsn":                    "",
		"warehouse.max_open_conns":         10,
		"warehouse.max_idle_conns":         5,
		"warehouse.query_timeout":          "30s",
		"warehouse.fixture_path":           "",
		"pipeline.project":                 "diagnostic-pro-start-up",
		"pipeline.dataset":                 "diagnosticpro_prod",
		"pipeline.tables":                  "*",
		"pipeline.fail_on":                 "error",
		"pipeline.concurrency":             4,
		"pipeline.stage_concurrency":       true,
		"pipeline.schedule":                "",
		"pipeline.sample_rows":             0,
		"documents.dir":                    ".",
		"documents.quality_rules":          "S2_quality_rules.yaml",
		"documents.table_contracts":        "S2_table_contracts.yaml",
		"documents.sla":                    "S2_sla_retention.yaml",
		"documents.sla_category_order":     []string{"live_data_tables", "core_tables"},
		"documents.derive_table_contracts": false,
		"server.port":                      8080,
		"server.host":                      "0.0.0.0",
		"server.max_body_size_mb":          1,
		"server.mode":                      "release",
		"history.enabled":                  false,
		"history.auto_migrate":             true,
		"history.dsn":                      "",
		"metrics.enabled":                  true,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
