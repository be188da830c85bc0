package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage"
	"gopkg.in/yaml.v3"
)

// Table is the fixture for one warehouse table.
type Table struct {
	Columns []storage.Column `yaml:"columns"`

	// Aggregates holds the pre-computed row returned for each named query.
	Aggregates map[string]map[string]interface{} `yaml:"aggregates"`

	// Rows are returned by SampleRows.
	Rows []map[string]interface{} `yaml:"rows"`

	// Errors simulates failures, keyed by query name, "schema" or "sample".
	Errors map[string]string `yaml:"errors"`
}

type fixture struct {
	Dataset string            `yaml:"dataset"`
	Tables  map[string]*Table `yaml:"tables"`
}

// Warehouse is an in-memory storage.DataWarehouse loaded from a YAML fixture.
//
// String values of the form "now" or "now-<duration>" (e.g. "now-30h") are
// resolved against the clock on every read, so a fixture keeps its staleness.
type Warehouse struct {
	mu      sync.RWMutex
	dataset string
	tables  map[string]*Table
	nowFn   func() time.Time
}

// Option configures a Warehouse.
type Option func(*Warehouse)

// WithClock overrides the clock used for relative timestamps.
func WithClock(fn func() time.Time) Option {
	return func(w *Warehouse) {
		w.nowFn = fn
	}
}

// New creates an empty warehouse. An empty dataset accepts any dataset name.
func New(dataset string, opts ...Option) *Warehouse {
	w := &Warehouse{
		dataset: dataset,
		tables:  make(map[string]*Table),
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Parse builds a warehouse from fixture content.
func Parse(content []byte, opts ...Option) (*Warehouse, error) {
	var f fixture
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("failed to parse warehouse fixture: %w", err)
	}
	w := New(f.Dataset, opts...)
	for name, t := range f.Tables {
		if t == nil {
			t = &Table{}
		}
		w.tables[name] = t
	}
	return w, nil
}

// Load reads a fixture file.
func Load(path string, opts ...Option) (*Warehouse, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read warehouse fixture: %w", err)
	}
	w, err := Parse(content, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("[MemoryWarehouse] Loaded fixture", "path", path, "tables", len(w.tables))
	return w, nil
}

// PutTable stores or replaces a table fixture.
func (w *Warehouse) PutTable(name string, t Table) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tables[name] = &t
}

func (w *Warehouse) checkDataset(dataset string) error {
	if w.dataset != "" && dataset != "" && dataset != w.dataset {
		return fmt.Errorf("dataset %s not found (fixture holds %s)", dataset, w.dataset)
	}
	return nil
}

func (w *Warehouse) table(dataset, name string) (*Table, error) {
	if err := w.checkDataset(dataset); err != nil {
		return nil, err
	}
	t, ok := w.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", storage.ErrNotFound, dataset, name)
	}
	return t, nil
}

func (t *Table) failure(key string) error {
	if msg, ok := t.Errors[key]; ok {
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// ListTables returns the fixture tables ordered by name.
func (w *Warehouse) ListTables(ctx context.Context, dataset string) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if err := w.checkDataset(dataset); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(w.tables))
	for name := range w.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetTableSchema returns a copy of the fixture columns.
func (w *Warehouse) GetTableSchema(ctx context.Context, dataset, table string) ([]storage.Column, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	t, err := w.table(dataset, table)
	if err != nil {
		return nil, err
	}
	if err := t.failure("schema"); err != nil {
		return nil, err
	}
	return append([]storage.Column(nil), t.Columns...), nil
}

// RunAggregateQuery returns the fixture row stored under query.Name.
func (w *Warehouse) RunAggregateQuery(ctx context.Context, query storage.AggregateQuery, dataset, table string) (storage.Row, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	t, err := w.table(dataset, table)
	if err != nil {
		return nil, err
	}
	if err := t.failure(query.Name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, ok := t.Aggregates[query.Name]
	if !ok {
		return nil, fmt.Errorf("no fixture row for %s query on %s", query.Name, table)
	}
	return w.resolve(row), nil
}

// SampleRows returns up to limit fixture rows.
func (w *Warehouse) SampleRows(ctx context.Context, dataset, table string, limit int) ([]storage.Row, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	t, err := w.table(dataset, table)
	if err != nil {
		return nil, err
	}
	if err := t.failure("sample"); err != nil {
		return nil, err
	}
	rows := t.Rows
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]storage.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, w.resolve(row))
	}
	return out, nil
}

// Ping always succeeds.
func (w *Warehouse) Ping(ctx context.Context) error {
	return nil
}

// resolve copies row, turning relative timestamps into time.Time.
func (w *Warehouse) resolve(row map[string]interface{}) storage.Row {
	out := make(storage.Row, len(row))
	for k, v := range row {
		out[k] = w.resolveValue(v)
	}
	return out
}

func (w *Warehouse) resolveValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if t, ok := w.relative(val); ok {
			return t
		}
		return val
	case map[string]interface{}:
		return map[string]interface{}(w.resolve(val))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = w.resolveValue(item)
		}
		return out
	default:
		return v
	}
}

func (w *Warehouse) relative(s string) (time.Time, bool) {
	if !strings.HasPrefix(s, "now") {
		return time.Time{}, false
	}
	now := w.nowFn().UTC()
	rest := strings.TrimPrefix(s, "now")
	if rest == "" {
		return now, true
	}
	if rest[0] != '-' && rest[0] != '+' {
		return time.Time{}, false
	}
	d, err := time.ParseDuration(rest)
	if err != nil {
		return time.Time{}, false
	}
	return now.Add(d), true
}
