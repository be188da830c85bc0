package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema/storage"
	"gopkg.in/yaml.v3"
)

// ErrNoDocument is returned when a rule document is absent from the repository.
var ErrNoDocument = errors.New("rule document not found")

// Timestamp rule keys understood by the data-constraints stage.
const (
	RuleCreatedAtRequired   = "created_at_required"
	RuleUpdatedAtRequired   = "updated_at_required"
	RuleNoFutureTimestamps  = "no_future_timestamps"
	RuleUpdatedAfterCreated = "updated_after_created"
)

// RuleSet is one block of quality rules, either global or table specific.
type RuleSet struct {
	// Patterns maps a rule name to a regular expression (uuid, email, ...).
	Patterns map[string]string `yaml:"patterns,omitempty"`

	// Timestamps toggles timestamp sanity checks by rule key.
	Timestamps map[string]bool `yaml:"timestamps,omitempty"`

	// Other keeps any additional rule groups verbatim.
	Other map[string]interface{} `yaml:",inline"`
}

// Empty reports whether the set declares no rules at all.
func (s RuleSet) Empty() bool {
	return len(s.Patterns) == 0 && len(s.Timestamps) == 0 && len(s.Other) == 0
}

// TimestampRule reports whether the named timestamp check is enabled.
// Keys that are not declared fall back to def.
func (s RuleSet) TimestampRule(key string, def bool) bool {
	if v, ok := s.Timestamps[key]; ok {
		return v
	}
	return def
}

// PatternNames returns the declared pattern names in sorted order.
func (s RuleSet) PatternNames() []string {
	names := make([]string, 0, len(s.Patterns))
	for name := range s.Patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// qualityDocument is the on-disk shape of the quality rules document.
type qualityDocument struct {
	GlobalRules RuleSet            `yaml:"global_rules"`
	TableRules  map[string]RuleSet `yaml:"table_rules"`
}

// Catalog holds the quality rules and freshness SLAs for one run.
// It is immutable after Load.
type Catalog struct {
	global RuleSet
	tables map[string]RuleSet
	slas   []slaCategory
}

// Documents names the rule documents inside a repository.
type Documents struct {
	QualityRules string
	SLA          string

	// CategoryOrder is the SLA category priority. Categories missing from the
	// list are scanned afterwards in document order.
	CategoryOrder []string
}

// DefaultCategoryOrder is the SLA lookup priority used when none is configured.
var DefaultCategoryOrder = []string{"live_data_tables", "core_tables"}

// NewCatalog builds a catalog from already parsed parts. Mostly used by tests.
func NewCatalog(global RuleSet, tables map[string]RuleSet) *Catalog {
	if tables == nil {
		tables = make(map[string]RuleSet)
	}
	return &Catalog{global: global, tables: tables}
}

// Load reads both rule documents from repo. A missing or malformed document
// degrades to an empty section plus a warning; Load never fails.
func Load(ctx context.Context, repo storage.Repository, docs Documents) (*Catalog, []string) {
	c := NewCatalog(RuleSet{}, nil)
	var warnings []string

	if content, err := read(ctx, repo, docs.QualityRules); err != nil {
		warnings = append(warnings, degrade("Quality rules", docs.QualityRules, err))
	} else if err := c.parseQualityRules(content); err != nil {
		warnings = append(warnings, degrade("Quality rules", docs.QualityRules, err))
	} else {
		slog.Info("[RuleCatalog] Loaded quality rules",
			"document", docs.QualityRules,
			"tables", len(c.tables),
			"global_patterns", len(c.global.Patterns))
	}

	order := docs.CategoryOrder
	if len(order) == 0 {
		order = DefaultCategoryOrder
	}
	if content, err := read(ctx, repo, docs.SLA); err != nil {
		warnings = append(warnings, degrade("SLA", docs.SLA, err))
	} else if slas, err := parseSLADocument(content, order); err != nil {
		warnings = append(warnings, degrade("SLA", docs.SLA, err))
	} else {
		c.slas = slas
		slog.Info("[RuleCatalog] Loaded freshness SLAs", "document", docs.SLA, "categories", len(slas))
	}

	return c, warnings
}

func read(ctx context.Context, repo storage.Repository, name string) ([]byte, error) {
	if name == "" {
		return nil, ErrNoDocument
	}
	doc, err := repo.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoDocument, name)
		}
		return nil, err
	}
	return doc.Content, nil
}

func degrade(kind, name string, err error) string {
	if errors.Is(err, ErrNoDocument) {
		slog.Warn("[RuleCatalog] "+kind+" document missing", "document", name)
		return fmt.Sprintf("%s document %s not found; continuing without it", kind, name)
	}
	slog.Warn("[RuleCatalog] "+kind+" document unusable", "document", name, "error", err)
	return fmt.Sprintf("%s document %s is malformed: %v", kind, name, err)
}

func (c *Catalog) parseQualityRules(content []byte) error {
	var doc qualityDocument
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("failed to parse quality rules: %w", err)
	}
	c.global = doc.GlobalRules
	for table, set := range doc.TableRules {
		c.tables[table] = set
	}
	return nil
}

// EffectiveRules merges the global rules with the rules declared for table.
// Table entries win on collision; everything else is inherited.
func (c *Catalog) EffectiveRules(table string) RuleSet {
	specific := c.tables[table]
	return RuleSet{
		Patterns:   mergeMaps(c.global.Patterns, specific.Patterns),
		Timestamps: mergeMaps(c.global.Timestamps, specific.Timestamps),
		Other:      mergeMaps(c.global.Other, specific.Other),
	}
}

// Tables lists the tables with table-specific rules.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mergeMaps[V any](base, override map[string]V) map[string]V {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
