package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ErrNoSLA is returned by SLAFor when no category lists the table.
var ErrNoSLA = errors.New("no SLA configuration")

// Threshold defaults applied when an SLA entry omits a value.
const (
	DefaultMaxStaleness         = "24h"
	DefaultLateArrivalThreshold = "12h"
)

// SLA is the resolved freshness configuration for one table.
type SLA struct {
	Table                string
	Category             string
	MaxStaleness         time.Duration
	LateArrivalThreshold time.Duration
}

type slaEntry struct {
	MaxStaleness         string `yaml:"max_staleness"`
	LateArrivalThreshold string `yaml:"late_arrival_threshold"`
}

type slaCategory struct {
	name   string
	tables map[string]slaEntry
}

type slaDocument struct {
	FreshnessSLAs yaml.Node `yaml:"freshness_slas"`
}

// parseSLADocument decodes freshness_slas, keeping categories in priority
// order: the ones named in order first, then the rest as written.
func parseSLADocument(content []byte, order []string) ([]slaCategory, error) {
	var doc slaDocument
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse SLA document: %w", err)
	}
	node := doc.FreshnessSLAs
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("freshness_slas must be a mapping")
	}

	var written []slaCategory
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		tables := make(map[string]slaEntry)
		if err := node.Content[i+1].Decode(&tables); err != nil {
			return nil, fmt.Errorf("freshness_slas.%s: %w", name, err)
		}
		written = append(written, slaCategory{name: name, tables: tables})
	}

	out := make([]slaCategory, 0, len(written))
	taken := make(map[string]bool, len(written))
	for _, name := range order {
		for _, cat := range written {
			if cat.name == name && !taken[name] {
				out = append(out, cat)
				taken[name] = true
			}
		}
	}
	for _, cat := range written {
		if !taken[cat.name] {
			out = append(out, cat)
			taken[cat.name] = true
		}
	}
	return out, nil
}

// SLAFor scans the SLA categories in priority order and returns the first
// entry declared for table. It returns ErrNoSLA when none matches and a parse
// error when the matching entry carries a malformed duration.
func (c *Catalog) SLAFor(table string) (*SLA, error) {
	for _, cat := range c.slas {
		entry, ok := cat.tables[table]
		if !ok {
			continue
		}
		maxStaleness, err := ParseDuration(orDefault(entry.MaxStaleness, DefaultMaxStaleness))
		if err != nil {
			return nil, fmt.Errorf("%s.%s max_staleness: %w", cat.name, table, err)
		}
		late, err := ParseDuration(orDefault(entry.LateArrivalThreshold, DefaultLateArrivalThreshold))
		if err != nil {
			return nil, fmt.Errorf("%s.%s late_arrival_threshold: %w", cat.name, table, err)
		}
		return &SLA{
			Table:                table,
			Category:             cat.name,
			MaxStaleness:         maxStaleness,
			LateArrivalThreshold: late,
		}, nil
	}
	return nil, fmt.Errorf("%w for %s", ErrNoSLA, table)
}

// Categories returns the SLA category names in lookup order.
func (c *Catalog) Categories() []string {
	names := make([]string, 0, len(c.slas))
	for _, cat := range c.slas {
		names = append(names, cat.name)
	}
	return names
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// ParseDuration parses "<number><unit>" where unit is h (hours), d (days)
// or m (minutes). A bare number is read as hours.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := time.Hour
	number := s
	switch s[len(s)-1] {
	case 'h':
		number = s[:len(s)-1]
	case 'd':
		unit = 24 * time.Hour
		number = s[:len(s)-1]
	case 'm':
		unit = time.Minute
		number = s[:len(s)-1]
	}

	number = strings.TrimSpace(number)
	if number == "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	n, err := cast.ToFloat64E(number)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return time.Duration(n * float64(unit)), nil
}
