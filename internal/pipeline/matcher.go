package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage"
)

// AllTables matches every table in the dataset.
const AllTables = "*"

// MatchTables filters available by pattern: "*" (or empty) keeps all tables,
// otherwise pattern is a comma-separated list of globs where '*' matches any
// run of characters and '?' one character. The result is sorted and unique.
func MatchTables(available []string, pattern string) []string {
	pattern = strings.TrimSpace(pattern)

	var globs []*regexp.Regexp
	if pattern != "" && pattern != AllTables {
		for _, part := range strings.Split(pattern, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			globs = append(globs, compileGlob(part))
		}
	}

	seen := make(map[string]struct{}, len(available))
	matched := make([]string, 0, len(available))
	for _, table := range available {
		if _, dup := seen[table]; dup {
			continue
		}
		if globs != nil && !anyMatch(globs, table) {
			continue
		}
		seen[table] = struct{}{}
		matched = append(matched, table)
	}
	sort.Strings(matched)
	return matched
}

func compileGlob(glob string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func anyMatch(globs []*regexp.Regexp, table string) bool {
	for _, g := range globs {
		if g.MatchString(table) {
			return true
		}
	}
	return false
}

// ResolveTables lists dataset and applies pattern.
func ResolveTables(ctx context.Context, wh storage.DataWarehouse, dataset, pattern string) ([]string, error) {
	available, err := wh.ListTables(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", dataset, err)
	}
	return MatchTables(available, pattern), nil
}
