package yaml

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema/storage"
	"gopkg.in/yaml.v3"
)

// Compile parses a table contract document into per-table contracts.
func Compile(definition []byte) (map[string]*schema.TableContract, error) {
	var spec DocumentSpec
	if err := yaml.Unmarshal(definition, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse table contract document: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table contract document: %w", err)
	}

	out := make(map[string]*schema.TableContract, len(spec.Tables))
	for name, table := range spec.Tables {
		if table == nil {
			table = &TableSpec{}
		}
		out[name] = table.toContract(name)
	}
	return out, nil
}

// LoadTableContracts reads and compiles the named document from repo.
// A missing or malformed document degrades to zero table contracts plus a
// warning; it never fails startup.
func LoadTableContracts(ctx context.Context, repo storage.Repository, name string) (map[string]*schema.TableContract, []string) {
	doc, err := repo.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			slog.Warn("[Contracts] Table contract document not found", "document", name)
			return map[string]*schema.TableContract{}, []string{fmt.Sprintf("Table contracts document %s not found; no table contracts loaded", name)}
		}
		slog.Warn("[Contracts] Table contract document unreadable", "document", name, "error", err)
		return map[string]*schema.TableContract{}, []string{fmt.Sprintf("Could not read table contracts document %s: %v", name, err)}
	}

	tables, err := Compile(doc.Content)
	if err != nil {
		slog.Warn("[Contracts] Table contract document malformed", "document", doc.Location, "error", err)
		return map[string]*schema.TableContract{}, []string{fmt.Sprintf("Table contracts document %s is malformed: %v", name, err)}
	}

	slog.Info("[Contracts] Loaded table contracts",
		"document", doc.Location,
		"tables", len(tables),
		"fingerprint", doc.Fingerprint)
	return tables, nil
}
