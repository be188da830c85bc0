package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Builder constructs the contract for an entity and operation.
// It returns ErrNotFound for unknown entities and ErrUnsupportedOperation
// when the entity has no such variant.
type Builder func(entity string, op Operation) (*Contract, error)

// Registry resolves entity contracts and table contracts.
//
// Entity contracts are built lazily on first use and cached for the life of
// the registry; table contracts come from the table-contract document and,
// when enabled, are derived from the entity contract of the same name.
type Registry struct {
	build       Builder
	tables      map[string]*TableContract
	deriveTable bool

	mu           sync.RWMutex
	compiled     map[string]*Contract
	compileGroup singleflight.Group // Dedupe concurrent builds
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTableContracts installs the contracts loaded from the table-contract document.
func WithTableContracts(tables map[string]*TableContract) RegistryOption {
	return func(r *Registry) {
		for name, tc := range tables {
			r.tables[name] = tc
		}
	}
}

// WithDerivedTableContracts falls back to the base entity contract when the
// document does not declare a table.
func WithDerivedTableContracts(enabled bool) RegistryOption {
	return func(r *Registry) {
		r.deriveTable = enabled
	}
}

// NewRegistry creates a registry over build. A nil build yields a registry
// that only knows document table contracts.
func NewRegistry(build Builder, opts ...RegistryOption) *Registry {
	r := &Registry{
		build:    build,
		tables:   make(map[string]*TableContract),
		compiled: make(map[string]*Contract),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func registryKey(entity string, op Operation) string {
	return fmt.Sprintf("%s:%s", entity, op)
}

// ContractFor returns the contract for entity and op.
// Uses singleflight to dedupe concurrent builds of the same contract.
func (r *Registry) ContractFor(entity string, op Operation) (*Contract, error) {
	if r.build == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	key := registryKey(entity, op)

	r.mu.RLock()
	if c, exists := r.compiled[key]; exists {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.compileGroup.Do(key, func() (interface{}, error) {
		r.mu.RLock()
		if c, exists := r.compiled[key]; exists {
			r.mu.RUnlock()
			return c, nil
		}
		r.mu.RUnlock()

		c, err := r.build(entity, op)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.compiled[key] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Contract), nil
}

// TableContract returns the structural contract for a warehouse table.
func (r *Registry) TableContract(table string) (*TableContract, error) {
	if tc, ok := r.tables[table]; ok {
		return tc, nil
	}
	if !r.deriveTable {
		return nil, fmt.Errorf("%w: table %s", ErrNotFound, table)
	}
	c, err := r.ContractFor(table, OpBase)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: table %s", ErrNotFound, table)
		}
		return nil, err
	}
	return DeriveTableContract(table, c), nil
}

// Tables lists the tables declared by the table-contract document.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
