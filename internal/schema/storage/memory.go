package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory implementation of Repository.
// Useful for testing and development.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryRepository creates a new in-memory document repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs: make(map[string][]byte),
	}
}

// Put stores or replaces a document.
func (r *MemoryRepository) Put(name string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to prevent external modification
	r.docs[name] = append([]byte(nil), content...)
}

func (r *MemoryRepository) Get(ctx context.Context, name string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, exists := r.docs[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}

	return &Document{
		Name:        name,
		Location:    "memory://" + name,
		Content:     append([]byte(nil), content...),
		Fingerprint: ComputeFingerprint(content),
	}, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.docs))
	for name := range r.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
