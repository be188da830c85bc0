package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSystemRepository implements Repository over one directory of YAML documents.
// Documents are read on every Get; callers load them once per run.
type FileSystemRepository struct {
	rootDir string
}

// NewFileSystemRepository creates a new file system backed repository.
func NewFileSystemRepository(rootDir string) *FileSystemRepository {
	return &FileSystemRepository{
		rootDir: rootDir,
	}
}

// Get reads name from the root directory. A name without an extension is
// resolved as name.yaml, then name.yml.
func (r *FileSystemRepository) Get(ctx context.Context, name string) (*Document, error) {
	for _, candidate := range r.candidates(name) {
		content, err := os.ReadFile(candidate)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read document %s: %w", candidate, err)
		}
		return &Document{
			Name:        name,
			Location:    candidate,
			Content:     content,
			Fingerprint: ComputeFingerprint(content),
		}, nil
	}

	slog.Debug("[Documents] Document not found", "name", name, "dir", r.rootDir)
	return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, filepath.Join(r.rootDir, name))
}

func (r *FileSystemRepository) candidates(name string) []string {
	path := name
	if !filepath.IsAbs(name) {
		path = filepath.Join(r.rootDir, name)
	}
	if filepath.Ext(name) != "" {
		return []string{path}
	}
	return []string{path + ".yaml", path + ".yml"}
}

// List scans the root directory for YAML documents.
func (r *FileSystemRepository) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
