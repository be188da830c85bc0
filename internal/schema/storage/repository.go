package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrDocumentNotFound is returned when a configuration document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// Document is one raw configuration document (quality rules, table
// contracts or SLA settings).
type Document struct {
	Name        string
	Location    string
	Content     []byte
	Fingerprint string
}

// ComputeFingerprint calculates the SHA-256 hash of a document body.
func ComputeFingerprint(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// Repository defines the interface for configuration document sources.
type Repository interface {
	// Get retrieves a document by name. Returns ErrDocumentNotFound if absent.
	Get(ctx context.Context, name string) (*Document, error)

	// List returns the names of all available documents, sorted.
	List(ctx context.Context) ([]string, error)
}
