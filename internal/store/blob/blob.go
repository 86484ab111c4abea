// Package blob stores binary assets on the local filesystem with the same
// tenant partitioning as documents: every object lives under
// <root>/tenants/<tenantId>/<path>.
package blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Metadata accompanies an uploaded object and is persisted alongside it.
type Metadata struct {
	ContentType string            `json:"content_type,omitempty"`
	UploadedBy  string            `json:"uploaded_by"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	Custom      map[string]string `json:"custom,omitempty"`
}

// Store is a filesystem-backed blob store.
type Store struct {
	root string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Put writes the object and its metadata sidecar, returning the public URL
// path the server serves it under.
func (s *Store) Put(tenantID, name string, data []byte, meta Metadata) (string, error) {
	rel, err := s.objectPath(tenantID, name)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal blob metadata: %w", err)
	}
	if err := os.WriteFile(full+".meta.json", metaBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob metadata: %w", err)
	}

	return "/blobs/" + strings.TrimPrefix(rel, "tenants/"), nil
}

// Get reads an object back. Returns os.ErrNotExist-wrapping errors when
// absent.
func (s *Store) Get(tenantID, name string) ([]byte, *Metadata, error) {
	rel, err := s.objectPath(tenantID, name)
	if err != nil {
		return nil, nil, err
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read blob: %w", err)
	}

	var meta Metadata
	if metaBytes, err := os.ReadFile(full + ".meta.json"); err == nil {
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			return nil, nil, fmt.Errorf("failed to decode blob metadata: %w", err)
		}
	}

	return data, &meta, nil
}

// Delete removes the object and its sidecar. Deleting an absent object is
// not an error.
func (s *Store) Delete(tenantID, name string) error {
	rel, err := s.objectPath(tenantID, name)
	if err != nil {
		return err
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	if err := os.Remove(full + ".meta.json"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob metadata: %w", err)
	}
	return nil
}

// objectPath builds the tenant-prefixed relative path. Both the tenant
// identifier and the caller-supplied name are validated so neither can
// traverse out of the tenants/ partition.
func (s *Store) objectPath(tenantID, name string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("empty tenant identifier")
	}
	if tenantID == "." || tenantID == ".." || strings.ContainsAny(tenantID, `/\`) {
		return "", fmt.Errorf("invalid tenant identifier %q", tenantID)
	}

	normalized := strings.ReplaceAll(name, "\\", "/")
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid blob path %q", name)
		}
	}

	clean := strings.TrimPrefix(path.Clean("/"+normalized), "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("invalid blob path %q", name)
	}

	return path.Join("tenants", tenantID, clean), nil
}
