package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oracare/fulfillment/internal/domain/shared"
)

// LocalStore stores objects on the local filesystem under a base directory.
// Used in development and single-node deployments without object storage.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a new LocalStore, creating the base directory
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// resolve maps a key to a path below the base directory, rejecting traversal
func (s *LocalStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") {
		return "", shared.NewDomainError("INVALID_OBJECT_KEY", "Object key must not contain path traversal")
	}
	return filepath.Join(s.basePath, clean), nil
}

// Put writes an object to disk
func (s *LocalStore) Put(ctx context.Context, key, contentType string, data io.Reader, size int64) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, io.LimitReader(data, size)); err != nil {
		return err
	}
	return nil
}

// Get returns a reader for an object and a content type guessed from the
// file extension
func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, "", shared.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, contentType, nil
}

// Delete removes an object
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DownloadURL returns a dashboard-relative URL served by the screenshot
// handler; local files have no presigning.
func (s *LocalStore) DownloadURL(ctx context.Context, key string, _ time.Duration) (string, error) {
	return "/api/screenshots/" + key, nil
}
