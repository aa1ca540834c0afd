package content

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore stores content on the local filesystem under a root directory.
// Writes go to a temp file first and are renamed into place, so a crashed
// upload never leaves a half-written object at a valid key.
type FSStore struct {
	root    string
	baseURL string // optional; when set, URL() returns baseURL + "/" + path
}

// NewFSStore creates a filesystem-backed store rooted at dir.
func NewFSStore(dir, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content root: %w", err)
	}
	return &FSStore{root: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FSStore) fullPath(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// Put stores the bytes under key and returns key as the stored path.
func (s *FSStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := s.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create content directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close content file: %w", err)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("finalize content file: %w", err)
	}

	return key, nil
}

// Get streams the bytes stored at path.
func (s *FSStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open content: %w", err)
	}

	return f, nil
}

// URL returns a public URL when the store was configured with a base URL.
func (s *FSStore) URL(path string) *string {
	if s.baseURL == "" {
		return nil
	}
	u := s.baseURL + "/" + path
	return &u
}

// Delete removes the object at path. Missing objects are not an error.
func (s *FSStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.fullPath(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete content: %w", err)
	}

	return nil
}
