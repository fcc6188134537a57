package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps blobs on the local filesystem and serves them from a
// static base URL. It stands in for a managed bucket in development and
// tests.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create blob subdir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("write blob: %w", err)
	}
	return s.baseURL + "/" + strings.TrimLeft(path, "/"), nil
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *LocalStore) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	full := filepath.Join(s.dir, clean)
	if !strings.HasPrefix(full, filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid blob path: %s", path)
	}
	return full, nil
}
