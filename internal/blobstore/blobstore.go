// Package blobstore defines the blob-storage collaborator: upload bytes
// under a path and get back a publicly playable URL.
package blobstore

import (
	"context"
	"io"
)

type Store interface {
	// Upload writes the blob and returns its public URL.
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
	// Delete removes the blob. Callers treat failures as non-fatal.
	Delete(ctx context.Context, path string) error
}
