package store

import (
	"context"
	"fmt"

	"github.com/avelichko/memorylane/internal/docstore"
)

// Searches records lightweight search audit documents. All writes are
// best-effort from the caller's point of view.
type Searches struct {
	db docstore.Store
}

func NewSearches(db docstore.Store) *Searches {
	return &Searches{db: db}
}

func (s *Searches) RecordQuery(ctx context.Context, query string, resultCount int) error {
	_, err := s.db.Create(ctx, searchesCollection, map[string]any{
		"query":       query,
		"resultCount": resultCount,
		"timestamp":   docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("search audit: %w", err)
	}
	return nil
}

func (s *Searches) RecordEmotion(ctx context.Context, emotion string, resultCount int) error {
	_, err := s.db.Create(ctx, searchesCollection, map[string]any{
		"type":        "emotion",
		"emotion":     emotion,
		"resultCount": resultCount,
		"timestamp":   docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("search audit: %w", err)
	}
	return nil
}
