// Package store provides typed accessors over the document store for the
// collections the core works with.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avelichko/memorylane/internal/docstore"
	"github.com/avelichko/memorylane/internal/memory/models"
)

const (
	videosCollection        = "videos"
	conversationsCollection = "conversations"
	searchesCollection      = "searches"
)

type Videos struct {
	db docstore.Store
}

func NewVideos(db docstore.Store) *Videos {
	return &Videos{db: db}
}

func (s *Videos) Get(ctx context.Context, id string) (*models.VideoRecord, error) {
	if id == "" {
		return nil, models.ErrInvalidArgument
	}
	doc, err := s.db.Get(ctx, videosCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("video get: %w", err)
	}
	return decodeVideo(doc)
}

func (s *Videos) Create(ctx context.Context, v *models.VideoRecord) (string, error) {
	if v == nil {
		return "", models.ErrInvalidArgument
	}
	fields, err := toFields(v)
	if err != nil {
		return "", fmt.Errorf("video encode: %w", err)
	}
	id, err := s.db.Create(ctx, videosCollection, fields)
	if err != nil {
		return "", fmt.Errorf("video create: %w", err)
	}
	return id, nil
}

// Update merges partial fields into the video document.
func (s *Videos) Update(ctx context.Context, id string, fields map[string]any) error {
	if id == "" {
		return models.ErrInvalidArgument
	}
	if err := s.db.Update(ctx, videosCollection, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("video update: %w", err)
	}
	return nil
}

func (s *Videos) Delete(ctx context.Context, id string) error {
	if id == "" {
		return models.ErrInvalidArgument
	}
	if err := s.db.Delete(ctx, videosCollection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("video delete: %w", err)
	}
	return nil
}

// Recent returns the most recently uploaded videos, newest first.
func (s *Videos) Recent(ctx context.Context, limit int) ([]models.VideoRecord, error) {
	docs, err := s.db.Query(ctx, videosCollection, docstore.Query{
		OrderBy:     "uploadedAt",
		OrderByTime: true,
		Desc:        true,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("video recent: %w", err)
	}
	return decodeVideos(docs)
}

// FindByProviderVideoID resolves a video by the id the index provider
// assigned to it.
func (s *Videos) FindByProviderVideoID(ctx context.Context, providerVideoID string) (*models.VideoRecord, error) {
	if providerVideoID == "" {
		return nil, models.ErrInvalidArgument
	}
	docs, err := s.db.Query(ctx, videosCollection, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "twelveLabsVideoId", Op: docstore.OpEq, Value: providerVideoID},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("video find by provider id: %w", err)
	}
	if len(docs) == 0 {
		return nil, models.ErrNotFound
	}
	return decodeVideo(docs[0])
}

// Completed returns all fully indexed videos, oldest upload first.
func (s *Videos) Completed(ctx context.Context) ([]models.VideoRecord, error) {
	docs, err := s.db.Query(ctx, videosCollection, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "indexingStatus", Op: docstore.OpEq, Value: string(models.IndexingCompleted)},
		},
		OrderBy:     "uploadedAt",
		OrderByTime: true,
	})
	if err != nil {
		return nil, fmt.Errorf("video completed: %w", err)
	}
	return decodeVideos(docs)
}

// ByEmotion returns completed videos carrying the given emotion tag.
func (s *Videos) ByEmotion(ctx context.Context, emotion string, limit int) ([]models.VideoRecord, error) {
	if emotion == "" {
		return nil, models.ErrInvalidArgument
	}
	docs, err := s.db.Query(ctx, videosCollection, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "indexingStatus", Op: docstore.OpEq, Value: string(models.IndexingCompleted)},
			{Field: "emotionTags", Op: docstore.OpArrayContains, Value: emotion},
		},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("video by emotion: %w", err)
	}
	return decodeVideos(docs)
}

func decodeVideo(doc docstore.Document) (*models.VideoRecord, error) {
	var v models.VideoRecord
	if err := doc.Decode(&v); err != nil {
		return nil, fmt.Errorf("video decode: %w", err)
	}
	v.ID = doc.ID
	return &v, nil
}

func decodeVideos(docs []docstore.Document) ([]models.VideoRecord, error) {
	out := make([]models.VideoRecord, 0, len(docs))
	for _, doc := range docs {
		v, err := decodeVideo(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// toFields flattens a struct into a document fields map via JSON, dropping
// the id which lives outside the document body.
func toFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "id")
	return fields, nil
}
