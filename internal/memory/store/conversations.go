package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avelichko/memorylane/internal/docstore"
	"github.com/avelichko/memorylane/internal/memory/models"
)

type Conversations struct {
	db docstore.Store
}

func NewConversations(db docstore.Store) *Conversations {
	return &Conversations{db: db}
}

func (s *Conversations) Get(ctx context.Context, id string) (*models.Conversation, error) {
	if id == "" {
		return nil, models.ErrInvalidArgument
	}
	doc, err := s.db.Get(ctx, conversationsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("conversation get: %w", err)
	}
	var c models.Conversation
	if err := doc.Decode(&c); err != nil {
		return nil, fmt.Errorf("conversation decode: %w", err)
	}
	c.ID = doc.ID
	return &c, nil
}

func (s *Conversations) Create(ctx context.Context) (string, error) {
	id, err := s.db.Create(ctx, conversationsCollection, map[string]any{
		"createdAt": docstore.ServerTimestamp,
		"messages":  []any{},
	})
	if err != nil {
		return "", fmt.Errorf("conversation create: %w", err)
	}
	return id, nil
}

// AppendExchange appends the user message and the assistant reply as one
// atomic append. Messages are never mutated after this.
func (s *Conversations) AppendExchange(ctx context.Context, id string, user, assistant models.Message) error {
	if id == "" {
		return models.ErrInvalidArgument
	}
	userFields, err := toFields(user)
	if err != nil {
		return fmt.Errorf("message encode: %w", err)
	}
	assistantFields, err := toFields(assistant)
	if err != nil {
		return fmt.Errorf("message encode: %w", err)
	}
	if err := s.db.ArrayAppend(ctx, conversationsCollection, id, "messages", userFields, assistantFields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.ErrNotFound
		}
		return fmt.Errorf("conversation append: %w", err)
	}
	// Bumping updatedAt is cosmetic; the append above is the durable part.
	_ = s.db.Update(ctx, conversationsCollection, id, map[string]any{
		"updatedAt": docstore.ServerTimestamp,
	})
	return nil
}
