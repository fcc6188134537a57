package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// VideoIndexingStatusChanged is emitted on every indexing lifecycle
// transition and shipped to Kafka through the outbox.
type VideoIndexingStatusChanged struct {
	eventID    uuid.UUID
	videoID    string
	from       IndexingStatus
	to         IndexingStatus
	occurredAt time.Time
}

func NewVideoIndexingStatusChanged(videoID string, from, to IndexingStatus) *VideoIndexingStatusChanged {
	return &VideoIndexingStatusChanged{
		eventID:    uuid.New(),
		videoID:    videoID,
		from:       from,
		to:         to,
		occurredAt: time.Now(),
	}
}

func (e *VideoIndexingStatusChanged) EventID() uuid.UUID    { return e.eventID }
func (e *VideoIndexingStatusChanged) EventType() string     { return "VideoIndexingStatusChanged" }
func (e *VideoIndexingStatusChanged) AggregateID() string   { return e.videoID }
func (e *VideoIndexingStatusChanged) OccurredAt() time.Time { return e.occurredAt }

func (e *VideoIndexingStatusChanged) From() IndexingStatus { return e.from }
func (e *VideoIndexingStatusChanged) To() IndexingStatus   { return e.to }

func (e *VideoIndexingStatusChanged) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID    uuid.UUID      `json:"event_id"`
		VideoID    string         `json:"video_id"`
		From       IndexingStatus `json:"from"`
		To         IndexingStatus `json:"to"`
		OccurredAt time.Time      `json:"occurred_at"`
	}{
		EventID:    e.eventID,
		VideoID:    e.videoID,
		From:       e.from,
		To:         e.to,
		OccurredAt: e.occurredAt,
	})
}
