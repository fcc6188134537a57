package outbox

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/avelichko/memorylane/internal/memory/models"
)

// EventWriter is where lifecycle events land before delivery.
type EventWriter interface {
	Add(ctx context.Context, event models.DomainEvent) error
}

// Sink adapts the outbox to the indexer's event hook. Writes are
// best-effort: a failed insert loses the event but never the transition.
type Sink struct {
	writer EventWriter
	log    zerolog.Logger
}

func NewSink(writer EventWriter, logger zerolog.Logger) *Sink {
	return &Sink{
		writer: writer,
		log:    logger.With().Str("component", "event_sink").Logger(),
	}
}

func (s *Sink) StatusChanged(ctx context.Context, videoID string, from, to models.IndexingStatus) {
	event := models.NewVideoIndexingStatusChanged(videoID, from, to)
	if err := s.writer.Add(ctx, event); err != nil {
		s.log.Error().
			Err(err).
			Str("video_id", videoID).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("failed to record status change event")
	}
}
