package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/memorylane/internal/memory/models"
)

type writerStub struct {
	events []models.DomainEvent
	err    error
}

func (w *writerStub) Add(_ context.Context, event models.DomainEvent) error {
	if w.err != nil {
		return w.err
	}
	w.events = append(w.events, event)
	return nil
}

func TestSink_StatusChanged(t *testing.T) {
	writer := &writerStub{}
	sink := NewSink(writer, zerolog.Nop())

	sink.StatusChanged(context.Background(), "vid-1", models.IndexingPending, models.IndexingRunning)

	require.Len(t, writer.events, 1)
	event := writer.events[0]
	assert.Equal(t, "VideoIndexingStatusChanged", event.EventType())
	assert.Equal(t, "vid-1", event.AggregateID())

	payload, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"from":"pending"`)
	assert.Contains(t, string(payload), `"to":"indexing"`)
}

func TestSink_WriteFailureIsSwallowed(t *testing.T) {
	writer := &writerStub{err: errors.New("connection lost")}
	sink := NewSink(writer, zerolog.Nop())

	// Must not panic or propagate; the transition already happened.
	sink.StatusChanged(context.Background(), "vid-1", models.IndexingRunning, models.IndexingCompleted)
	assert.Empty(t, writer.events)
}
