package httpapi

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/avelichko/memorylane/internal/memory/chat"
	"github.com/avelichko/memorylane/internal/memory/indexer"
	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/memory/search"
	"github.com/avelichko/memorylane/internal/memory/timeline"
)

type IndexerMock struct {
	mock.Mock
}

func (m *IndexerMock) StartIndexing(ctx context.Context, videoID string, force bool) (*indexer.StartResult, error) {
	args := m.Called(ctx, videoID, force)
	if res := args.Get(0); res != nil {
		return res.(*indexer.StartResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IndexerMock) HandleWebhook(ctx context.Context, ev indexer.WebhookEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type SearcherMock struct {
	mock.Mock
}

func (m *SearcherMock) Search(ctx context.Context, query string, opts search.Options) ([]models.RankedResult, error) {
	args := m.Called(ctx, query, opts)
	if res := args.Get(0); res != nil {
		return res.([]models.RankedResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type ChatterMock struct {
	mock.Mock
}

func (m *ChatterMock) Respond(ctx context.Context, conversationID, message string) (*chat.Response, error) {
	args := m.Called(ctx, conversationID, message)
	if res := args.Get(0); res != nil {
		return res.(*chat.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

type TimelineMock struct {
	mock.Mock
}

func (m *TimelineMock) Build(ctx context.Context) (*timeline.Timeline, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(*timeline.Timeline), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimelineMock) Emotions(ctx context.Context) (*timeline.EmotionStats, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(*timeline.EmotionStats), args.Error(1)
	}
	return nil, args.Error(1)
}

// blobRecorder captures uploads and deletions in memory.
type blobRecorder struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	deleted   []string
	uploadErr error
}

func newBlobRecorder() *blobRecorder {
	return &blobRecorder{uploads: map[string][]byte{}}
}

func (b *blobRecorder) Upload(_ context.Context, path string, r io.Reader, _ string) (string, error) {
	if b.uploadErr != nil {
		return "", b.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads[path] = data
	return "http://localhost:8080/media/" + path, nil
}

func (b *blobRecorder) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, path)
	return nil
}
