package indexer

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/avelichko/memorylane/internal/memory/analyzer"
	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/providers/twelvelabs"
)

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) ListIndexes(ctx context.Context) ([]twelvelabs.Index, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]twelvelabs.Index), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProviderMock) CreateIndex(ctx context.Context, name string, engines []twelvelabs.Engine) (*twelvelabs.Index, error) {
	args := m.Called(ctx, name, engines)
	if v := args.Get(0); v != nil {
		return v.(*twelvelabs.Index), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProviderMock) CreateTask(ctx context.Context, indexID, videoURL string) (*twelvelabs.Task, error) {
	args := m.Called(ctx, indexID, videoURL)
	if v := args.Get(0); v != nil {
		return v.(*twelvelabs.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProviderMock) GetTask(ctx context.Context, taskID string) (*twelvelabs.TaskStatus, error) {
	args := m.Called(ctx, taskID)
	if v := args.Get(0); v != nil {
		return v.(*twelvelabs.TaskStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

// analyzerStub returns a fixed result without touching any provider.
type analyzerStub struct {
	result analyzer.Result
}

func (s analyzerStub) Analyze(ctx context.Context, video *models.VideoRecord) analyzer.Result {
	return s.result
}

// sinkRecorder captures lifecycle transitions for assertions.
type sinkRecorder struct {
	mu          sync.Mutex
	transitions []string
}

func (s *sinkRecorder) StatusChanged(_ context.Context, videoID string, from, to models.IndexingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, string(from)+"->"+string(to))
}

func (s *sinkRecorder) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.transitions))
	copy(out, s.transitions)
	return out
}
