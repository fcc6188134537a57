package analyzer

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/avelichko/memorylane/internal/providers/twelvelabs"
)

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) Analyze(ctx context.Context, req twelvelabs.AnalyzeRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(json.RawMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProviderMock) GetVideo(ctx context.Context, indexID, videoID string) (*twelvelabs.VideoInfo, error) {
	args := m.Called(ctx, indexID, videoID)
	if v := args.Get(0); v != nil {
		return v.(*twelvelabs.VideoInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

type TextMock struct {
	mock.Mock
}

func (m *TextMock) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
