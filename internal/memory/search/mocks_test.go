package search

import (
	"context"

	"github.com/stretchr/testify/mock"

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

func (m *ProviderMock) Search(ctx context.Context, req twelvelabs.SearchRequest) ([]twelvelabs.SearchHit, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.([]twelvelabs.SearchHit), args.Error(1)
	}
	return nil, args.Error(1)
}
