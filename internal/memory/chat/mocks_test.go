package chat

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/avelichko/memorylane/internal/memory/models"
	"github.com/avelichko/memorylane/internal/memory/search"
)

type RankerMock struct {
	mock.Mock
}

func (m *RankerMock) Search(ctx context.Context, query string, opts search.Options) ([]models.RankedResult, error) {
	args := m.Called(ctx, query, opts)
	if v := args.Get(0); v != nil {
		return v.([]models.RankedResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type GeneratorMock struct {
	mock.Mock
}

func (m *GeneratorMock) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
