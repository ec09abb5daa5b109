package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"recommender/models"
)

// MockRunStore is a mock implementation of RunStore
type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) RecordRun(ctx context.Context, run *models.TrainingRun, recs []*models.Recommendation) error {
	args := m.Called(ctx, run, recs)
	return args.Error(0)
}
