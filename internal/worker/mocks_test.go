package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"finrag/features/job"
	"finrag/internal/pipeline"
)

type MockRunner struct{ mock.Mock }

func (m *MockRunner) Run(ctx context.Context, userID string) (*pipeline.Result, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Result), args.Error(1)
}

type MockJobStore struct{ mock.Mock }

func (m *MockJobStore) Save(ctx context.Context, j *job.Job) error {
	return m.Called(ctx, j).Error(0)
}

func (m *MockJobStore) DeleteByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) NotifyFailure(ctx context.Context, userID, stage string, cause error) error {
	return m.Called(ctx, userID, stage, cause).Error(0)
}
