package budget_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"finrag/features/budget"
	"finrag/features/transaction"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Save(ctx context.Context, b *budget.Budget) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockRepo) Get(ctx context.Context, userID, id string) (*budget.Budget, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budget.Budget), args.Error(1)
}

func (m *MockRepo) List(ctx context.Context, userID string) ([]budget.Budget, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.Budget), args.Error(1)
}

func (m *MockRepo) Update(ctx context.Context, b *budget.Budget) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockRepo) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) List(ctx context.Context, userID string, f transaction.Filter) ([]transaction.Transaction, error) {
	args := m.Called(ctx, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transaction.Transaction), args.Error(1)
}
