package mocks

import (
	"context"

	"questmart/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockStore satisfies both service.LedgerRepository and
// service.ProgressRepository. WithUserLock runs fn unless the expectation
// returns an error.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, userID)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

func (m *MockStore) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockStore) UpdateUserWallet(ctx context.Context, userID string, questCoins, lifetimeEarned int64, level int) error {
	args := m.Called(ctx, userID, questCoins, lifetimeEarned, level)
	return args.Error(0)
}

func (m *MockStore) AddCompletedQuest(ctx context.Context, userID, questID string) (bool, error) {
	args := m.Called(ctx, userID, questID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) GetProgress(ctx context.Context, userID, questID string) (*model.QuestProgress, error) {
	args := m.Called(ctx, userID, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuestProgress), args.Error(1)
}

func (m *MockStore) ListProgress(ctx context.Context, userID string) ([]*model.QuestProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestProgress), args.Error(1)
}

func (m *MockStore) SaveProgress(ctx context.Context, progress *model.QuestProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}
