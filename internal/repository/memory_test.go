package repository

import (
	"context"
	"errors"
	"testing"

	"questmart/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T, ids ...string) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	for _, id := range ids {
		require.NoError(t, s.CreateUser(context.Background(), &model.User{
			ID:                id,
			Name:              id,
			Level:             1,
			QuestCoins:        100,
			CompletedQuestIDs: []string{},
		}))
	}
	return s
}

func TestMemoryStore_CreateUser(t *testing.T) {
	s := seedMemory(t, "u1")

	err := s.CreateUser(context.Background(), &model.User{ID: "u1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_WithUserLock_Rollback(t *testing.T) {
	ctx := context.Background()
	s := seedMemory(t, "u1")
	boom := errors.New("boom")

	err := s.WithUserLock(ctx, "u1", func(ctx context.Context) error {
		require.NoError(t, s.UpdateUserWallet(ctx, "u1", 500, 400, 2))
		_, err := s.AddCompletedQuest(ctx, "u1", "q1")
		require.NoError(t, err)
		require.NoError(t, s.SaveProgress(ctx, &model.QuestProgress{
			UserID: "u1", QuestID: "q1", State: model.StateCompleted, Progress: 100,
		}))

		staged, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(500), staged.QuestCoins)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.QuestCoins)
	assert.Empty(t, u.CompletedQuestIDs)

	_, err = s.GetProgress(ctx, "u1", "q1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_WithUserLock_Isolation(t *testing.T) {
	ctx := context.Background()
	s := seedMemory(t, "u1", "u2")

	err := s.WithUserLock(ctx, "u1", func(ctx context.Context) error {
		require.NoError(t, s.UpdateUserWallet(ctx, "u1", 900, 800, 1))

		users, err := s.ListUsers(context.Background())
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, int64(100), users[0].QuestCoins)

		committed, err := s.GetUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(100), committed.QuestCoins)
		return nil
	})
	require.NoError(t, err)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, int64(900), users[0].QuestCoins)
	assert.Equal(t, "u2", users[1].ID)
}

func TestMemoryStore_WithUserLock_Nesting(t *testing.T) {
	ctx := context.Background()
	s := seedMemory(t, "u1", "u2")

	calls := 0
	err := s.WithUserLock(ctx, "u1", func(ctx context.Context) error {
		return s.WithUserLock(ctx, "u1", func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	err = s.WithUserLock(ctx, "u1", func(ctx context.Context) error {
		return s.WithUserLock(ctx, "u2", func(ctx context.Context) error {
			return nil
		})
	})
	assert.ErrorIs(t, err, ErrNestedLock)

	err = s.WithUserLock(ctx, "ghost", func(ctx context.Context) error {
		t.Fatal("fn must not run for an unknown user")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Wallet(t *testing.T) {
	ctx := context.Background()
	s := seedMemory(t, "u1")

	assert.Error(t, s.UpdateUserWallet(ctx, "u1", -1, 0, 1))
	assert.Error(t, s.UpdateUserWallet(ctx, "u1", 0, 0, 0))
	assert.ErrorIs(t, s.UpdateUserWallet(ctx, "ghost", 1, 1, 1), ErrNotFound)

	already, err := s.AddCompletedQuest(ctx, "u1", "q1")
	require.NoError(t, err)
	assert.False(t, already)
	already, err = s.AddCompletedQuest(ctx, "u1", "q1")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestMemoryStore_Progress(t *testing.T) {
	ctx := context.Background()
	s := seedMemory(t, "u1")

	require.NoError(t, s.SaveProgress(ctx, &model.QuestProgress{
		UserID: "u1", QuestID: "q2", State: model.StateInProgress, Progress: 10,
	}))
	require.NoError(t, s.SaveProgress(ctx, &model.QuestProgress{
		UserID: "u1", QuestID: "q1", State: model.StateCompleted, Progress: 100,
	}))
	require.NoError(t, s.SaveProgress(ctx, &model.QuestProgress{
		UserID: "u1", QuestID: "q1", State: model.StateInProgress, Progress: 5,
	}))
	assert.Error(t, s.SaveProgress(ctx, &model.QuestProgress{
		UserID: "u1", QuestID: "q3", State: model.StateInProgress, Progress: 101,
	}))

	p, err := s.GetProgress(ctx, "u1", "q1")
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, p.State)

	list, err := s.ListProgress(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "q1", list[0].QuestID)
	assert.Equal(t, "q2", list[1].QuestID)

	p.Progress = 0
	again, err := s.GetProgress(ctx, "u1", "q1")
	require.NoError(t, err)
	assert.Equal(t, 100, again.Progress)
}
