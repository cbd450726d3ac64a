package service

import (
	"context"
	"sync"
	"testing"

	"questmart/internal/model"
	"questmart/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testQuests() []model.Quest {
	return []model.Quest{
		{ID: "1", Title: "Daily Login", Description: "Log in to the app", Type: model.QuestTypeDaily, Difficulty: model.DifficultyEasy, Reward: 50},
		{ID: "2", Title: "Weekly Challenge", Description: "Complete 5 tasks", Type: model.QuestTypeWeekly, Difficulty: model.DifficultyMedium, Reward: 200},
		{ID: "3", Title: "Social Butterfly", Description: "Connect with friends", Type: model.QuestTypeSocial, Difficulty: model.DifficultyMedium, Reward: 150},
		{ID: "4", Title: "Exclusive Event", Description: "Join the launch", Type: model.QuestTypeExclusive, Difficulty: model.DifficultyHard, Reward: 500},
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]Message
}

func (n *recordingNotifier) Notify(_ context.Context, userID string, msg Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[string][]Message)
	}
	n.sent[userID] = append(n.sent[userID], msg)
}

func (n *recordingNotifier) messages(userID string) []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent[userID]...)
}

type fixture struct {
	store    *repository.MemoryStore
	svc      *Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog, err := NewQuestCatalog(testQuests())
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	notifier := &recordingNotifier{}
	ledger := NewUserLedger(store, DefaultLevelPolicy(), LedgerConfig{StartingBalance: 100, StartingLevel: 1})
	tracker := NewProgressTracker(store, catalog)
	rewards := NewRewardEngine(store, ledger, tracker, catalog, notifier, zap.NewNop())
	ranker := NewLeaderboardRanker(ledger)

	return &fixture{
		store:    store,
		svc:      NewService(ledger, catalog, tracker, rewards, ranker),
		notifier: notifier,
	}
}

func (f *fixture) createUser(t *testing.T, id string, balance int64) *model.User {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), model.NewUser{
		ID:              id,
		Name:            "user " + id,
		StartingBalance: &balance,
	})
	require.NoError(t, err)
	return u
}
