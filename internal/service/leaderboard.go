package service

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"questmart/internal/model"
)

// LeaderboardRanker ranks users over a ledger snapshot. Ties on the chosen
// metric fall back to questCoins desc, questsCompleted desc, then user id asc,
// so equal input always yields the same order and every rank is distinct.
type LeaderboardRanker struct {
	ledger *UserLedger
}

func NewLeaderboardRanker(ledger *UserLedger) *LeaderboardRanker {
	return &LeaderboardRanker{ledger: ledger}
}

func (r *LeaderboardRanker) Rank(ctx context.Context, metric model.Metric, direction model.Direction) ([]model.LeaderboardEntry, error) {
	return r.Top(ctx, metric, direction, 0)
}

// Top returns the first n entries of Rank. n <= 0 returns all of them.
func (r *LeaderboardRanker) Top(ctx context.Context, metric model.Metric, direction model.Direction, n int) ([]model.LeaderboardEntry, error) {
	if _, err := model.ParseMetric(string(metric)); err != nil {
		return nil, ErrInvalidMetric
	}
	if _, err := model.ParseDirection(string(direction)); err != nil {
		return nil, ErrInvalidDirection
	}

	users, err := r.ledger.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = model.LeaderboardEntry{
			UserID:          u.ID,
			Name:            u.Name,
			Avatar:          u.Avatar,
			Level:           u.Level,
			QuestCoins:      u.QuestCoins,
			QuestsCompleted: u.CompletedCount(),
		}
	}

	slices.SortFunc(entries, compareEntries(metric, direction))

	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func compareEntries(metric model.Metric, direction model.Direction) func(a, b model.LeaderboardEntry) int {
	return func(a, b model.LeaderboardEntry) int {
		var c int
		switch metric {
		case model.MetricLevel:
			c = cmp.Compare(a.Level, b.Level)
		case model.MetricQuestCoins:
			c = cmp.Compare(a.QuestCoins, b.QuestCoins)
		case model.MetricQuestsCompleted:
			c = cmp.Compare(a.QuestsCompleted, b.QuestsCompleted)
		}
		if direction == model.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		if c = cmp.Compare(b.QuestCoins, a.QuestCoins); c != 0 {
			return c
		}
		if c = cmp.Compare(b.QuestsCompleted, a.QuestsCompleted); c != 0 {
			return c
		}
		return strings.Compare(a.UserID, b.UserID)
	}
}
