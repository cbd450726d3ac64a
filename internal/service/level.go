package service

import "questmart/internal/model"

// LevelPolicy derives a level from completed quests and lifetime earnings.
// A zero divisor disables its term. The result is monotonic non-decreasing in
// both inputs.
type LevelPolicy struct {
	QuestsPerLevel int
	CoinsPerLevel  int64
}

func DefaultLevelPolicy() LevelPolicy {
	return LevelPolicy{QuestsPerLevel: 5}
}

func (p LevelPolicy) Level(completed int, lifetimeEarned int64) int {
	level := 1
	if p.QuestsPerLevel > 0 {
		level = max(level, 1+completed/p.QuestsPerLevel)
	}
	if p.CoinsPerLevel > 0 {
		level = max(level, 1+int(lifetimeEarned/p.CoinsPerLevel))
	}
	return level
}

// LevelFor never reports less than the level already stored on the user, so
// onboarding levels and past promotions are kept.
func (p LevelPolicy) LevelFor(u *model.User) int {
	return max(u.Level, p.Level(u.CompletedCount(), u.LifetimeEarned))
}

// NextLevelQuests returns how many completed quests the user has inside the
// current quest band and the band width. Zero width means quest-based
// leveling is disabled.
func (p LevelPolicy) NextLevelQuests(u *model.User) (done, width int) {
	if p.QuestsPerLevel <= 0 {
		return 0, 0
	}
	return u.CompletedCount() % p.QuestsPerLevel, p.QuestsPerLevel
}
