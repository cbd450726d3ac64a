package model

import (
	"slices"
	"time"
)

type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Avatar            string    `json:"avatar"`
	Level             int       `json:"level"`
	QuestCoins        int64     `json:"quest_coins"`
	LifetimeEarned    int64     `json:"lifetime_earned"`
	CompletedQuestIDs []string  `json:"completed_quest_ids"`
	Interests         []string  `json:"interests"`
	CreatedAt         time.Time `json:"created_at"`
}

func (u *User) HasCompleted(questID string) bool {
	return slices.Contains(u.CompletedQuestIDs, questID)
}

func (u *User) CompletedCount() int {
	return len(u.CompletedQuestIDs)
}

// Clone returns a deep copy so stores can hand out records without sharing slices.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.CompletedQuestIDs = slices.Clone(u.CompletedQuestIDs)
	c.Interests = slices.Clone(u.Interests)
	return &c
}

// NewUser carries onboarding input.
type NewUser struct {
	ID              string
	Name            string
	Avatar          string
	Interests       []string
	StartingBalance *int64
	StartingLevel   *int
}
