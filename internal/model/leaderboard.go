package model

import (
	"fmt"
	"strings"
)

type Metric string

const (
	MetricLevel           Metric = "level"
	MetricQuestCoins      Metric = "questCoins"
	MetricQuestsCompleted Metric = "questsCompleted"
)

func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "level":
		return MetricLevel, nil
	case "questcoins", "quest_coins":
		return MetricQuestCoins, nil
	case "questscompleted", "quests_completed":
		return MetricQuestsCompleted, nil
	}
	return "", fmt.Errorf("unknown leaderboard metric %q", s)
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// LeaderboardEntry is a derived projection of a User, never stored.
type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	Avatar          string `json:"avatar"`
	Level           int    `json:"level"`
	QuestCoins      int64  `json:"quest_coins"`
	QuestsCompleted int    `json:"quests_completed"`
}
