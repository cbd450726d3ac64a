package model

import (
	"fmt"
	"strings"
)

type QuestType string

const (
	QuestTypeDaily     QuestType = "daily"
	QuestTypeWeekly    QuestType = "weekly"
	QuestTypeSocial    QuestType = "social"
	QuestTypeExclusive QuestType = "exclusive"
)

func ParseQuestType(s string) (QuestType, error) {
	switch t := QuestType(strings.ToLower(strings.TrimSpace(s))); t {
	case QuestTypeDaily, QuestTypeWeekly, QuestTypeSocial, QuestTypeExclusive:
		return t, nil
	}
	return "", fmt.Errorf("unknown quest type %q", s)
}

func (t *QuestType) UnmarshalText(text []byte) error {
	parsed, err := ParseQuestType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Weight orders difficulties from easy to hard.
func (d Difficulty) Weight() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	}
	return 0
}

// Quest is an immutable quest definition. TimeLimit is in minutes and
// Participants is only meaningful for social quests.
type Quest struct {
	ID           string     `yaml:"id" json:"id"`
	Title        string     `yaml:"title" json:"title"`
	Description  string     `yaml:"description" json:"description"`
	Type         QuestType  `yaml:"type" json:"type"`
	Difficulty   Difficulty `yaml:"difficulty" json:"difficulty"`
	Reward       int64      `yaml:"reward" json:"reward"`
	TimeLimit    *int       `yaml:"timeLimit,omitempty" json:"time_limit,omitempty"`
	Participants *int       `yaml:"participants,omitempty" json:"participants,omitempty"`
	Image        string     `yaml:"image,omitempty" json:"image,omitempty"`
}

// Validate checks the constraints a catalog entry must satisfy.
func (q *Quest) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("quest id is required")
	}
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("quest %s: title is required", q.ID)
	}
	if _, err := ParseQuestType(string(q.Type)); err != nil {
		return fmt.Errorf("quest %s: %w", q.ID, err)
	}
	if _, err := ParseDifficulty(string(q.Difficulty)); err != nil {
		return fmt.Errorf("quest %s: %w", q.ID, err)
	}
	if q.Reward <= 0 {
		return fmt.Errorf("quest %s: reward must be positive, got %d", q.ID, q.Reward)
	}
	if q.TimeLimit != nil && *q.TimeLimit <= 0 {
		return fmt.Errorf("quest %s: time limit must be positive", q.ID)
	}
	if q.Participants != nil {
		if q.Type != QuestTypeSocial {
			return fmt.Errorf("quest %s: participants only apply to social quests", q.ID)
		}
		if *q.Participants < 0 {
			return fmt.Errorf("quest %s: participants must not be negative", q.ID)
		}
	}
	return nil
}

// QuestFilter narrows a catalog listing. Zero values match everything.
type QuestFilter struct {
	Type       *QuestType
	Difficulty *Difficulty
	Search     string
}

func (f QuestFilter) Match(q *Quest) bool {
	if f.Type != nil && q.Type != *f.Type {
		return false
	}
	if f.Difficulty != nil && q.Difficulty != *f.Difficulty {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(q.Title), needle) &&
			!strings.Contains(strings.ToLower(q.Description), needle) {
			return false
		}
	}
	return true
}

type QuestSortField string

const (
	QuestSortNone       QuestSortField = ""
	QuestSortReward     QuestSortField = "reward"
	QuestSortDifficulty QuestSortField = "difficulty"
	QuestSortTitle      QuestSortField = "title"
)

func ParseQuestSortField(s string) (QuestSortField, error) {
	switch f := QuestSortField(strings.ToLower(strings.TrimSpace(s))); f {
	case QuestSortNone, QuestSortReward, QuestSortDifficulty, QuestSortTitle:
		return f, nil
	}
	return "", fmt.Errorf("unknown quest sort field %q", s)
}

type QuestSort struct {
	Field     QuestSortField
	Direction Direction
}
