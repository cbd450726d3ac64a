package model

import "time"

type ProgressState string

const (
	StateNotStarted ProgressState = "not_started"
	StateInProgress ProgressState = "in_progress"
	StateCompleted  ProgressState = "completed"
)

const MaxProgress = 100

// QuestProgress is the per (user, quest) lifecycle record. Progress is only
// meaningful while InProgress and is 100 once Completed.
type QuestProgress struct {
	UserID      string        `json:"user_id"`
	QuestID     string        `json:"quest_id"`
	State       ProgressState `json:"state"`
	Progress    int           `json:"progress"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

func NotStarted(userID, questID string) *QuestProgress {
	return &QuestProgress{
		UserID:  userID,
		QuestID: questID,
		State:   StateNotStarted,
	}
}

func (p *QuestProgress) Clone() *QuestProgress {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// UserQuest is a catalog quest overlaid with one user's progress.
type UserQuest struct {
	Quest    Quest         `json:"quest"`
	Progress QuestProgress `json:"progress"`
}
