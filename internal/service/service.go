package service

import (
	"context"
	"errors"

	"questmart/internal/model"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrQuestNotFound        = errors.New("quest not found")
	ErrInvalidQuest         = errors.New("invalid quest definition")
	ErrAlreadyStarted       = errors.New("quest already started")
	ErrQuestNotStarted      = errors.New("quest not started")
	ErrQuestCompleted       = errors.New("quest already completed")
	ErrInvalidProgressValue = errors.New("invalid progress value")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientFunds    = errors.New("insufficient quest coins")
	ErrInvalidMetric        = errors.New("invalid leaderboard metric")
	ErrInvalidDirection     = errors.New("invalid sort direction")
	ErrInvalidUser          = errors.New("invalid user")
)

// Service bundles the core components for the presentation layer.
type Service struct {
	*UserLedger
	Catalog     *QuestCatalog
	Progress    *ProgressTracker
	Rewards     *RewardEngine
	Leaderboard *LeaderboardRanker
	Projector   *Projector
}

func NewService(
	ledger *UserLedger,
	catalog *QuestCatalog,
	tracker *ProgressTracker,
	rewards *RewardEngine,
	ranker *LeaderboardRanker,
) *Service {
	return &Service{
		UserLedger:  ledger,
		Catalog:     catalog,
		Progress:    tracker,
		Rewards:     rewards,
		Leaderboard: ranker,
		Projector:   NewProjector(catalog, ledger, tracker),
	}
}

// UserLocker serializes every mutation of one user's records. fn runs with
// exclusive access to the user and its writes are applied all or nothing.
// Calls nest for the same user through ctx.
type UserLocker interface {
	WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error
}

type LedgerRepository interface {
	UserLocker
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, userID string) (*model.User, error)
	// ListUsers returns a consistent snapshot of all users.
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateUserWallet(ctx context.Context, userID string, questCoins, lifetimeEarned int64, level int) error
	// AddCompletedQuest reports whether questID was already in the set.
	AddCompletedQuest(ctx context.Context, userID, questID string) (bool, error)
}

type ProgressRepository interface {
	UserLocker
	GetProgress(ctx context.Context, userID, questID string) (*model.QuestProgress, error)
	ListProgress(ctx context.Context, userID string) ([]*model.QuestProgress, error)
	SaveProgress(ctx context.Context, progress *model.QuestProgress) error
}

// Message is pushed to a user's live connections.
type Message struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, userID string, msg Message)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, Message) {}

type UserServiceI interface {
	CreateUser(ctx context.Context, in model.NewUser) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	Profile(ctx context.Context, userID string) (*Profile, error)
}

type QuestServiceI interface {
	StartQuest(ctx context.Context, userID, questID string) (*model.QuestProgress, error)
	AdvanceQuest(ctx context.Context, userID, questID string, progress int) (*model.QuestProgress, error)
	CompleteQuest(ctx context.Context, userID, questID string) (*CompletionResult, error)
}
