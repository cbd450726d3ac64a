package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"questmart/internal/model"
	"questmart/internal/repository"

	"github.com/google/uuid"
)

const (
	DefaultStartingBalance int64 = 100
	DefaultStartingLevel         = 1
)

type LedgerConfig struct {
	StartingBalance int64
	StartingLevel   int
}

// UserLedger is the source of truth for wallets and completed-quest sets.
type UserLedger struct {
	repo     LedgerRepository
	policy   LevelPolicy
	defaults LedgerConfig
	now      func() time.Time
}

func NewUserLedger(repo LedgerRepository, policy LevelPolicy, cfg LedgerConfig) *UserLedger {
	if cfg.StartingLevel < 1 {
		cfg.StartingLevel = DefaultStartingLevel
	}
	if cfg.StartingBalance < 0 {
		cfg.StartingBalance = DefaultStartingBalance
	}
	return &UserLedger{
		repo:     repo,
		policy:   policy,
		defaults: cfg,
		now:      time.Now,
	}
}

// CreateUser is the onboarding entry point and the only creator of users.
func (l *UserLedger) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidUser)
	}

	balance := l.defaults.StartingBalance
	if in.StartingBalance != nil {
		balance = *in.StartingBalance
	}
	if balance < 0 {
		return nil, fmt.Errorf("%w: starting balance must not be negative", ErrInvalidAmount)
	}

	level := l.defaults.StartingLevel
	if in.StartingLevel != nil {
		level = *in.StartingLevel
	}
	if level < 1 {
		return nil, fmt.Errorf("%w: starting level must be at least 1", ErrInvalidUser)
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}

	avatar := strings.TrimSpace(in.Avatar)
	if avatar == "" {
		avatar = avatarGlyph(name)
	}

	user := &model.User{
		ID:                id,
		Name:              name,
		Avatar:            avatar,
		Level:             level,
		QuestCoins:        balance,
		CompletedQuestIDs: []string{},
		Interests:         dedupe(in.Interests),
		CreatedAt:         l.now().UTC(),
	}

	if err := l.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user.Clone(), nil
}

func (l *UserLedger) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := l.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Credit adds amount to the balance and to lifetime earnings and returns the
// new balance.
func (l *UserLedger) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := l.withUser(ctx, userID, func(ctx context.Context, user *model.User) error {
		user.QuestCoins += amount
		user.LifetimeEarned += amount
		balance = user.QuestCoins
		return l.saveWallet(ctx, user)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Debit removes amount from the balance. The balance never goes negative.
func (l *UserLedger) Debit(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := l.withUser(ctx, userID, func(ctx context.Context, user *model.User) error {
		if user.QuestCoins < amount {
			return ErrInsufficientFunds
		}
		user.QuestCoins -= amount
		balance = user.QuestCoins
		return l.saveWallet(ctx, user)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// MarkCompleted adds questID to the completed set and reports whether it was
// already there. RewardEngine is the only caller that pairs this with a
// finalized progress record.
func (l *UserLedger) MarkCompleted(ctx context.Context, userID, questID string) (bool, error) {
	var already bool
	err := l.withUser(ctx, userID, func(ctx context.Context, user *model.User) error {
		var err error
		already, err = l.repo.AddCompletedQuest(ctx, userID, questID)
		if err != nil {
			return fmt.Errorf("failed to add completed quest: %w", err)
		}
		if already {
			return nil
		}
		user.CompletedQuestIDs = append(user.CompletedQuestIDs, questID)
		return l.saveWallet(ctx, user)
	})
	if err != nil {
		return false, err
	}
	return already, nil
}

func (l *UserLedger) LevelFor(user *model.User) int {
	return l.policy.LevelFor(user)
}

func (l *UserLedger) Policy() LevelPolicy {
	return l.policy
}

// Snapshot returns every user as of a single point in time.
func (l *UserLedger) Snapshot(ctx context.Context) ([]*model.User, error) {
	users, err := l.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (l *UserLedger) withUser(ctx context.Context, userID string, fn func(ctx context.Context, user *model.User) error) error {
	err := l.repo.WithUserLock(ctx, userID, func(ctx context.Context) error {
		user, err := l.repo.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		return fn(ctx, user)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// saveWallet persists balance, lifetime earnings and the derived level.
func (l *UserLedger) saveWallet(ctx context.Context, user *model.User) error {
	user.Level = l.policy.LevelFor(user)
	err := l.repo.UpdateUserWallet(ctx, user.ID, user.QuestCoins, user.LifetimeEarned, user.Level)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return nil
}

func avatarGlyph(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "A"
	}
	return string(unicode.ToUpper(r))
}

func dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
