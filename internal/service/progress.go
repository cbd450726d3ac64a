package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"questmart/internal/model"
	"questmart/internal/repository"
)

// ProgressTracker owns the per (user, quest) state machine:
// NotStarted -> InProgress -> Completed.
type ProgressTracker struct {
	repo    ProgressRepository
	catalog *QuestCatalog
	now     func() time.Time
}

func NewProgressTracker(repo ProgressRepository, catalog *QuestCatalog) *ProgressTracker {
	return &ProgressTracker{
		repo:    repo,
		catalog: catalog,
		now:     time.Now,
	}
}

// Get returns the stored record, or a NotStarted record for an unseen pair.
func (t *ProgressTracker) Get(ctx context.Context, userID, questID string) (*model.QuestProgress, error) {
	if _, err := t.catalog.Get(questID); err != nil {
		return nil, err
	}
	p, err := t.repo.GetProgress(ctx, userID, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NotStarted(userID, questID), nil
		}
		return nil, fmt.Errorf("failed to get quest progress: %w", err)
	}
	return p, nil
}

func (t *ProgressTracker) List(ctx context.Context, userID string) ([]*model.QuestProgress, error) {
	list, err := t.repo.ListProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quest progress: %w", err)
	}
	return list, nil
}

// Start moves a pair from NotStarted to InProgress at 0%. Starting an already
// started or completed quest changes nothing: it returns the current record
// together with ErrAlreadyStarted.
func (t *ProgressTracker) Start(ctx context.Context, userID, questID string) (*model.QuestProgress, error) {
	if _, err := t.catalog.Get(questID); err != nil {
		return nil, err
	}

	var out *model.QuestProgress
	err := t.lock(ctx, userID, func(ctx context.Context) error {
		current, err := t.current(ctx, userID, questID)
		if err != nil {
			return err
		}
		if current.State != model.StateNotStarted {
			out = current
			return ErrAlreadyStarted
		}

		now := t.now().UTC()
		out = &model.QuestProgress{
			UserID:    userID,
			QuestID:   questID,
			State:     model.StateInProgress,
			Progress:  0,
			StartedAt: &now,
		}
		if err := t.repo.SaveProgress(ctx, out); err != nil {
			return fmt.Errorf("failed to save quest progress: %w", err)
		}
		return nil
	})
	return out, err
}

// Advance stores a new progress value. Values outside [0,100] or below the
// stored value are rejected and leave the record untouched.
func (t *ProgressTracker) Advance(ctx context.Context, userID, questID string, progress int) (*model.QuestProgress, error) {
	if _, err := t.catalog.Get(questID); err != nil {
		return nil, err
	}
	if progress < 0 || progress > model.MaxProgress {
		return nil, fmt.Errorf("%w: %d is outside [0,%d]", ErrInvalidProgressValue, progress, model.MaxProgress)
	}

	var out *model.QuestProgress
	err := t.lock(ctx, userID, func(ctx context.Context) error {
		current, err := t.current(ctx, userID, questID)
		if err != nil {
			return err
		}
		switch current.State {
		case model.StateNotStarted:
			return ErrQuestNotStarted
		case model.StateCompleted:
			return ErrQuestCompleted
		}
		if progress < current.Progress {
			return fmt.Errorf("%w: %d is below current progress %d", ErrInvalidProgressValue, progress, current.Progress)
		}

		current.Progress = progress
		if err := t.repo.SaveProgress(ctx, current); err != nil {
			return fmt.Errorf("failed to save quest progress: %w", err)
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Finalize moves an InProgress pair to Completed at 100% and reports true.
// An already completed pair is left alone and reports false. This boolean is
// what guarantees a reward is paid at most once.
func (t *ProgressTracker) Finalize(ctx context.Context, userID, questID string) (bool, error) {
	if _, err := t.catalog.Get(questID); err != nil {
		return false, err
	}

	var transitioned bool
	err := t.lock(ctx, userID, func(ctx context.Context) error {
		current, err := t.current(ctx, userID, questID)
		if err != nil {
			return err
		}
		switch current.State {
		case model.StateNotStarted:
			return ErrQuestNotStarted
		case model.StateCompleted:
			return nil
		}

		now := t.now().UTC()
		current.State = model.StateCompleted
		current.Progress = model.MaxProgress
		current.CompletedAt = &now
		if err := t.repo.SaveProgress(ctx, current); err != nil {
			return fmt.Errorf("failed to save quest progress: %w", err)
		}
		transitioned = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return transitioned, nil
}

func (t *ProgressTracker) current(ctx context.Context, userID, questID string) (*model.QuestProgress, error) {
	p, err := t.repo.GetProgress(ctx, userID, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NotStarted(userID, questID), nil
		}
		return nil, fmt.Errorf("failed to get quest progress: %w", err)
	}
	return p, nil
}

func (t *ProgressTracker) lock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	err := t.repo.WithUserLock(ctx, userID, fn)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
