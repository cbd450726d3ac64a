package service

import (
	"context"
	"errors"
	"fmt"

	"questmart/internal/model"
	"questmart/internal/repository"

	"go.uber.org/zap"
)

const MessageQuestCompleted = "QUEST_COMPLETED"

type CompletionResult struct {
	Granted    bool  `json:"granted"`
	Reward     int64 `json:"reward"`
	NewBalance int64 `json:"new_balance"`
	Level      int   `json:"level"`
	LevelUp    bool  `json:"level_up"`
}

// RewardEngine is the only path that turns a quest completion into
// QuestCoins.
type RewardEngine struct {
	locker   UserLocker
	ledger   *UserLedger
	tracker  *ProgressTracker
	catalog  *QuestCatalog
	notifier Notifier
	log      *zap.Logger
}

func NewRewardEngine(
	locker UserLocker,
	ledger *UserLedger,
	tracker *ProgressTracker,
	catalog *QuestCatalog,
	notifier Notifier,
	log *zap.Logger,
) *RewardEngine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RewardEngine{
		locker:   locker,
		ledger:   ledger,
		tracker:  tracker,
		catalog:  catalog,
		notifier: notifier,
		log:      log,
	}
}

func (e *RewardEngine) StartQuest(ctx context.Context, userID, questID string) (*model.QuestProgress, error) {
	return e.tracker.Start(ctx, userID, questID)
}

func (e *RewardEngine) AdvanceQuest(ctx context.Context, userID, questID string, progress int) (*model.QuestProgress, error) {
	return e.tracker.Advance(ctx, userID, questID, progress)
}

// CompleteQuest finalizes the pair and, only when that call performed the
// transition, credits the reward and records the quest in the completed set.
// All three writes happen under the user's lock and commit together. A
// repeated completion is not an error: it reports Granted=false with the
// current balance.
func (e *RewardEngine) CompleteQuest(ctx context.Context, userID, questID string) (*CompletionResult, error) {
	quest, err := e.catalog.Get(questID)
	if err != nil {
		return nil, err
	}

	res := &CompletionResult{}
	err = e.locker.WithUserLock(ctx, userID, func(ctx context.Context) error {
		before, err := e.ledger.GetUser(ctx, userID)
		if err != nil {
			return err
		}

		finalized, err := e.tracker.Finalize(ctx, userID, questID)
		if err != nil {
			return err
		}
		if !finalized {
			res.NewBalance = before.QuestCoins
			res.Level = before.Level
			return nil
		}

		balance, err := e.ledger.Credit(ctx, userID, quest.Reward)
		if err != nil {
			return fmt.Errorf("failed to credit reward: %w", err)
		}
		if _, err := e.ledger.MarkCompleted(ctx, userID, questID); err != nil {
			return fmt.Errorf("failed to mark quest completed: %w", err)
		}

		after, err := e.ledger.GetUser(ctx, userID)
		if err != nil {
			return err
		}

		res.Granted = true
		res.Reward = quest.Reward
		res.NewBalance = balance
		res.Level = after.Level
		res.LevelUp = after.Level > before.Level
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !res.Granted {
		e.log.Debug("quest already completed",
			zap.String("user_id", userID),
			zap.String("quest_id", questID))
		return res, nil
	}

	e.log.Info("quest reward granted",
		zap.String("user_id", userID),
		zap.String("quest_id", questID),
		zap.Int64("reward", quest.Reward),
		zap.Int64("balance", res.NewBalance),
		zap.Int("level", res.Level))

	e.notifier.Notify(ctx, userID, Message{
		Type: MessageQuestCompleted,
		Payload: map[string]any{
			"quest_id":    questID,
			"reward":      quest.Reward,
			"new_balance": res.NewBalance,
			"level":       res.Level,
			"level_up":    res.LevelUp,
		},
	})

	return res, nil
}
