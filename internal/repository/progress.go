package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questmart/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type questProgress struct {
	UserID      string     `db:"user_id"`
	QuestID     string     `db:"quest_id"`
	State       string     `db:"state"`
	Progress    int        `db:"progress"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

func (p *questProgress) toModel() *model.QuestProgress {
	return &model.QuestProgress{
		UserID:      p.UserID,
		QuestID:     p.QuestID,
		State:       model.ProgressState(p.State),
		Progress:    p.Progress,
		StartedAt:   p.StartedAt,
		CompletedAt: p.CompletedAt,
	}
}

var progressColumns = []string{
	"user_id",
	"quest_id",
	"state",
	"progress",
	"started_at",
	"completed_at",
}

func (r *Repository) GetProgress(ctx context.Context, userID, questID string) (*model.QuestProgress, error) {
	query, args, err := squirrel.
		Select(progressColumns...).
		From("quest_progress").
		Where(squirrel.Eq{
			"user_id":  userID,
			"quest_id": questID,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p questProgress
	err = sqlx.GetContext(ctx, r.conn(ctx), &p, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return p.toModel(), nil
}

func (r *Repository) ListProgress(ctx context.Context, userID string) ([]*model.QuestProgress, error) {
	query, args, err := squirrel.
		Select(progressColumns...).
		From("quest_progress").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("quest_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []questProgress
	err = sqlx.SelectContext(ctx, r.conn(ctx), &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quest progress: %w", err)
	}

	out := make([]*model.QuestProgress, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// SaveProgress upserts the record. The guard in the conflict clause keeps a
// completed row completed even if a caller bypasses the state machine.
func (r *Repository) SaveProgress(ctx context.Context, p *model.QuestProgress) error {
	query, args, err := squirrel.
		Insert("quest_progress").
		Columns(progressColumns...).
		Values(p.UserID, p.QuestID, string(p.State), p.Progress, p.StartedAt, p.CompletedAt).
		Suffix(`ON CONFLICT (user_id, quest_id) DO UPDATE SET
			state = EXCLUDED.state,
			progress = EXCLUDED.progress,
			completed_at = EXCLUDED.completed_at
			WHERE quest_progress.state <> 'completed'`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build progress upsert query: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save quest progress: %w", err)
	}

	return nil
}
