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
	"github.com/lib/pq"
)

type User struct {
	ID                string         `db:"id"`
	Name              string         `db:"name"`
	Avatar            string         `db:"avatar"`
	Level             int            `db:"level"`
	QuestCoins        int64          `db:"quest_coins"`
	LifetimeEarned    int64          `db:"lifetime_earned"`
	Interests         pq.StringArray `db:"interests"`
	CompletedQuestIDs pq.StringArray `db:"completed_quest_ids"`
	CreatedAt         time.Time      `db:"created_at"`
}

func (u *User) toModel() *model.User {
	completed := []string(u.CompletedQuestIDs)
	if completed == nil {
		completed = []string{}
	}
	interests := []string(u.Interests)
	if interests == nil {
		interests = []string{}
	}
	return &model.User{
		ID:                u.ID,
		Name:              u.Name,
		Avatar:            u.Avatar,
		Level:             u.Level,
		QuestCoins:        u.QuestCoins,
		LifetimeEarned:    u.LifetimeEarned,
		CompletedQuestIDs: completed,
		Interests:         interests,
		CreatedAt:         u.CreatedAt,
	}
}

func selectUsers() squirrel.SelectBuilder {
	return squirrel.Select(
		"u.id",
		"u.name",
		"u.avatar",
		"u.level",
		"u.quest_coins",
		"u.lifetime_earned",
		"u.interests",
		"u.created_at",
		"COALESCE(array_agg(c.quest_id ORDER BY c.completed_at, c.quest_id) FILTER (WHERE c.quest_id IS NOT NULL), '{}') AS completed_quest_ids",
	).
		From("users u").
		LeftJoin("user_completed_quests c ON c.user_id = u.id").
		GroupBy("u.id").
		PlaceholderFormat(squirrel.Dollar)
}

func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"id":              user.ID,
			"name":            user.Name,
			"avatar":          user.Avatar,
			"level":           user.Level,
			"quest_coins":     user.QuestCoins,
			"lifetime_earned": user.LifetimeEarned,
			"interests":       pq.StringArray(user.Interests),
			"created_at":      user.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *Repository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	query, args, err := selectUsers().
		Where(squirrel.Eq{"u.id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = sqlx.GetContext(ctx, r.conn(ctx), &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

// ListUsers is a single statement, so it reads one consistent snapshot.
func (r *Repository) ListUsers(ctx context.Context) ([]*model.User, error) {
	query, args, err := selectUsers().
		OrderBy("u.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	err = sqlx.SelectContext(ctx, r.conn(ctx), &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*model.User, len(users))
	for i := range users {
		out[i] = users[i].toModel()
	}
	return out, nil
}

func (r *Repository) UpdateUserWallet(ctx context.Context, userID string, questCoins, lifetimeEarned int64, level int) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(map[string]interface{}{
			"quest_coins":     questCoins,
			"lifetime_earned": lifetimeEarned,
			"level":           level,
		}).
		Where(squirrel.Eq{"id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) AddCompletedQuest(ctx context.Context, userID, questID string) (bool, error) {
	query, args, err := squirrel.
		Insert("user_completed_quests").
		Columns("user_id", "quest_id", "completed_at").
		Values(userID, questID, time.Now().UTC()).
		Suffix("ON CONFLICT (user_id, quest_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build completed quest insert query: %w", err)
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert completed quest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 0, nil
}
