package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		avatar          TEXT NOT NULL,
		level           INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
		quest_coins     BIGINT NOT NULL DEFAULT 0 CHECK (quest_coins >= 0),
		lifetime_earned BIGINT NOT NULL DEFAULT 0 CHECK (lifetime_earned >= 0),
		interests       TEXT[] NOT NULL DEFAULT '{}',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_completed_quests (
		user_id      TEXT NOT NULL REFERENCES users (id),
		quest_id     TEXT NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, quest_id)
	)`,
	`CREATE TABLE IF NOT EXISTS quest_progress (
		user_id      TEXT NOT NULL REFERENCES users (id),
		quest_id     TEXT NOT NULL,
		state        TEXT NOT NULL CHECK (state IN ('in_progress', 'completed')),
		progress     SMALLINT NOT NULL CHECK (progress BETWEEN 0 AND 100),
		started_at   TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		PRIMARY KEY (user_id, quest_id),
		CHECK (state <> 'completed' OR progress = 100)
	)`,
	`CREATE INDEX IF NOT EXISTS quest_progress_user_idx ON quest_progress (user_id)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
