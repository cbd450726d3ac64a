package repository

import (
	"context"
	"database/sql"
	"fmt"

	"questmart/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNestedLock    = errors.New("nested lock on a different user")
)

const uniqueViolation = "23505"

// Repository is the PostgreSQL store.
type Repository struct {
	db *sqlx.DB
}

type Config struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

func New(ctx context.Context, cfg Config) (*Repository, error) {
	url := cfg.GetDatabaseURL()
	db, err := sqlx.ConnectContext(ctx, "pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db.DB); err != nil {
		return nil, err
	}

	logger.Logger().Info("Connected to database successfully")

	return NewWithDB(db), nil
}

func NewWithDB(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

type txKey struct{}

type pgTx struct {
	tx     *sqlx.Tx
	locked map[string]struct{}
}

// Transaction runs t inside one database transaction.
func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

// WithUserLock takes a row lock on the user for the duration of one
// transaction. The transaction travels in ctx so nested repository calls join
// it, and a nested lock on an already locked user is a no-op.
func (r *Repository) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	if cur, ok := ctx.Value(txKey{}).(*pgTx); ok {
		if _, held := cur.locked[userID]; !held {
			if err := lockUser(ctx, cur.tx, userID); err != nil {
				return err
			}
			cur.locked[userID] = struct{}{}
		}
		return fn(ctx)
	}

	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		cur := &pgTx{tx: tx, locked: map[string]struct{}{userID: {}}}
		return fn(context.WithValue(ctx, txKey{}, cur))
	})
}

func lockUser(ctx context.Context, tx *sqlx.Tx, userID string) error {
	var id string
	err := tx.GetContext(ctx, &id, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

// conn returns the transaction bound to ctx, or the pool.
func (r *Repository) conn(ctx context.Context) sqlx.ExtContext {
	if cur, ok := ctx.Value(txKey{}).(*pgTx); ok {
		return cur.tx
	}
	return r.db
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
