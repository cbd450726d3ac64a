package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"questmart/internal/model"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore keeps users and quest progress in process memory.
//
// Mutations run inside WithUserLock: they hold the user's mutex, work on
// cloned records, and publish them under the store lock when fn returns nil.
// Readers outside a lock only ever see committed records.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*model.User
	progress map[string]map[string]*model.QuestProgress

	locks *xsync.MapOf[string, *sync.Mutex]
}

type memTxKey struct{}

type memTx struct {
	userID   string
	user     *model.User
	progress map[string]*model.QuestProgress
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*model.User),
		progress: make(map[string]map[string]*model.QuestProgress),
		locks:    xsync.NewMapOf[string, *sync.Mutex](),
	}
}

func (s *MemoryStore) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		if tx.userID != userID {
			return ErrNestedLock
		}
		return fn(ctx)
	}

	mu, _ := s.locks.LoadOrCompute(userID, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	defer mu.Unlock()

	s.mu.RLock()
	committed, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	tx := &memTx{
		userID:   userID,
		user:     committed.Clone(),
		progress: make(map[string]*model.QuestProgress),
	}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = tx.user
	if len(tx.progress) > 0 {
		records := s.progress[userID]
		if records == nil {
			records = make(map[string]*model.QuestProgress)
			s.progress[userID] = records
		}
		for questID, p := range tx.progress {
			records[questID] = p
		}
	}
	return nil
}

// write runs fn against the staged records of userID, opening a lock if ctx
// does not already hold one.
func (s *MemoryStore) write(ctx context.Context, userID string, fn func(tx *memTx) error) error {
	return s.WithUserLock(ctx, userID, func(ctx context.Context) error {
		return fn(ctx.Value(memTxKey{}).(*memTx))
	})
}

func (s *MemoryStore) staged(ctx context.Context, userID string) *memTx {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok && tx.userID == userID {
		return tx
	}
	return nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return ErrAlreadyExists
	}
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if tx := s.staged(ctx, userID); tx != nil {
		return tx.user.Clone(), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return user.Clone(), nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *model.User) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) UpdateUserWallet(ctx context.Context, userID string, questCoins, lifetimeEarned int64, level int) error {
	if questCoins < 0 || lifetimeEarned < 0 {
		return fmt.Errorf("wallet amounts must not be negative")
	}
	if level < 1 {
		return fmt.Errorf("level must be at least 1")
	}
	return s.write(ctx, userID, func(tx *memTx) error {
		tx.user.QuestCoins = questCoins
		tx.user.LifetimeEarned = lifetimeEarned
		tx.user.Level = level
		return nil
	})
}

func (s *MemoryStore) AddCompletedQuest(ctx context.Context, userID, questID string) (bool, error) {
	var already bool
	err := s.write(ctx, userID, func(tx *memTx) error {
		if tx.user.HasCompleted(questID) {
			already = true
			return nil
		}
		tx.user.CompletedQuestIDs = append(tx.user.CompletedQuestIDs, questID)
		return nil
	})
	return already, err
}

func (s *MemoryStore) GetProgress(ctx context.Context, userID, questID string) (*model.QuestProgress, error) {
	if tx := s.staged(ctx, userID); tx != nil {
		if p, ok := tx.progress[questID]; ok {
			return p.Clone(), nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[userID][questID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) ListProgress(ctx context.Context, userID string) ([]*model.QuestProgress, error) {
	merged := make(map[string]*model.QuestProgress)

	s.mu.RLock()
	for questID, p := range s.progress[userID] {
		merged[questID] = p
	}
	s.mu.RUnlock()

	if tx := s.staged(ctx, userID); tx != nil {
		for questID, p := range tx.progress {
			merged[questID] = p
		}
	}

	out := make([]*model.QuestProgress, 0, len(merged))
	for _, p := range merged {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b *model.QuestProgress) int {
		return strings.Compare(a.QuestID, b.QuestID)
	})
	return out, nil
}

// SaveProgress stages the record. A completed record is never overwritten.
func (s *MemoryStore) SaveProgress(ctx context.Context, p *model.QuestProgress) error {
	if p.Progress < 0 || p.Progress > model.MaxProgress {
		return fmt.Errorf("progress %d outside [0,%d]", p.Progress, model.MaxProgress)
	}
	return s.write(ctx, p.UserID, func(tx *memTx) error {
		existing, ok := tx.progress[p.QuestID]
		if !ok {
			s.mu.RLock()
			existing = s.progress[p.UserID][p.QuestID]
			s.mu.RUnlock()
		}
		if existing != nil && existing.State == model.StateCompleted {
			return nil
		}
		tx.progress[p.QuestID] = p.Clone()
		return nil
	})
}
