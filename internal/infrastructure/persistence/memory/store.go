// Package memory implements the progression storage contracts in process
// memory. Used by tests and local development; the postgres package is the
// production implementation.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// awardKey identifies one ledger row.
type awardKey struct {
	userID        string
	achievementID uuid.UUID
}

// Store holds all progression state in maps. Mutations for one user are
// serialized by a per-user mutex; the unit of work stages its writes and
// commits them only when the whole function succeeds, mirroring the
// transaction semantics of the postgres store.
type Store struct {
	mu     sync.RWMutex
	users  map[string]*sync.Mutex
	stats  map[string]*progression.UserStats
	keys   map[string]map[string]struct{}
	awards map[awardKey]time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]*sync.Mutex),
		stats:  make(map[string]*progression.UserStats),
		keys:   make(map[string]map[string]struct{}),
		awards: make(map[awardKey]time.Time),
	}
}

// userLock returns the serialization mutex for one user.
func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.users[userID]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.users[userID] = m
	return m
}

// Atomically implements progression.Store. Writes are staged in the tx and
// committed together after fn returns nil; an error or panic discards them.
func (s *Store) Atomically(ctx context.Context, userID string, fn func(tx progression.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	t := &memTx{store: s, userID: userID}
	if err := fn(t); err != nil {
		return err
	}

	t.commit()
	return nil
}

// StatsFor implements progression.Store.
func (s *Store) StatsFor(ctx context.Context, userID string) (*progression.UserStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[userID]
	if !ok {
		return nil, shared.ErrUserStatsNotFound
	}
	return stats.Clone(), nil
}

// Awarded reports whether the ledger already contains the pair. Read-only
// helper for tests and projections.
func (s *Store) Awarded(userID string, achievementID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.awards[awardKey{userID, achievementID}]
	return ok
}

// AwardCount returns the total number of ledger rows.
func (s *Store) AwardCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.awards)
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// memTx stages the writes of one event.
type memTx struct {
	store  *Store
	userID string

	stagedStats *progression.UserStats
	statsSaved  bool
	stagedKeys  []string
	stagedPairs []awardKey
}

// ClaimEventKey implements progression.Tx.
func (t *memTx) ClaimEventKey(ctx context.Context, userID, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	t.store.mu.RLock()
	_, consumed := t.store.keys[userID][key]
	t.store.mu.RUnlock()
	if consumed {
		return false, nil
	}
	for _, k := range t.stagedKeys {
		if k == key {
			return false, nil
		}
	}

	t.stagedKeys = append(t.stagedKeys, key)
	return true, nil
}

// GetStats implements progression.Tx.
func (t *memTx) GetStats(ctx context.Context, userID string) (*progression.UserStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.stagedStats != nil {
		return t.stagedStats, nil
	}

	t.store.mu.RLock()
	committed, ok := t.store.stats[userID]
	t.store.mu.RUnlock()

	if ok {
		t.stagedStats = committed.Clone()
	} else {
		t.stagedStats = progression.NewUserStats(userID)
	}
	return t.stagedStats, nil
}

// SaveStats implements progression.Tx.
func (t *memTx) SaveStats(ctx context.Context, stats *progression.UserStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.stagedStats = stats.Clone()
	t.statsSaved = true
	return nil
}

// TryAward implements progression.Tx. The committed map plus the staged
// pairs form the uniqueness set, so a pair is never handed out twice even
// within one unit of work.
func (t *memTx) TryAward(ctx context.Context, userID string, achievementID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	pair := awardKey{userID, achievementID}

	t.store.mu.RLock()
	_, exists := t.store.awards[pair]
	t.store.mu.RUnlock()
	if exists {
		return false, nil
	}
	for _, p := range t.stagedPairs {
		if p == pair {
			return false, nil
		}
	}

	t.stagedPairs = append(t.stagedPairs, pair)
	return true, nil
}

// commit applies the staged writes.
func (t *memTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.statsSaved && t.stagedStats != nil {
		t.store.stats[t.userID] = t.stagedStats.Clone()
	}
	if len(t.stagedKeys) > 0 {
		if t.store.keys[t.userID] == nil {
			t.store.keys[t.userID] = make(map[string]struct{})
		}
		for _, k := range t.stagedKeys {
			t.store.keys[t.userID][k] = struct{}{}
		}
	}
	now := time.Now().UTC()
	for _, p := range t.stagedPairs {
		t.store.awards[p] = now
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD READ PATH
// ══════════════════════════════════════════════════════════════════════════════

// RankPage implements leaderboard.Ranker over the in-memory stats.
func (s *Store) RankPage(ctx context.Context, page, pageSize int) (leaderboard.Page, error) {
	if err := ctx.Err(); err != nil {
		return leaderboard.Page{}, err
	}
	if page < 1 || pageSize < 1 {
		return leaderboard.Page{}, shared.ErrInvalidPage
	}

	all := s.rankedAll()
	return leaderboard.PageOf(all, page, pageSize), nil
}

// RankOf implements leaderboard.Ranker.
func (s *Store) RankOf(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	for i, e := range s.rankedAll() {
		if e.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// rankedAll snapshots and orders all stats.
func (s *Store) rankedAll() []leaderboard.RankedUser {
	s.mu.RLock()
	entries := make([]leaderboard.RankedUser, 0, len(s.stats))
	for _, st := range s.stats {
		entries = append(entries, leaderboard.RankedUser{
			UserID:           st.UserID,
			TotalXP:          st.TotalXP,
			Level:            st.Level,
			LessonsCompleted: st.LessonsCompleted,
			CurrentStreak:    st.CurrentStreak,
		})
	}
	s.mu.RUnlock()

	leaderboard.Sort(entries)
	return entries
}
