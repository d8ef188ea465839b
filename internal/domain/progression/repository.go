package progression

import (
	"context"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implemented by internal/infrastructure/persistence (postgres for
// production, memory for tests and local development).
// ══════════════════════════════════════════════════════════════════════════════

// Tx groups the per-event mutations. All of its writes commit or roll back
// together: a replayed idempotency key, a storage failure, or a panic leaves
// no partial state behind.
type Tx interface {
	// ClaimEventKey records the idempotency key as consumed for the user.
	// Returns claimed=false when the key was already consumed - the whole
	// event is then a no-op replay.
	ClaimEventKey(ctx context.Context, userID, key string) (claimed bool, err error)

	// GetStats loads the user's stats for update, creating a zero record
	// for a first-time user.
	GetStats(ctx context.Context, userID string) (*UserStats, error)

	// SaveStats persists the mutated stats record.
	SaveStats(ctx context.Context, stats *UserStats) error

	// TryAward atomically inserts the (user, achievement) pair unless it
	// already exists. awarded=false for an existing pair is not an error;
	// this is the single idempotency boundary that prevents double payment.
	// Uniqueness is enforced by the storage layer, never by check-then-insert.
	TryAward(ctx context.Context, userID string, achievementID uuid.UUID) (awarded bool, err error)
}

// Store is the write-side storage contract of the progression engine.
type Store interface {
	// Atomically runs fn inside a unit of work scoped to one user. Calls for
	// different users never contend; concurrent calls for the same user are
	// serialized by the implementation (row lock or per-user mutex).
	Atomically(ctx context.Context, userID string, fn func(tx Tx) error) error

	// StatsFor returns a read-only snapshot of the user's stats.
	// Returns shared.ErrUserStatsNotFound for an unknown user.
	StatsFor(ctx context.Context, userID string) (*UserStats, error)
}

// ConfigRepository loads administrative reference data. The service reads
// fresh configuration for every event so administrative edits take effect
// without a restart; implementations may add a short TTL cache at most.
type ConfigRepository interface {
	// LevelTable returns the current validated threshold table.
	LevelTable(ctx context.Context) (*LevelTable, error)

	// RewardRules returns the current active reward rule snapshot.
	RewardRules(ctx context.Context) (*RuleSet, error)
}
