package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION STORE
// Write-side store. Each event runs in one transaction: idempotency claim,
// stats mutation, and ledger inserts commit or roll back together, so a
// retried event can never observe partially applied state.
// ══════════════════════════════════════════════════════════════════════════════

// Store implements progression.Store on PostgreSQL.
type Store struct {
	conn *Connection
}

// NewStore creates a Store.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// Atomically implements progression.Store. Per-user serialization comes
// from the row lock taken by GetStats; events for different users never
// contend.
func (s *Store) Atomically(ctx context.Context, userID string, fn func(tx progression.Tx) error) error {
	return s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(&storeTx{tx: tx})
	})
}

// StatsFor implements progression.Store.
func (s *Store) StatsFor(ctx context.Context, userID string) (*progression.UserStats, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT user_id, total_xp, level,
		       lessons_completed, quizzes_completed, songs_completed, daily_goals_completed,
		       current_streak, longest_streak, last_active_date,
		       created_at, updated_at
		FROM user_stats
		WHERE user_id = $1
	`, userID)

	stats, err := scanStats(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserStatsNotFound
		}
		return nil, shared.WrapError("progression", "StatsFor", shared.ErrStorageUnavailable, "failed to load user stats", err)
	}
	return stats, nil
}

// storeTx adapts one pgx transaction to progression.Tx.
type storeTx struct {
	tx pgx.Tx
}

// ClaimEventKey implements progression.Tx. The (user_id, event_key) primary
// key makes the claim atomic; a second insert of the same key affects zero
// rows.
func (t *storeTx) ClaimEventKey(ctx context.Context, userID, key string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO processed_events (user_id, event_key)
		VALUES ($1, $2)
		ON CONFLICT (user_id, event_key) DO NOTHING
	`, userID, key)
	if err != nil {
		return false, shared.WrapError("progression", "ClaimEventKey", shared.ErrStorageUnavailable, "failed to claim idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetStats implements progression.Tx. Ensures the row exists, then locks it
// for the rest of the transaction, serializing concurrent events for the
// same user.
func (t *storeTx) GetStats(ctx context.Context, userID string) (*progression.UserStats, error) {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO user_stats (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, shared.WrapError("progression", "GetStats", shared.ErrStorageUnavailable, "failed to ensure stats row", err)
	}

	row := t.tx.QueryRow(ctx, `
		SELECT user_id, total_xp, level,
		       lessons_completed, quizzes_completed, songs_completed, daily_goals_completed,
		       current_streak, longest_streak, last_active_date,
		       created_at, updated_at
		FROM user_stats
		WHERE user_id = $1
		FOR UPDATE
	`, userID)

	stats, err := scanStats(row)
	if err != nil {
		return nil, shared.WrapError("progression", "GetStats", shared.ErrStorageUnavailable, "failed to load user stats", err)
	}
	return stats, nil
}

// SaveStats implements progression.Tx.
func (t *storeTx) SaveStats(ctx context.Context, stats *progression.UserStats) error {
	var lastActive *time.Time
	if !stats.LastActiveDate.IsZero() {
		d := stats.LastActiveDate
		lastActive = &d
	}

	_, err := t.tx.Exec(ctx, `
		UPDATE user_stats
		SET total_xp = $2,
		    level = $3,
		    lessons_completed = $4,
		    quizzes_completed = $5,
		    songs_completed = $6,
		    daily_goals_completed = $7,
		    current_streak = $8,
		    longest_streak = $9,
		    last_active_date = $10,
		    updated_at = NOW()
		WHERE user_id = $1
	`,
		stats.UserID,
		int64(stats.TotalXP),
		int(stats.Level),
		stats.LessonsCompleted,
		stats.QuizzesCompleted,
		stats.SongsCompleted,
		stats.DailyGoalsCompleted,
		stats.CurrentStreak,
		stats.LongestStreak,
		lastActive,
	)
	if err != nil {
		return shared.WrapError("progression", "SaveStats", shared.ErrStorageUnavailable, "failed to save user stats", err)
	}
	return nil
}

// TryAward implements progression.Tx. The award ledger's primary key is the
// single idempotency boundary of the engine: the insert either lands or
// affects zero rows, never both.
func (t *storeTx) TryAward(ctx context.Context, userID string, achievementID uuid.UUID) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO award_records (user_id, achievement_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, userID, achievementID)
	if err != nil {
		return false, shared.WrapError("achievement", "TryAward", shared.ErrStorageUnavailable, "failed to insert award record", err)
	}
	return tag.RowsAffected() == 1, nil
}

// scanStats scans one user_stats row.
func scanStats(row pgx.Row) (*progression.UserStats, error) {
	var (
		stats      progression.UserStats
		totalXP    int64
		level      int
		lastActive *time.Time
	)

	err := row.Scan(
		&stats.UserID,
		&totalXP,
		&level,
		&stats.LessonsCompleted,
		&stats.QuizzesCompleted,
		&stats.SongsCompleted,
		&stats.DailyGoalsCompleted,
		&stats.CurrentStreak,
		&stats.LongestStreak,
		&lastActive,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	stats.TotalXP = progression.XP(totalXP)
	stats.Level = progression.Level(level)
	if lastActive != nil {
		stats.LastActiveDate = lastActive.UTC()
	}
	return &stats, nil
}
