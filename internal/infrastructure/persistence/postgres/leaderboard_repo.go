package postgres

import (
	"context"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY
// Authoritative read path over user_stats. Pure projection: ranking reads
// never take locks and never mutate state. The Redis cache fronts this for
// hot reads; this repository is also the source the cache rebuild job
// projects from.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Ranker on PostgreSQL.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

// RankPage implements leaderboard.Ranker.
func (r *LeaderboardRepository) RankPage(ctx context.Context, page, pageSize int) (leaderboard.Page, error) {
	if page < 1 || pageSize < 1 {
		return leaderboard.Page{}, shared.ErrInvalidPage
	}

	var total int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM user_stats`).Scan(&total); err != nil {
		return leaderboard.Page{}, shared.WrapError("leaderboard", "RankPage", shared.ErrStorageUnavailable, "failed to count users", err)
	}

	rows, err := r.conn.Query(ctx, `
		SELECT user_id, total_xp, level, lessons_completed, current_streak
		FROM user_stats
		ORDER BY total_xp DESC, user_id ASC
		LIMIT $1 OFFSET $2
	`, pageSize, (page-1)*pageSize)
	if err != nil {
		return leaderboard.Page{}, shared.WrapError("leaderboard", "RankPage", shared.ErrStorageUnavailable, "failed to query ranking", err)
	}
	defer rows.Close()

	var entries []leaderboard.RankedUser
	for rows.Next() {
		var (
			e       leaderboard.RankedUser
			totalXP int64
			level   int
		)
		if err := rows.Scan(&e.UserID, &totalXP, &level, &e.LessonsCompleted, &e.CurrentStreak); err != nil {
			return leaderboard.Page{}, shared.WrapError("leaderboard", "RankPage", shared.ErrStorageUnavailable, "failed to scan ranking row", err)
		}
		e.TotalXP = progression.XP(totalXP)
		e.Level = progression.Level(level)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return leaderboard.Page{}, shared.WrapError("leaderboard", "RankPage", shared.ErrStorageUnavailable, "failed to read ranking rows", err)
	}

	leaderboard.AssignRanks(entries, page, pageSize)

	totalPages := (total + pageSize - 1) / pageSize
	return leaderboard.Page{
		Entries:    entries,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
		HasNext:    page*pageSize < total,
		HasPrev:    page > 1 && total > 0,
	}, nil
}

// RankOf implements leaderboard.Ranker. Rank 0 means the user has no stats
// record.
func (r *LeaderboardRepository) RankOf(ctx context.Context, userID string) (int, error) {
	var rank int
	err := r.conn.QueryRow(ctx, `
		SELECT 1 + COUNT(*)
		FROM user_stats other, user_stats me
		WHERE me.user_id = $1
		  AND (other.total_xp > me.total_xp
		       OR (other.total_xp = me.total_xp AND other.user_id < me.user_id))
	`, userID).Scan(&rank)
	if err != nil {
		return 0, shared.WrapError("leaderboard", "RankOf", shared.ErrStorageUnavailable, "failed to compute rank", err)
	}

	// The join yields no row for an unknown user; guard with an existence
	// check so rank 0 is returned instead of an error.
	var exists bool
	if err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_stats WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return 0, shared.WrapError("leaderboard", "RankOf", shared.ErrStorageUnavailable, "failed to check user", err)
	}
	if !exists {
		return 0, nil
	}
	return rank, nil
}

// SnapshotAll reads the full ordered ranking. Used by the cache rebuild job.
func (r *LeaderboardRepository) SnapshotAll(ctx context.Context) ([]leaderboard.RankedUser, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id, total_xp, level, lessons_completed, current_streak
		FROM user_stats
		ORDER BY total_xp DESC, user_id ASC
	`)
	if err != nil {
		return nil, shared.WrapError("leaderboard", "SnapshotAll", shared.ErrStorageUnavailable, "failed to query snapshot", err)
	}
	defer rows.Close()

	var entries []leaderboard.RankedUser
	for rows.Next() {
		var (
			e       leaderboard.RankedUser
			totalXP int64
			level   int
		)
		if err := rows.Scan(&e.UserID, &totalXP, &level, &e.LessonsCompleted, &e.CurrentStreak); err != nil {
			return nil, shared.WrapError("leaderboard", "SnapshotAll", shared.ErrStorageUnavailable, "failed to scan snapshot row", err)
		}
		e.TotalXP = progression.XP(totalXP)
		e.Level = progression.Level(level)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
