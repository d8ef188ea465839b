// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Ranks all learners by total XP, paginated. Ordering is total and
// deterministic: (total_xp desc, user_id asc). Pages 1..k partition the
// ranked set with no gaps or overlaps.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains the request parameters.
type GetLeaderboardQuery struct {
	// Page - 1-based page number (default 1).
	Page int

	// PageSize - entries per page (default 20, max 100).
	PageSize int
}

// Validate normalizes and checks the parameters.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Page < 0 || q.PageSize < 0 {
		return shared.ErrInvalidPage
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	return nil
}

// GetLeaderboardHandler serves leaderboard pages from a Ranker. The primary
// ranker is typically the Redis projection; the fallback is the
// authoritative postgres read path, used when the primary is unavailable.
type GetLeaderboardHandler struct {
	primary  leaderboard.Ranker
	fallback leaderboard.Ranker
}

// NewGetLeaderboardHandler creates a handler. fallback may be nil when the
// primary is already the authoritative store.
func NewGetLeaderboardHandler(primary, fallback leaderboard.Ranker) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{primary: primary, fallback: fallback}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (leaderboard.Page, error) {
	if err := q.Validate(); err != nil {
		return leaderboard.Page{}, err
	}

	page, err := h.primary.RankPage(ctx, q.Page, q.PageSize)
	if err == nil {
		return page, nil
	}
	if h.fallback == nil {
		return leaderboard.Page{}, fmt.Errorf("get_leaderboard: %w", err)
	}

	page, ferr := h.fallback.RankPage(ctx, q.Page, q.PageSize)
	if ferr != nil {
		return leaderboard.Page{}, fmt.Errorf("get_leaderboard: primary: %v, fallback: %w", err, ferr)
	}
	return page, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetUserRankQuery asks for one learner's global position.
type GetUserRankQuery struct {
	UserID string
}

// GetUserRankHandler resolves a single learner's rank.
type GetUserRankHandler struct {
	ranker leaderboard.Ranker
}

// NewGetUserRankHandler creates a handler.
func NewGetUserRankHandler(ranker leaderboard.Ranker) *GetUserRankHandler {
	return &GetUserRankHandler{ranker: ranker}
}

// Handle executes the query. Rank 0 means the learner has no stats yet.
func (h *GetUserRankHandler) Handle(ctx context.Context, q GetUserRankQuery) (int, error) {
	if q.UserID == "" {
		return 0, shared.ErrEmptyUserID
	}
	return h.ranker.RankOf(ctx, q.UserID)
}
