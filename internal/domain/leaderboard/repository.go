package leaderboard

import (
	"context"
)

// Ranker is the read-side contract over user stats. Implementations only
// read; ranking never locks out writers.
type Ranker interface {
	// RankPage returns one page of the full ranking in the leaderboard
	// total order, with rank numbers assigned.
	RankPage(ctx context.Context, page, pageSize int) (Page, error)

	// RankOf returns a single user's global rank, or 0 when the user has
	// no stats record yet.
	RankOf(ctx context.Context, userID string) (int, error)
}
