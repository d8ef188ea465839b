package redis

import (
	"context"
	"log/slog"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/pkg/circuitbreaker"
)

// GuardedRanker wraps a leaderboard.Ranker with a circuit breaker. When the
// cache keeps failing the breaker opens and reads fail immediately, letting
// the caller fall back to the database without waiting on Redis timeouts.
type GuardedRanker struct {
	inner   leaderboard.Ranker
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedRanker wraps ranker with a cache circuit breaker. State changes
// are logged through the given logger.
func NewGuardedRanker(ranker leaderboard.Ranker, logger *slog.Logger) *GuardedRanker {
	if logger == nil {
		logger = slog.Default()
	}

	breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("cache circuit state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &GuardedRanker{inner: ranker, breaker: breaker}
}

// RankPage implements leaderboard.Ranker.
func (g *GuardedRanker) RankPage(ctx context.Context, page, pageSize int) (leaderboard.Page, error) {
	var result leaderboard.Page
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = g.inner.RankPage(ctx, page, pageSize)
		return innerErr
	})
	return result, err
}

// RankOf implements leaderboard.Ranker.
func (g *GuardedRanker) RankOf(ctx context.Context, userID string) (int, error) {
	var rank int
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		rank, innerErr = g.inner.RankOf(ctx, userID)
		return innerErr
	})
	return rank, err
}

// Breaker exposes the underlying breaker for health reporting.
func (g *GuardedRanker) Breaker() *circuitbreaker.CircuitBreaker {
	return g.breaker
}
