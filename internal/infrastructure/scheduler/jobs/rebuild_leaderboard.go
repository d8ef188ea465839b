// Package jobs contains implementations of scheduled jobs for the
// progression engine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
	"github.com/pianova-hub/piano-progression-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// Snapshotter reads the full, authoritatively ordered ranking.
type Snapshotter interface {
	SnapshotAll(ctx context.Context) ([]leaderboard.RankedUser, error)
}

// ProjectionRebuilder replaces a leaderboard projection with a snapshot.
type ProjectionRebuilder interface {
	RebuildFromSnapshot(ctx context.Context, snapshot []leaderboard.RankedUser) error
}

// RebuildLeaderboardJob rebuilds the cached leaderboard projection from the
// database ranking. Per-credit cache updates keep the projection roughly
// fresh; this job corrects any drift caused by missed updates or cache
// restarts.
type RebuildLeaderboardJob struct {
	source    Snapshotter
	target    ProjectionRebuilder
	publisher shared.EventPublisher
	logger    *slog.Logger
	retrier   *retry.Retrier
	timeout   time.Duration

	lastStats atomic.Value // *RebuildStats
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Entries     int
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
func NewRebuildLeaderboardJob(
	source Snapshotter,
	target ProjectionRebuilder,
	publisher shared.EventPublisher,
	logger *slog.Logger,
	timeout time.Duration,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &RebuildLeaderboardJob{
		source:    source,
		target:    target,
		publisher: publisher,
		logger:    logger,
		retrier:   retry.CacheRetrier(),
		timeout:   timeout,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds the cached leaderboard projection from the database ranking"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	snapshot, err := j.source.SnapshotAll(ctx)
	if err != nil {
		return fmt.Errorf("snapshot ranking: %w", err)
	}

	err = j.retrier.Do(ctx, func(ctx context.Context) error {
		if rebuildErr := j.target.RebuildFromSnapshot(ctx, snapshot); rebuildErr != nil {
			return retry.Retryable(rebuildErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild projection: %w", err)
	}

	completedAt := time.Now()
	stats := &RebuildStats{
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Entries:     len(snapshot),
	}
	j.lastStats.Store(stats)

	if j.publisher != nil {
		event := shared.NewBaseEvent(shared.EventLeaderboardRebuilt, "leaderboard")
		if pubErr := j.publisher.Publish(rebuiltEvent{BaseEvent: event, entries: len(snapshot)}); pubErr != nil {
			j.logger.Warn("failed to publish rebuild event", "error", pubErr)
		}
	}

	j.logger.Info("leaderboard projection rebuilt",
		"entries", stats.Entries,
		"duration", stats.Duration.String(),
	)

	return nil
}

// LastRebuildStats returns statistics from the last successful rebuild.
func (j *RebuildLeaderboardJob) LastRebuildStats() *RebuildStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RebuildStats)
}

// rebuiltEvent carries the entry count of a completed rebuild.
type rebuiltEvent struct {
	shared.BaseEvent
	entries int
}

func (e rebuiltEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"entries":     e.entries,
		"occurred_at": e.OccurredAt(),
	}
}
