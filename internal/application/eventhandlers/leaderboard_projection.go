// Package eventhandlers contains subscribers wired to the in-process event
// bus. Handlers run after the originating transaction committed and must
// tolerate redelivery.
package eventhandlers

import (
	"context"
	"time"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
	"github.com/pianova-hub/piano-progression-hub/pkg/logger"
)

// EntryUpdater upserts a single user into the leaderboard projection.
type EntryUpdater interface {
	UpdateEntry(ctx context.Context, entry leaderboard.RankedUser) error
}

// LeaderboardProjectionHandler refreshes the cached leaderboard entry of a
// learner whenever they gain XP. Failures are tolerable: the scheduled
// rebuild job corrects any drift.
type LeaderboardProjectionHandler struct {
	store   progression.Store
	updater EntryUpdater
	log     *logger.Logger
	timeout time.Duration
}

// NewLeaderboardProjectionHandler creates the handler.
func NewLeaderboardProjectionHandler(store progression.Store, updater EntryUpdater, log *logger.Logger) *LeaderboardProjectionHandler {
	if log == nil {
		log = logger.Default()
	}
	return &LeaderboardProjectionHandler{
		store:   store,
		updater: updater,
		log:     log,
		timeout: 5 * time.Second,
	}
}

// Name implements shared.EventHandler.
func (h *LeaderboardProjectionHandler) Name() string {
	return "leaderboard_projection"
}

// Handle implements shared.EventHandler. Reads the committed stats rather
// than trusting the event payload, so redelivered or reordered events
// converge on the current state.
func (h *LeaderboardProjectionHandler) Handle(event shared.Event) error {
	if event.EventType() != shared.EventXPCredited {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	userID := event.AggregateID()
	stats, err := h.store.StatsFor(ctx, userID)
	if err != nil {
		h.log.Warn("projection refresh: stats read failed",
			logger.UserID(userID),
			logger.Err(err),
		)
		return err
	}

	entry := leaderboard.RankedUser{
		UserID:           stats.UserID,
		TotalXP:          stats.TotalXP,
		Level:            stats.Level,
		LessonsCompleted: stats.LessonsCompleted,
		CurrentStreak:    stats.CurrentStreak,
	}

	if err := h.updater.UpdateEntry(ctx, entry); err != nil {
		h.log.Warn("projection refresh: cache update failed",
			logger.UserID(userID),
			logger.Err(err),
		)
		return err
	}

	return nil
}
