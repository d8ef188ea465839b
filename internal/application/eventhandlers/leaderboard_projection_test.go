package eventhandlers

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/infrastructure/persistence/memory"
	"github.com/pianova-hub/piano-progression-hub/pkg/logger"
)

type capturingUpdater struct {
	mu      sync.Mutex
	entries []leaderboard.RankedUser
}

func (u *capturingUpdater) UpdateEntry(ctx context.Context, entry leaderboard.RankedUser) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.entries = append(u.entries, entry)
	return nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func TestProjectionHandler_RefreshesFromCommittedStats(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	err := store.Atomically(ctx, "user-1", func(tx progression.Tx) error {
		stats, err := tx.GetStats(ctx, "user-1")
		if err != nil {
			return err
		}
		if err := stats.Credit(75); err != nil {
			return err
		}
		stats.Level = 1
		stats.LessonsCompleted = 2
		return tx.SaveStats(ctx, stats)
	})
	require.NoError(t, err)

	updater := &capturingUpdater{}
	h := NewLeaderboardProjectionHandler(store, updater, quietLogger())

	err = h.Handle(progression.NewXPCreditedEvent("user-1", progression.ActionLessonCompleted, 75, 75))
	require.NoError(t, err)

	require.Len(t, updater.entries, 1)
	entry := updater.entries[0]
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, progression.XP(75), entry.TotalXP)
	assert.Equal(t, 2, entry.LessonsCompleted)
}

func TestProjectionHandler_IgnoresOtherEvents(t *testing.T) {
	updater := &capturingUpdater{}
	h := NewLeaderboardProjectionHandler(memory.NewStore(), updater, quietLogger())

	err := h.Handle(progression.NewLevelUpEvent("user-1", 1, 2, "Intermediate"))
	require.NoError(t, err)
	assert.Empty(t, updater.entries)
}

func TestProjectionHandler_MissingStatsSurfaces(t *testing.T) {
	updater := &capturingUpdater{}
	h := NewLeaderboardProjectionHandler(memory.NewStore(), updater, quietLogger())

	err := h.Handle(progression.NewXPCreditedEvent("ghost", progression.ActionLessonCompleted, 50, 50))
	assert.Error(t, err)
	assert.Empty(t, updater.entries)
}
