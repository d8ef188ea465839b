package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

func TestStore_AtomicallyCommits(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Atomically(ctx, "user-1", func(tx progression.Tx) error {
		stats, err := tx.GetStats(ctx, "user-1")
		if err != nil {
			return err
		}
		if err := stats.Credit(50); err != nil {
			return err
		}
		return tx.SaveStats(ctx, stats)
	})
	require.NoError(t, err)

	stats, err := store.StatsFor(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, progression.XP(50), stats.TotalXP)
}

func TestStore_AtomicallyDiscardsOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Atomically(ctx, "user-1", func(tx progression.Tx) error {
		if _, err := tx.ClaimEventKey(ctx, "user-1", "evt-1"); err != nil {
			return err
		}
		stats, err := tx.GetStats(ctx, "user-1")
		if err != nil {
			return err
		}
		if err := stats.Credit(50); err != nil {
			return err
		}
		if err := tx.SaveStats(ctx, stats); err != nil {
			return err
		}
		if _, err := tx.TryAward(ctx, "user-1", uuid.New()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// Nothing leaked out of the failed unit of work.
	_, err = store.StatsFor(ctx, "user-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, 0, store.AwardCount())

	// The key was not consumed, so a retry applies.
	err = store.Atomically(ctx, "user-1", func(tx progression.Tx) error {
		claimed, err := tx.ClaimEventKey(ctx, "user-1", "evt-1")
		if err != nil {
			return err
		}
		assert.True(t, claimed)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ClaimEventKey(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	claim := func(userID, key string) bool {
		var claimed bool
		err := store.Atomically(ctx, userID, func(tx progression.Tx) error {
			var err error
			claimed, err = tx.ClaimEventKey(ctx, userID, key)
			return err
		})
		require.NoError(t, err)
		return claimed
	}

	assert.True(t, claim("user-1", "evt-1"))
	assert.False(t, claim("user-1", "evt-1"))

	// Keys are scoped per user.
	assert.True(t, claim("user-2", "evt-1"))

	// A second claim inside the same unit of work is also rejected.
	err := store.Atomically(ctx, "user-1", func(tx progression.Tx) error {
		first, err := tx.ClaimEventKey(ctx, "user-1", "evt-2")
		if err != nil {
			return err
		}
		second, err := tx.ClaimEventKey(ctx, "user-1", "evt-2")
		if err != nil {
			return err
		}
		assert.True(t, first)
		assert.False(t, second)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_TryAwardOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	achievementID := uuid.New()

	award := func(userID string) bool {
		var ok bool
		err := store.Atomically(ctx, userID, func(tx progression.Tx) error {
			var err error
			ok, err = tx.TryAward(ctx, userID, achievementID)
			return err
		})
		require.NoError(t, err)
		return ok
	}

	assert.True(t, award("user-1"))
	assert.False(t, award("user-1"))

	// Different user, same achievement: independent ledger rows.
	assert.True(t, award("user-2"))
	assert.Equal(t, 2, store.AwardCount())
}

func TestStore_TryAwardConcurrent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	achievementID := uuid.New()

	const workers = 32
	var wg sync.WaitGroup
	awards := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Atomically(ctx, "user-1", func(tx progression.Tx) error {
				ok, err := tx.TryAward(ctx, "user-1", achievementID)
				if err != nil {
					return err
				}
				awards <- ok
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(awards)

	granted := 0
	for ok := range awards {
		if ok {
			granted++
		}
	}
	assert.Equal(t, 1, granted)
	assert.Equal(t, 1, store.AwardCount())
}

func TestStore_GetStatsCreatesFreshRecord(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Atomically(ctx, "user-1", func(tx progression.Tx) error {
		stats, err := tx.GetStats(ctx, "user-1")
		if err != nil {
			return err
		}
		assert.Equal(t, "user-1", stats.UserID)
		assert.Equal(t, progression.XP(0), stats.TotalXP)
		return nil
	})
	require.NoError(t, err)

	// Without SaveStats nothing is persisted.
	_, err = store.StatsFor(ctx, "user-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStore_RankPageValidation(t *testing.T) {
	store := NewStore()

	_, err := store.RankPage(context.Background(), 0, 10)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = store.RankPage(context.Background(), 1, 0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
