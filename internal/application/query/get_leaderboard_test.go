package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
	"github.com/pianova-hub/piano-progression-hub/internal/infrastructure/persistence/memory"
)

// failingRanker simulates an unavailable projection.
type failingRanker struct{}

func (failingRanker) RankPage(ctx context.Context, page, pageSize int) (leaderboard.Page, error) {
	return leaderboard.Page{}, shared.ErrStorageUnavailable
}

func (failingRanker) RankOf(ctx context.Context, userID string) (int, error) {
	return 0, shared.ErrStorageUnavailable
}

// seedStore fills a memory store with n users; user-i holds i*10 XP, except
// that users come in XP ties to exercise the tie-break.
func seedStore(t *testing.T, xpByUser map[string]progression.XP) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	for userID, xp := range xpByUser {
		err := store.Atomically(ctx, userID, func(tx progression.Tx) error {
			stats, err := tx.GetStats(ctx, userID)
			if err != nil {
				return err
			}
			if err := stats.Credit(xp); err != nil {
				return err
			}
			return tx.SaveStats(ctx, stats)
		})
		require.NoError(t, err)
	}
	return store
}

func TestGetLeaderboard_TotalOrder(t *testing.T) {
	store := seedStore(t, map[string]progression.XP{
		"carol": 300,
		"bob":   100,
		"alice": 100,
		"dave":  500,
	})
	h := NewGetLeaderboardHandler(store, nil)

	page, err := h.Handle(context.Background(), GetLeaderboardQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)

	ids := make([]string, len(page.Entries))
	for i, e := range page.Entries {
		ids[i] = e.UserID
	}

	// XP descending, ties broken by user ID ascending.
	assert.Equal(t, []string{"dave", "carol", "alice", "bob"}, ids)
	assert.Equal(t, 1, page.Entries[0].Rank)
	assert.Equal(t, 4, page.Entries[3].Rank)
	assert.Equal(t, 4, page.TotalCount)
}

func TestGetLeaderboard_PagesPartition(t *testing.T) {
	xp := make(map[string]progression.XP, 25)
	for i := 0; i < 25; i++ {
		xp[fmt.Sprintf("user-%02d", i)] = progression.XP(i * 10)
	}
	store := seedStore(t, xp)
	h := NewGetLeaderboardHandler(store, nil)
	ctx := context.Background()

	seen := make(map[string]int)
	lastRank := 0
	for p := 1; p <= 3; p++ {
		page, err := h.Handle(ctx, GetLeaderboardQuery{Page: p, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 25, page.TotalCount)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, p < 3, page.HasNext)
		assert.Equal(t, p > 1, page.HasPrev)

		for _, e := range page.Entries {
			seen[e.UserID]++
			assert.Equal(t, lastRank+1, e.Rank, "ranks must be gapless")
			lastRank = e.Rank
		}
	}

	// Every user appears exactly once across pages.
	assert.Len(t, seen, 25)
	for userID, count := range seen {
		assert.Equal(t, 1, count, "user %s", userID)
	}
}

func TestGetLeaderboard_PageBeyondEnd(t *testing.T) {
	store := seedStore(t, map[string]progression.XP{"alice": 10})
	h := NewGetLeaderboardHandler(store, nil)

	page, err := h.Handle(context.Background(), GetLeaderboardQuery{Page: 5, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.Equal(t, 1, page.TotalCount)
	assert.False(t, page.HasNext)
}

func TestGetLeaderboard_Defaults(t *testing.T) {
	store := seedStore(t, map[string]progression.XP{"alice": 10})
	h := NewGetLeaderboardHandler(store, nil)

	page, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}

func TestGetLeaderboard_PageSizeCapped(t *testing.T) {
	store := seedStore(t, map[string]progression.XP{"alice": 10})
	h := NewGetLeaderboardHandler(store, nil)

	page, err := h.Handle(context.Background(), GetLeaderboardQuery{Page: 1, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)
}

func TestGetLeaderboard_NegativeParams(t *testing.T) {
	h := NewGetLeaderboardHandler(memory.NewStore(), nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{Page: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetLeaderboard_FallsBackWhenPrimaryFails(t *testing.T) {
	store := seedStore(t, map[string]progression.XP{"alice": 10, "bob": 20})
	h := NewGetLeaderboardHandler(failingRanker{}, store)

	page, err := h.Handle(context.Background(), GetLeaderboardQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)
	assert.Equal(t, "bob", page.Entries[0].UserID)
}

func TestGetLeaderboard_NoFallbackSurfacesError(t *testing.T) {
	h := NewGetLeaderboardHandler(failingRanker{}, nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{Page: 1, PageSize: 10})
	assert.True(t, errors.Is(err, shared.ErrStorageUnavailable))
}

func TestGetUserRank(t *testing.T) {
	store := seedStore(t, map[string]progression.XP{
		"alice": 100,
		"bob":   200,
		"carol": 50,
	})
	h := NewGetUserRankHandler(store)
	ctx := context.Background()

	rank, err := h.Handle(ctx, GetUserRankQuery{UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	rank, err = h.Handle(ctx, GetUserRankQuery{UserID: "carol"})
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	// Unknown learner has no rank.
	rank, err = h.Handle(ctx, GetUserRankQuery{UserID: "nobody"})
	require.NoError(t, err)
	assert.Equal(t, 0, rank)

	_, err = h.Handle(ctx, GetUserRankQuery{})
	assert.Error(t, err)
}
