package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// Key layout for the leaderboard projection.
const (
	// leaderboardKey is the sorted set: score = total XP, member = user ID.
	leaderboardKey = "leaderboard:xp"

	// memberInfoKeyPrefix prefixes per-user display payloads (level,
	// lessons, streak) that the sorted set itself cannot carry.
	memberInfoKeyPrefix = "leaderboard:info:"

	// metaKey stores rebuild metadata.
	metaKey = "leaderboard:meta"
)

// memberInfo is the per-user payload stored alongside the sorted set.
type memberInfo struct {
	Level            int `json:"level"`
	LessonsCompleted int `json:"lessons_completed"`
	CurrentStreak    int `json:"current_streak"`
}

// rebuildMeta records when and from how many rows the projection was built.
type rebuildMeta struct {
	RebuiltAt time.Time `json:"rebuilt_at"`
	Entries   int       `json:"entries"`
}

// LeaderboardCache projects the XP ranking into a Redis sorted set. It is a
// read accelerator: the postgres ranking stays authoritative and the
// projection is rebuilt from it on a schedule and nudged on each credit.
//
// Redis orders equal scores by member lexicographically, which under reverse
// range iteration is the opposite of the ascending-user-ID tie break the
// ranking requires. Fetched windows are therefore re-sorted client side
// before ranks are assigned.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a leaderboard projection over the given cache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

func memberInfoKey(userID string) string {
	return memberInfoKeyPrefix + userID
}

// RebuildFromSnapshot replaces the whole projection with the given ordered
// snapshot. The swap happens in a single pipeline so readers never observe a
// half-built set.
func (lc *LeaderboardCache) RebuildFromSnapshot(ctx context.Context, snapshot []leaderboard.RankedUser) error {
	pipe := lc.cache.Client().TxPipeline()
	pipe.Del(ctx, leaderboardKey)

	for _, entry := range snapshot {
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{
			Score:  float64(entry.TotalXP),
			Member: entry.UserID,
		})

		info := memberInfo{
			Level:            int(entry.Level),
			LessonsCompleted: entry.LessonsCompleted,
			CurrentStreak:    entry.CurrentStreak,
		}
		data, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		pipe.Set(ctx, memberInfoKey(entry.UserID), data, 0)
	}

	meta := rebuildMeta{RebuiltAt: time.Now().UTC(), Entries: len(snapshot)}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	pipe.Set(ctx, metaKey, metaData, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard cache rebuild: %w", err)
	}
	return nil
}

// UpdateEntry upserts a single user after an XP credit so the projection
// stays fresh between rebuilds.
func (lc *LeaderboardCache) UpdateEntry(ctx context.Context, entry leaderboard.RankedUser) error {
	pipe := lc.cache.Client().TxPipeline()
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  float64(entry.TotalXP),
		Member: entry.UserID,
	})

	info := memberInfo{
		Level:            int(entry.Level),
		LessonsCompleted: entry.LessonsCompleted,
		CurrentStreak:    entry.CurrentStreak,
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	pipe.Set(ctx, memberInfoKey(entry.UserID), data, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard cache update: %w", err)
	}
	return nil
}

// RankPage returns one page of the ranking, highest XP first.
//
// A tie group can span a page boundary, and within a tie group the sorted
// set's member order is the opposite of the ascending-user-ID tie break.
// The naive window [offset, offset+pageSize) is therefore wrong whenever
// its boundary score has members outside the window. The fetch is widened
// to cover the full tie groups at both boundaries, re-sorted by the one
// true order, and the real page is sliced out of that.
func (lc *LeaderboardCache) RankPage(ctx context.Context, page, pageSize int) (leaderboard.Page, error) {
	if page < 1 || pageSize < 1 {
		return leaderboard.Page{}, shared.ErrInvalidPage
	}

	client := lc.cache.Client()

	total, err := client.ZCard(ctx, leaderboardKey).Result()
	if err != nil {
		return leaderboard.Page{}, fmt.Errorf("leaderboard cache count: %w", err)
	}

	offset := int64((page - 1) * pageSize)
	totalPages := (int(total) + pageSize - 1) / pageSize

	if offset >= total {
		return leaderboard.Page{
			Entries:    []leaderboard.RankedUser{},
			Page:       page,
			PageSize:   pageSize,
			TotalCount: int(total),
			TotalPages: totalPages,
			HasPrev:    page > 1 && total > 0,
		}, nil
	}

	stop := offset + int64(pageSize) - 1
	window, err := client.ZRevRangeWithScores(ctx, leaderboardKey, offset, stop).Result()
	if err != nil {
		return leaderboard.Page{}, fmt.Errorf("leaderboard cache range: %w", err)
	}
	if len(window) == 0 {
		return leaderboard.Page{}, fmt.Errorf("leaderboard cache range: empty window at offset %d of %d", offset, total)
	}

	topScore := strconv.FormatFloat(window[0].Score, 'f', -1, 64)
	bottomScore := strconv.FormatFloat(window[len(window)-1].Score, 'f', -1, 64)

	// Reverse index where the top boundary's tie group starts.
	windowStart, err := client.ZCount(ctx, leaderboardKey, "("+topScore, "+inf").Result()
	if err != nil {
		return leaderboard.Page{}, fmt.Errorf("leaderboard cache count above: %w", err)
	}
	// Reverse index just past the bottom boundary's tie group.
	windowEnd, err := client.ZCount(ctx, leaderboardKey, bottomScore, "+inf").Result()
	if err != nil {
		return leaderboard.Page{}, fmt.Errorf("leaderboard cache count through: %w", err)
	}

	members := window
	if windowStart < offset || windowEnd > stop+1 {
		members, err = client.ZRevRangeWithScores(ctx, leaderboardKey, windowStart, windowEnd-1).Result()
		if err != nil {
			return leaderboard.Page{}, fmt.Errorf("leaderboard cache range: %w", err)
		}
	} else {
		windowStart = offset
	}

	fetched := make([]leaderboard.RankedUser, 0, len(members))
	for _, m := range members {
		userID, ok := m.Member.(string)
		if !ok {
			userID = fmt.Sprint(m.Member)
		}
		fetched = append(fetched, leaderboard.RankedUser{
			UserID:  userID,
			TotalXP: progression.XP(m.Score),
		})
	}

	entries := slicePageFromWindow(fetched, int(windowStart), int(offset), pageSize)

	for i := range entries {
		var info memberInfo
		if err := lc.cache.GetJSON(ctx, memberInfoKey(entries[i].UserID), &info); err == nil {
			entries[i].Level = progression.Level(info.Level)
			entries[i].LessonsCompleted = info.LessonsCompleted
			entries[i].CurrentStreak = info.CurrentStreak
		}
	}

	leaderboard.AssignRanks(entries, page, pageSize)

	return leaderboard.Page{
		Entries:    entries,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: int(total),
		TotalPages: totalPages,
		HasNext:    int(offset)+len(entries) < int(total),
		HasPrev:    page > 1 && total > 0,
	}, nil
}

// slicePageFromWindow restores the total order inside a tie-extended window
// and cuts the requested page out of it. windowStart is the global reverse
// index of the window's first member; the window must cover the whole tie
// group at both page boundaries, which makes the re-sort stable against the
// rest of the set.
func slicePageFromWindow(window []leaderboard.RankedUser, windowStart, offset, pageSize int) []leaderboard.RankedUser {
	leaderboard.Sort(window)

	start := offset - windowStart
	if start < 0 {
		start = 0
	}
	if start > len(window) {
		start = len(window)
	}
	end := start + pageSize
	if end > len(window) {
		end = len(window)
	}
	return window[start:end]
}

// RankOf returns the 1-based rank of a user, or 0 when the user has no
// entry in the projection.
func (lc *LeaderboardCache) RankOf(ctx context.Context, userID string) (int, error) {
	client := lc.cache.Client()

	score, err := client.ZScore(ctx, leaderboardKey, userID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leaderboard cache score: %w", err)
	}

	// Users with strictly more XP all rank above.
	scoreStr := strconv.FormatFloat(score, 'f', -1, 64)
	above, err := client.ZCount(ctx, leaderboardKey, "("+scoreStr, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("leaderboard cache count above: %w", err)
	}

	// Among equal scores, smaller user IDs rank above.
	tied, err := client.ZRangeByScore(ctx, leaderboardKey, &redis.ZRangeBy{
		Min: scoreStr,
		Max: scoreStr,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("leaderboard cache tied range: %w", err)
	}

	rank := int(above) + 1
	for _, member := range tied {
		if member < userID {
			rank++
		}
	}
	return rank, nil
}
