package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/leaderboard"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
)

// reverseRange mimics how the sorted set hands back a reverse range: score
// descending, and inside a tie group members in descending lex order, the
// opposite of the ranking's tie break.
func reverseRange(users []leaderboard.RankedUser) []leaderboard.RankedUser {
	out := make([]leaderboard.RankedUser, len(users))
	copy(out, users)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func user(id string, xp int) leaderboard.RankedUser {
	return leaderboard.RankedUser{UserID: id, TotalXP: progression.XP(xp)}
}

func ids(entries []leaderboard.RankedUser) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.UserID
	}
	return out
}

func TestSlicePageFromWindow_TieGroupSpansPages(t *testing.T) {
	// Three users share one score. The set's reverse range yields them in
	// descending ID order, so without the extended window page 1 would
	// show the wrong members in the wrong order.
	tied := []leaderboard.RankedUser{
		user("alice", 100),
		user("bob", 100),
		user("carol", 100),
	}
	window := reverseRange(tied)

	page1 := slicePageFromWindow(window, 0, 0, 2)
	assert.Equal(t, []string{"alice", "bob"}, ids(page1))

	window = reverseRange(tied)
	page2 := slicePageFromWindow(window, 0, 2, 2)
	assert.Equal(t, []string{"carol"}, ids(page2))
}

func TestSlicePageFromWindow_MixedScores(t *testing.T) {
	ordered := []leaderboard.RankedUser{
		user("dave", 200),
		user("alice", 100),
		user("bob", 100),
		user("carol", 100),
		user("erin", 50),
	}

	// Page 1: the bottom boundary sits inside the 100 XP tie group, so the
	// fetched window runs through the whole group (reverse indices 0..3).
	page1 := slicePageFromWindow(reverseRange(ordered[:4]), 0, 0, 2)
	assert.Equal(t, []string{"dave", "alice"}, ids(page1))

	// Page 2: the top boundary sits inside the same group; the window
	// starts at the group's first reverse index (1).
	page2 := slicePageFromWindow(reverseRange(ordered[1:4]), 1, 2, 2)
	assert.Equal(t, []string{"bob", "carol"}, ids(page2))

	// Page 3: no ties at either boundary, window equals the naive page.
	page3 := slicePageFromWindow(reverseRange(ordered[4:]), 4, 4, 2)
	assert.Equal(t, []string{"erin"}, ids(page3))
}

func TestSlicePageFromWindow_PartitionsWithoutGaps(t *testing.T) {
	ordered := []leaderboard.RankedUser{
		user("dave", 200),
		user("alice", 100),
		user("bob", 100),
		user("carol", 100),
		user("erin", 50),
	}

	// Paging through tie-extended windows must visit every user exactly
	// once, in the authoritative order.
	var seen []string
	seen = append(seen, ids(slicePageFromWindow(reverseRange(ordered[:4]), 0, 0, 2))...)
	seen = append(seen, ids(slicePageFromWindow(reverseRange(ordered[1:4]), 1, 2, 2))...)
	seen = append(seen, ids(slicePageFromWindow(reverseRange(ordered[4:]), 4, 4, 2))...)

	assert.Equal(t, []string{"dave", "alice", "bob", "carol", "erin"}, seen)
}
