// Package leaderboard contains the read-side ranking model: a projection
// over user stats ordered by total XP. It never mutates progression state.
package leaderboard

import (
	"sort"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKED ENTRIES
// Ordering is a total order: total_xp descending, then user_id ascending.
// No two entries ever compare equal, so pagination is deterministic.
// ══════════════════════════════════════════════════════════════════════════════

// RankedUser is one leaderboard row.
type RankedUser struct {
	// Rank - 1-based global position: (page-1)*pageSize + position + 1.
	Rank int `json:"rank"`

	// UserID - the learner.
	UserID string `json:"user_id"`

	// TotalXP - current experience points.
	TotalXP progression.XP `json:"total_xp"`

	// Level - current level.
	Level progression.Level `json:"level"`

	// LessonsCompleted - counter shown next to the rank.
	LessonsCompleted int `json:"lessons_completed"`

	// CurrentStreak - consecutive active days.
	CurrentStreak int `json:"current_streak"`
}

// Page is one page of the ranked set.
type Page struct {
	Entries    []RankedUser `json:"entries"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalCount int          `json:"total_count"`
	TotalPages int          `json:"total_pages"`
	HasNext    bool         `json:"has_next"`
	HasPrev    bool         `json:"has_prev"`
}

// Less is the single ordering rule used by every read path, in-memory or
// cached: higher XP first, ties broken by user ID ascending.
func Less(a, b RankedUser) bool {
	if a.TotalXP != b.TotalXP {
		return a.TotalXP > b.TotalXP
	}
	return a.UserID < b.UserID
}

// Sort orders entries in place by the leaderboard total order.
func Sort(entries []RankedUser) {
	sort.Slice(entries, func(i, j int) bool {
		return Less(entries[i], entries[j])
	})
}

// AssignRanks stamps global rank numbers onto an already-ordered page slice.
func AssignRanks(entries []RankedUser, page, pageSize int) {
	base := (page - 1) * pageSize
	for i := range entries {
		entries[i].Rank = base + i + 1
	}
}

// PageOf slices an ordered full ranking into one page and fills pagination
// metadata.
func PageOf(all []RankedUser, page, pageSize int) Page {
	total := len(all)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	entries := make([]RankedUser, end-start)
	copy(entries, all[start:end])
	AssignRanks(entries, page, pageSize)

	return Page{
		Entries:    entries,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
		HasNext:    end < total,
		HasPrev:    page > 1 && total > 0,
	}
}
