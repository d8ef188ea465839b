package progression

import (
	"time"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
	"github.com/pianova-hub/piano-progression-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// XP represents experience points, a monotonic non-negative per-user score.
type XP int

// IsValid reports whether the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add returns the sum of two XP values.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Level represents a discrete rank derived from XP via the level table.
type Level int

// ══════════════════════════════════════════════════════════════════════════════
// USER STATS
// One record per learner. total_xp is the sum of all XP ever credited;
// level is the cached threshold-table lookup for total_xp, recomputed
// synchronously on every credit.
// ══════════════════════════════════════════════════════════════════════════════

// UserStats is the aggregate holding a learner's progression state.
type UserStats struct {
	// UserID - the learner this record belongs to.
	UserID string

	// TotalXP - all XP ever credited. Monotonic non-negative.
	TotalXP XP

	// Level - derived from TotalXP, cached. Never stale: recomputed on
	// every credit.
	Level Level

	// Counters - each monotonic non-negative.
	LessonsCompleted    int
	QuizzesCompleted    int
	SongsCompleted      int
	DailyGoalsCompleted int

	// Streak state. A streak is consecutive calendar days (UTC) with at
	// least one completion event.
	CurrentStreak  int
	LongestStreak  int
	LastActiveDate time.Time

	// CreatedAt / UpdatedAt - record timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserStats creates a fresh stats record for a learner.
func NewUserStats(userID string) *UserStats {
	now := time.Now().UTC()
	return &UserStats{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. Used by stores to hand out snapshots and by
// the service to keep pre-credit stats for trigger evaluation.
func (s *UserStats) Clone() *UserStats {
	cp := *s
	return &cp
}

// Credit adds XP to the running total. The amount must be non-negative;
// XP is never removed.
func (s *UserStats) Credit(amount XP) error {
	if amount < 0 {
		return shared.NewDomainError("progression", "Credit", shared.ErrNegativeValue, "XP credit cannot be negative")
	}
	s.TotalXP = s.TotalXP.Add(amount)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordAction increments the counter matching the event's action type and
// advances the daily streak. Counters update before any trigger evaluation,
// so global triggers always see post-update values.
func (s *UserStats) RecordAction(action ActionType, occurredAt time.Time) {
	switch action {
	case ActionLessonCompleted:
		s.LessonsCompleted++
	case ActionQuizCompleted:
		s.QuizzesCompleted++
	case ActionSongCompleted:
		s.SongsCompleted++
	case ActionDailyGoal:
		s.DailyGoalsCompleted++
	case ActionDailyLogin:
		// Login only feeds the streak; no counter.
	}
	s.touchStreak(occurredAt)
	s.UpdatedAt = time.Now().UTC()
}

// touchStreak extends, keeps, or resets the consecutive-day streak based on
// the event day relative to the last active day.
func (s *UserStats) touchStreak(occurredAt time.Time) {
	day := timeutil.StartOfDay(occurredAt)

	switch {
	case s.LastActiveDate.IsZero():
		s.CurrentStreak = 1
	case timeutil.IsSameDay(s.LastActiveDate, day):
		// Second event today; streak unchanged.
		return
	case timeutil.IsConsecutiveDay(s.LastActiveDate, day):
		s.CurrentStreak++
	case day.Before(s.LastActiveDate):
		// Late-arriving event from an earlier day; never rewinds the streak.
		return
	default:
		s.CurrentStreak = 1
	}

	s.LastActiveDate = day
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
}

// StatValue returns the cumulative statistic selected by a requirement type.
// Global achievement triggers compare this value against their threshold.
func (s *UserStats) StatValue(requirement RequirementType) int {
	switch requirement {
	case RequirementXP:
		return int(s.TotalXP)
	case RequirementStreak:
		return s.CurrentStreak
	case RequirementLessons:
		return s.LessonsCompleted
	case RequirementQuizzes:
		return s.QuizzesCompleted
	case RequirementSongs:
		return s.SongsCompleted
	case RequirementDailyGoals:
		return s.DailyGoalsCompleted
	default:
		return 0
	}
}

// RequirementType selects which cumulative statistic a global trigger
// measures.
type RequirementType string

const (
	RequirementXP         RequirementType = "xp"
	RequirementStreak     RequirementType = "streak"
	RequirementLessons    RequirementType = "lessons"
	RequirementQuizzes    RequirementType = "quizzes"
	RequirementSongs      RequirementType = "songs"
	RequirementDailyGoals RequirementType = "daily_goals"
)

// IsValid reports whether the requirement type is a known variant.
func (r RequirementType) IsValid() bool {
	switch r {
	case RequirementXP, RequirementStreak, RequirementLessons,
		RequirementQuizzes, RequirementSongs, RequirementDailyGoals:
		return true
	}
	return false
}
