package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 14, 30, 0, 0, time.UTC)
}

func TestUserStats_Credit(t *testing.T) {
	s := NewUserStats("user-1")

	require.NoError(t, s.Credit(50))
	require.NoError(t, s.Credit(0))
	assert.Equal(t, XP(50), s.TotalXP)

	err := s.Credit(-10)
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
	assert.Equal(t, XP(50), s.TotalXP)
}

func TestUserStats_RecordAction_Counters(t *testing.T) {
	s := NewUserStats("user-1")
	now := day(2026, time.March, 1)

	s.RecordAction(ActionLessonCompleted, now)
	s.RecordAction(ActionQuizCompleted, now)
	s.RecordAction(ActionQuizCompleted, now)
	s.RecordAction(ActionSongCompleted, now)
	s.RecordAction(ActionDailyGoal, now)
	s.RecordAction(ActionDailyLogin, now)

	assert.Equal(t, 1, s.LessonsCompleted)
	assert.Equal(t, 2, s.QuizzesCompleted)
	assert.Equal(t, 1, s.SongsCompleted)
	assert.Equal(t, 1, s.DailyGoalsCompleted)
}

func TestUserStats_StreakExtends(t *testing.T) {
	s := NewUserStats("user-1")

	s.RecordAction(ActionLessonCompleted, day(2026, time.March, 1))
	assert.Equal(t, 1, s.CurrentStreak)

	s.RecordAction(ActionLessonCompleted, day(2026, time.March, 2))
	s.RecordAction(ActionLessonCompleted, day(2026, time.March, 3))
	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 3, s.LongestStreak)
}

func TestUserStats_StreakSameDayUnchanged(t *testing.T) {
	s := NewUserStats("user-1")

	s.RecordAction(ActionLessonCompleted, day(2026, time.March, 1))
	s.RecordAction(ActionQuizCompleted, day(2026, time.March, 1))
	assert.Equal(t, 1, s.CurrentStreak)
}

func TestUserStats_StreakResetsAfterGap(t *testing.T) {
	s := NewUserStats("user-1")

	s.RecordAction(ActionLessonCompleted, day(2026, time.March, 1))
	s.RecordAction(ActionLessonCompleted, day(2026, time.March, 2))
	s.RecordAction(ActionLessonCompleted, day(2026, time.March, 5))

	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
}

func TestUserStats_LateEventNeverRewindsStreak(t *testing.T) {
	s := NewUserStats("user-1")

	s.RecordAction(ActionLessonCompleted, day(2026, time.March, 1))
	s.RecordAction(ActionLessonCompleted, day(2026, time.March, 2))

	// An event from an earlier day arrives after the fact.
	s.RecordAction(ActionQuizCompleted, day(2026, time.February, 25))

	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, day(2026, time.March, 2).Truncate(24*time.Hour), s.LastActiveDate)
}

func TestUserStats_StatValue(t *testing.T) {
	s := NewUserStats("user-1")
	require.NoError(t, s.Credit(120))
	s.LessonsCompleted = 4
	s.QuizzesCompleted = 7
	s.SongsCompleted = 2
	s.DailyGoalsCompleted = 9
	s.CurrentStreak = 3

	assert.Equal(t, 120, s.StatValue(RequirementXP))
	assert.Equal(t, 3, s.StatValue(RequirementStreak))
	assert.Equal(t, 4, s.StatValue(RequirementLessons))
	assert.Equal(t, 7, s.StatValue(RequirementQuizzes))
	assert.Equal(t, 2, s.StatValue(RequirementSongs))
	assert.Equal(t, 9, s.StatValue(RequirementDailyGoals))
	assert.Equal(t, 0, s.StatValue(RequirementType("bogus")))
}

func TestUserStats_CloneIsIndependent(t *testing.T) {
	s := NewUserStats("user-1")
	require.NoError(t, s.Credit(10))

	cp := s.Clone()
	require.NoError(t, cp.Credit(90))

	assert.Equal(t, XP(10), s.TotalXP)
	assert.Equal(t, XP(100), cp.TotalXP)
}

func TestCompletionEvent_Validate(t *testing.T) {
	valid := CompletionEvent{
		UserID:         "user-1",
		Action:         ActionLessonCompleted,
		Subject:        SubjectLesson,
		SubjectID:      "lesson-42",
		IdempotencyKey: "evt-1",
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(e *CompletionEvent)
	}{
		{"empty user", func(e *CompletionEvent) { e.UserID = "  " }},
		{"missing action", func(e *CompletionEvent) { e.Action = "" }},
		{"unknown subject", func(e *CompletionEvent) { e.Subject = "webinar" }},
		{"subject ID without subject", func(e *CompletionEvent) { e.Subject = SubjectNone }},
		{"subject without subject ID", func(e *CompletionEvent) { e.SubjectID = "" }},
		{"missing idempotency key", func(e *CompletionEvent) { e.IdempotencyKey = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := valid
			tc.mutate(&e)
			assert.ErrorIs(t, e.Validate(), shared.ErrInvalidEvent)
		})
	}
}
