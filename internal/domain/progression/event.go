// Package progression contains the core progression engine domain model:
// completion events, user stats, level thresholds, and reward rules.
// This is the heart of the gamification engine - no external dependencies
// beyond the shared domain package.
package progression

import (
	"strings"
	"time"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTION & SUBJECT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// ActionType identifies the kind of learner action that produced a
// completion event. Reward rules are keyed by action type.
type ActionType string

const (
	// ActionLessonCompleted - learner finished a lesson.
	ActionLessonCompleted ActionType = "lesson_completed"

	// ActionQuizCompleted - learner answered a quiz (or quiz item) correctly.
	ActionQuizCompleted ActionType = "quiz_completed"

	// ActionSongCompleted - learner played a song/material to the end.
	ActionSongCompleted ActionType = "song_completed"

	// ActionDailyGoal - learner completed the daily practice goal.
	ActionDailyGoal ActionType = "daily_goal_completed"

	// ActionDailyLogin - learner logged in; extends the daily streak.
	ActionDailyLogin ActionType = "daily_login"
)

// SubjectType identifies what kind of content a completion event refers to.
type SubjectType string

const (
	// SubjectLesson - the event refers to a lesson.
	SubjectLesson SubjectType = "lesson"

	// SubjectQuiz - the event refers to a quiz.
	SubjectQuiz SubjectType = "quiz"

	// SubjectMaterial - the event refers to a material (songs are materials).
	SubjectMaterial SubjectType = "material"

	// SubjectNone - the event has no content subject (e.g., daily login).
	SubjectNone SubjectType = "none"
)

// IsValid reports whether the subject type is one of the known variants.
func (s SubjectType) IsValid() bool {
	switch s {
	case SubjectLesson, SubjectQuiz, SubjectMaterial, SubjectNone:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION EVENT
// The sole write input of the engine. Produced by content collaborators
// (lesson modal, quiz runner, song player, daily-login check) after they
// confirm the underlying action succeeded.
// ══════════════════════════════════════════════════════════════════════════════

// CompletionEvent describes a single confirmed learner action.
//
// Delivery is at-least-once: the same logical event may arrive more than
// once. IdempotencyKey is supplied by the caller and identifies the logical
// event; a repeat with the same key is a no-op, not an error.
type CompletionEvent struct {
	// UserID - the learner who performed the action.
	UserID string

	// Action - what kind of action was completed.
	Action ActionType

	// Subject - what kind of content the action refers to.
	Subject SubjectType

	// SubjectID - identifier of the lesson/quiz/material, empty when
	// Subject is SubjectNone.
	SubjectID string

	// IdempotencyKey - caller-supplied identifier of the logical event.
	IdempotencyKey string

	// OccurredAt - when the action happened (caller clock, UTC).
	OccurredAt time.Time
}

// Validate checks event well-formedness. A failed validation is an
// InvalidEventError: the event is rejected immediately and never retried.
func (e CompletionEvent) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return shared.ErrEmptyUserID
	}
	if e.Action == "" {
		return shared.NewDomainError("progression", "Validate", shared.ErrInvalidEvent, "action type is required")
	}
	if !e.Subject.IsValid() {
		return shared.ErrUnknownSubject
	}
	if e.Subject == SubjectNone && e.SubjectID != "" {
		return shared.NewDomainError("progression", "Validate", shared.ErrInvalidEvent, "subject ID must be empty for subjectless events")
	}
	if e.Subject != SubjectNone && e.SubjectID == "" {
		return shared.NewDomainError("progression", "Validate", shared.ErrInvalidEvent, "subject ID is required")
	}
	if strings.TrimSpace(e.IdempotencyKey) == "" {
		return shared.NewDomainError("progression", "Validate", shared.ErrInvalidEvent, "idempotency key is required")
	}
	return nil
}
