// Package achievement contains achievement definitions, their triggers, and
// the trigger matcher. An achievement is bound to exactly one trigger at any
// time; replacing a trigger is a delete-then-insert, never a partial update.
package achievement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRIGGER
// A tagged variant {Global, Lesson, Quiz, Material} rather than parallel
// boolean flags. The matcher switches on the tag, keeping the progression
// service trigger-kind-agnostic.
// ══════════════════════════════════════════════════════════════════════════════

// TriggerKind is the tag of the trigger variant.
type TriggerKind string

const (
	// TriggerGlobal fires when a cumulative statistic first crosses the
	// achievement's requirement value.
	TriggerGlobal TriggerKind = "global"

	// TriggerLesson fires when a specific lesson is completed.
	TriggerLesson TriggerKind = "lesson"

	// TriggerQuiz fires when a specific quiz is completed.
	TriggerQuiz TriggerKind = "quiz"

	// TriggerMaterial fires when a specific material (song) is completed.
	TriggerMaterial TriggerKind = "material"
)

// IsValid reports whether the kind is a known variant.
func (k TriggerKind) IsValid() bool {
	switch k {
	case TriggerGlobal, TriggerLesson, TriggerQuiz, TriggerMaterial:
		return true
	}
	return false
}

// SubjectType returns the event subject category a subject-bound trigger
// matches against. Global triggers have no subject.
func (k TriggerKind) SubjectType() progression.SubjectType {
	switch k {
	case TriggerLesson:
		return progression.SubjectLesson
	case TriggerQuiz:
		return progression.SubjectQuiz
	case TriggerMaterial:
		return progression.SubjectMaterial
	default:
		return progression.SubjectNone
	}
}

// Trigger is the unlock condition bound to an achievement.
type Trigger struct {
	// Kind - the variant tag.
	Kind TriggerKind

	// SubjectID - target lesson/quiz/material ID; empty iff Kind is global.
	SubjectID string
}

// Validate enforces the subject-ID/kind pairing invariant.
func (t Trigger) Validate() error {
	if !t.Kind.IsValid() {
		return shared.ErrInvalidTrigger
	}
	if t.Kind == TriggerGlobal && t.SubjectID != "" {
		return shared.NewDomainError("achievement", "Validate", shared.ErrConfiguration, "global trigger must not carry a subject ID")
	}
	if t.Kind != TriggerGlobal && t.SubjectID == "" {
		return shared.NewDomainError("achievement", "Validate", shared.ErrConfiguration, "subject trigger requires a subject ID")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Achievement is a one-time unlockable reward definition.
type Achievement struct {
	// ID - unique achievement identifier.
	ID uuid.UUID

	// Title - display title, e.g. "First Lesson".
	Title string

	// Icon - icon identifier for the client.
	Icon string

	// XPReward - bonus XP credited when the achievement is first awarded.
	XPReward progression.XP

	// Requirement - the statistic a global trigger measures. Ignored for
	// subject-bound triggers.
	Requirement progression.RequirementType

	// RequirementValue - the threshold the statistic must cross.
	RequirementValue int

	// Trigger - the single unlock condition.
	Trigger Trigger

	// CreatedAt - when the definition was authored.
	CreatedAt time.Time
}

// Validate checks definition consistency.
func (a Achievement) Validate() error {
	if a.ID == uuid.Nil {
		return shared.NewDomainError("achievement", "Validate", shared.ErrInvalidID, "achievement ID is required")
	}
	if a.Title == "" {
		return shared.NewDomainError("achievement", "Validate", shared.ErrEmptyValue, "title is required")
	}
	if a.XPReward < 0 {
		return shared.NewDomainError("achievement", "Validate", shared.ErrNegativeValue, "XP reward cannot be negative")
	}
	if err := a.Trigger.Validate(); err != nil {
		return err
	}
	if a.Trigger.Kind == TriggerGlobal {
		if !a.Requirement.IsValid() {
			return shared.NewDomainError("achievement", "Validate", shared.ErrConfiguration, "global trigger requires a valid requirement type")
		}
		if a.RequirementValue <= 0 {
			return shared.NewDomainError("achievement", "Validate", shared.ErrConfiguration, "global trigger requires a positive requirement value")
		}
	}
	return nil
}

// AwardRecord is one row of the award ledger: the durable proof that a
// (user, achievement) pair has been paid. It is the sole source of truth
// for "already received" - never inferred from counters.
type AwardRecord struct {
	UserID        string
	AchievementID uuid.UUID
	AwardedAt     time.Time
}

// Registry exposes the current achievement definitions. Read fresh per
// event, like the other reference tables.
type Registry interface {
	// ListAchievements returns all achievement definitions with their
	// bound triggers.
	ListAchievements(ctx context.Context) ([]Achievement, error)
}
