package achievement

import (
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRIGGER MATCHER
// Decides whether a completion event satisfies an achievement's trigger.
// Separating trigger shape from match evaluation lets new trigger kinds be
// added without touching the progression service's orchestration.
// ══════════════════════════════════════════════════════════════════════════════

// Matcher evaluates triggers against completion events.
type Matcher struct{}

// NewMatcher creates a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Matches reports whether the event satisfies the achievement's trigger.
//
// Global triggers compare the achievement's selected cumulative statistic
// before and after the credit: they fire only on the event that first
// crosses the requirement value. The caller must therefore pass the
// pre-credit and post-credit stats of the same user - evaluation runs after
// counters and XP have been updated, never before.
//
// Subject-bound triggers fire when the event's subject category and ID both
// equal the trigger's target.
func (m *Matcher) Matches(a Achievement, event progression.CompletionEvent, before, after *progression.UserStats) bool {
	switch a.Trigger.Kind {
	case TriggerGlobal:
		if before == nil || after == nil {
			return false
		}
		return before.StatValue(a.Requirement) < a.RequirementValue &&
			after.StatValue(a.Requirement) >= a.RequirementValue

	case TriggerLesson, TriggerQuiz, TriggerMaterial:
		return event.Subject == a.Trigger.Kind.SubjectType() &&
			event.SubjectID == a.Trigger.SubjectID

	default:
		return false
	}
}

// MatchAll returns the achievements whose triggers the event satisfies,
// preserving registry order.
func (m *Matcher) MatchAll(defs []Achievement, event progression.CompletionEvent, before, after *progression.UserStats) []Achievement {
	var matched []Achievement
	for _, a := range defs {
		if m.Matches(a, event, before, after) {
			matched = append(matched, a)
		}
	}
	return matched
}
