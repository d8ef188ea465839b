package progression

import (
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS
// Published after a completion event is fully processed. Subscribers
// (logging, cache refresh) must tolerate redelivery.
// ══════════════════════════════════════════════════════════════════════════════

// XPCreditedEvent is emitted when a learner gains XP.
type XPCreditedEvent struct {
	shared.BaseEvent
	Action     ActionType `json:"action"`
	Amount     XP         `json:"amount"`
	NewTotalXP XP         `json:"new_total_xp"`
}

// Payload implements shared.Event.
func (e XPCreditedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"action":       string(e.Action),
		"amount":       int(e.Amount),
		"new_total_xp": int(e.NewTotalXP),
	}
}

// NewXPCreditedEvent creates an XPCreditedEvent.
func NewXPCreditedEvent(userID string, action ActionType, amount, newTotal XP) XPCreditedEvent {
	return XPCreditedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventXPCredited, userID),
		Action:     action,
		Amount:     amount,
		NewTotalXP: newTotal,
	}
}

// LevelUpEvent is emitted when a credit moves a learner to a higher level.
type LevelUpEvent struct {
	shared.BaseEvent
	OldLevel Level  `json:"old_level"`
	NewLevel Level  `json:"new_level"`
	Label    string `json:"label"`
}

// Payload implements shared.Event.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": int(e.OldLevel),
		"new_level": int(e.NewLevel),
		"label":     e.Label,
	}
}

// NewLevelUpEvent creates a LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel Level, label string) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, userID),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Label:     label,
	}
}

// StreakExtendedEvent is emitted when an action lengthens the learner's
// consecutive-day streak.
type StreakExtendedEvent struct {
	shared.BaseEvent
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// Payload implements shared.Event.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"current_streak": e.CurrentStreak,
		"longest_streak": e.LongestStreak,
	}
}

// NewStreakExtendedEvent creates a StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, current, longest int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:     shared.NewBaseEvent(shared.EventStreakExtended, userID),
		CurrentStreak: current,
		LongestStreak: longest,
	}
}

// StreakBrokenEvent is emitted when a gap in activity resets the streak.
type StreakBrokenEvent struct {
	shared.BaseEvent
	PreviousStreak int `json:"previous_streak"`
}

// Payload implements shared.Event.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previous int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      shared.NewBaseEvent(shared.EventStreakBroken, userID),
		PreviousStreak: previous,
	}
}

// AchievementUnlockedEvent is emitted when an achievement is awarded for
// the first time.
type AchievementUnlockedEvent struct {
	shared.BaseEvent
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
	XPReward      XP     `json:"xp_reward"`
}

// Payload implements shared.Event.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievement_id": e.AchievementID,
		"title":          e.Title,
		"xp_reward":      int(e.XPReward),
	}
}

// NewAchievementUnlockedEvent creates an AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, title string, reward XP) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     shared.NewBaseEvent(shared.EventAchievementUnlocked, userID),
		AchievementID: achievementID,
		Title:         title,
		XPReward:      reward,
	}
}
