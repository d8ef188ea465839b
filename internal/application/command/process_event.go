// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/achievement"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
	"github.com/pianova-hub/piano-progression-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS COMPLETION EVENT
// The single write entry point of the engine. Converts one confirmed learner
// action into XP, counters, level, and achievement awards.
//
// Flow: Claim Idempotency Key → Credit XP + Counters → Recompute Level →
// Match Triggers → TryAward → Credit Bonuses → Recompute Level → Publish.
//
// All storage writes for the event run in one unit of work: a replayed key,
// a failure, or a retry never leaves partially applied state visible.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionResult is returned to the caller after an event is processed.
type ProgressionResult struct {
	// UserID - the learner the event applied to.
	UserID string `json:"user_id"`

	// XPEarned - XP credited by this call, including achievement bonuses.
	// Zero for a replayed event.
	XPEarned progression.XP `json:"xp_earned"`

	// NewTotalXP - the learner's total XP after the call.
	NewTotalXP progression.XP `json:"new_total_xp"`

	// NewLevel - the learner's level after the call.
	NewLevel progression.Level `json:"new_level"`

	// LevelLabel - display label of the new level.
	LevelLabel string `json:"level_label"`

	// LeveledUp - true when the call moved the learner to a higher level.
	LeveledUp bool `json:"leveled_up"`

	// AchievementsUnlocked - IDs of achievements newly awarded by this call.
	AchievementsUnlocked []uuid.UUID `json:"achievements_unlocked,omitempty"`

	// Replayed - true when the idempotency key was already consumed and the
	// call was a no-op.
	Replayed bool `json:"replayed"`

	// ProcessedAt - when processing finished.
	ProcessedAt time.Time `json:"processed_at"`
}

// ProgressionService orchestrates event processing. It owns no state of its
// own; configuration is read fresh per event so administrative edits take
// effect without a restart.
type ProgressionService struct {
	store      progression.Store
	configRepo progression.ConfigRepository
	registry   achievement.Registry
	matcher    *achievement.Matcher
	publisher  shared.EventPublisher
	log        *logger.Logger

	// maxAwardPasses bounds the bonus-XP re-evaluation loop: a bonus credit
	// can itself cross another global threshold, so matching repeats until
	// a fixed point or this cap.
	maxAwardPasses int
}

// ProgressionServiceConfig contains tuning knobs for the service.
type ProgressionServiceConfig struct {
	MaxAwardPasses int
}

// DefaultProgressionServiceConfig returns sensible defaults.
func DefaultProgressionServiceConfig() ProgressionServiceConfig {
	return ProgressionServiceConfig{
		MaxAwardPasses: 5,
	}
}

// NewProgressionService creates a ProgressionService.
func NewProgressionService(
	store progression.Store,
	configRepo progression.ConfigRepository,
	registry achievement.Registry,
	publisher shared.EventPublisher,
	log *logger.Logger,
	cfg ProgressionServiceConfig,
) *ProgressionService {
	if cfg.MaxAwardPasses <= 0 {
		cfg = DefaultProgressionServiceConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	return &ProgressionService{
		store:          store,
		configRepo:     configRepo,
		registry:       registry,
		matcher:        achievement.NewMatcher(),
		publisher:      publisher,
		log:            log,
		maxAwardPasses: cfg.MaxAwardPasses,
	}
}

// Process applies one completion event. Safe to invoke more than once for
// the same logical event: a repeated idempotency key is a no-op, not an
// error. A transient storage error surfaces unwrapped so the caller can
// retry the whole event with the same key.
func (s *ProgressionService) Process(ctx context.Context, event progression.CompletionEvent) (*ProgressionResult, error) {
	if err := event.Validate(); err != nil {
		s.log.Warn("rejected malformed completion event",
			logger.UserID(event.UserID),
			logger.String("action", string(event.Action)),
			logger.Err(err),
		)
		return nil, err
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	// Read current configuration. Reference tables are small and change
	// rarely, but they change without restarts - never cache across calls.
	table, err := s.configRepo.LevelTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("process: load level table: %w", err)
	}
	rules, err := s.configRepo.RewardRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("process: load reward rules: %w", err)
	}
	defs, err := s.registry.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("process: load achievements: %w", err)
	}

	result := &ProgressionResult{UserID: event.UserID}
	var published []shared.Event

	err = s.store.Atomically(ctx, event.UserID, func(tx progression.Tx) error {
		claimed, err := tx.ClaimEventKey(ctx, event.UserID, event.IdempotencyKey)
		if err != nil {
			return fmt.Errorf("claim event key: %w", err)
		}
		if !claimed {
			// At-least-once delivery: the event already ran to completion.
			stats, err := tx.GetStats(ctx, event.UserID)
			if err != nil {
				return err
			}
			th, err := table.LevelFor(stats.TotalXP)
			if err != nil {
				return err
			}
			result.Replayed = true
			result.NewTotalXP = stats.TotalXP
			result.NewLevel = th.Level
			result.LevelLabel = th.Label
			return nil
		}

		stats, err := tx.GetStats(ctx, event.UserID)
		if err != nil {
			return err
		}
		before := stats.Clone()

		// The previous level is derived from the table, not the stored
		// value: a freshly created record has no meaningful stored level
		// yet, and a table edit may have shifted boundaries since the last
		// event.
		prevTh, err := table.LevelFor(stats.TotalXP)
		if err != nil {
			return err
		}
		prevLevel := prevTh.Level

		// Step 1-2: resolve XP (0 for unconfigured actions) and credit it
		// together with the relevant counter and streak.
		actionXP := rules.XPFor(event.Action)
		if err := stats.Credit(actionXP); err != nil {
			return err
		}
		stats.RecordAction(event.Action, occurredAt)

		// Step 3: recompute level from the new total.
		th, err := table.LevelFor(stats.TotalXP)
		if err != nil {
			return err
		}
		stats.Level = th.Level
		result.LevelLabel = th.Label

		// Steps 4-5: match triggers against post-credit stats, award each
		// match at most once, credit bonuses, and repeat while a bonus
		// crosses a further global threshold.
		awarded, bonus, err := s.awardLoop(ctx, tx, defs, event, before, stats)
		if err != nil {
			return err
		}

		if bonus > 0 {
			th, err = table.LevelFor(stats.TotalXP)
			if err != nil {
				return err
			}
			stats.Level = th.Level
			result.LevelLabel = th.Label
		}

		if err := tx.SaveStats(ctx, stats); err != nil {
			return fmt.Errorf("save stats: %w", err)
		}

		result.XPEarned = actionXP + bonus
		result.NewTotalXP = stats.TotalXP
		result.NewLevel = stats.Level
		result.LeveledUp = stats.Level > prevLevel

		published = published[:0]
		if result.XPEarned > 0 {
			published = append(published,
				progression.NewXPCreditedEvent(event.UserID, event.Action, result.XPEarned, stats.TotalXP))
		}
		if result.LeveledUp {
			published = append(published,
				progression.NewLevelUpEvent(event.UserID, prevLevel, stats.Level, th.Label))
		}
		if stats.CurrentStreak < before.CurrentStreak {
			published = append(published,
				progression.NewStreakBrokenEvent(event.UserID, before.CurrentStreak))
		} else if stats.CurrentStreak > before.CurrentStreak && stats.CurrentStreak > 1 {
			published = append(published,
				progression.NewStreakExtendedEvent(event.UserID, stats.CurrentStreak, stats.LongestStreak))
		}
		for _, a := range awarded {
			result.AchievementsUnlocked = append(result.AchievementsUnlocked, a.ID)
			published = append(published,
				progression.NewAchievementUnlockedEvent(event.UserID, a.ID.String(), a.Title, a.XPReward))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result.ProcessedAt = time.Now().UTC()

	if result.Replayed {
		s.log.Debug("completion event replayed, no-op",
			logger.UserID(event.UserID),
			logger.String("idempotency_key", event.IdempotencyKey),
		)
		return result, nil
	}

	// Publish only after the unit of work committed. Subscribers tolerate
	// redelivery, so publish failures are logged, not surfaced.
	if s.publisher != nil {
		for _, ev := range published {
			if err := s.publisher.Publish(ev); err != nil {
				s.log.Warn("failed to publish domain event",
					logger.String("event_type", string(ev.EventType())),
					logger.Err(err),
				)
			}
		}
	}

	s.log.Info("completion event processed",
		logger.UserID(event.UserID),
		logger.String("action", string(event.Action)),
		logger.XPAmount(int(result.XPEarned)),
		logger.Int("new_level", int(result.NewLevel)),
		logger.Bool("leveled_up", result.LeveledUp),
		logger.Int("achievements_unlocked", len(result.AchievementsUnlocked)),
	)

	return result, nil
}

// awardLoop matches triggers, awards each match at most once through the
// ledger, and credits bonus XP. Bonus credits can cross further global
// thresholds, so matching repeats against the updated stats until no new
// achievement fires or the pass cap is hit. TryAward makes extra passes
// harmless.
func (s *ProgressionService) awardLoop(
	ctx context.Context,
	tx progression.Tx,
	defs []achievement.Achievement,
	event progression.CompletionEvent,
	before *progression.UserStats,
	stats *progression.UserStats,
) ([]achievement.Achievement, progression.XP, error) {
	var (
		awarded    []achievement.Achievement
		totalBonus progression.XP
	)
	seen := make(map[uuid.UUID]bool, len(defs))

	for pass := 0; pass < s.maxAwardPasses; pass++ {
		matched := s.matcher.MatchAll(defs, event, before, stats)

		// Crossing baseline for the next pass: the state before this
		// pass's bonus credits.
		baseline := stats.Clone()

		progressed := false
		for _, a := range matched {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true

			ok, err := tx.TryAward(ctx, event.UserID, a.ID)
			if err != nil {
				return nil, 0, fmt.Errorf("try award %s: %w", a.ID, err)
			}
			if !ok {
				// Already paid by an earlier event; the ledger is the sole
				// source of truth.
				continue
			}

			awarded = append(awarded, a)
			if a.XPReward > 0 {
				if err := stats.Credit(a.XPReward); err != nil {
					return nil, 0, err
				}
				totalBonus += a.XPReward
				progressed = true
			}
		}

		if !progressed {
			break
		}
		before = baseline
	}

	return awarded, totalBonus, nil
}
