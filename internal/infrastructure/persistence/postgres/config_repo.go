package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/achievement"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIG REPOSITORY
// Administrative reference tables: level thresholds, reward rules, and
// achievement definitions. The progression service reads them fresh per
// event; the write methods back the administrative CRUD surface.
// ══════════════════════════════════════════════════════════════════════════════

// ConfigRepository implements progression.ConfigRepository and
// achievement.Registry on PostgreSQL.
type ConfigRepository struct {
	conn *Connection
}

// NewConfigRepository creates a ConfigRepository.
func NewConfigRepository(conn *Connection) *ConfigRepository {
	return &ConfigRepository{conn: conn}
}

// ──────────────────────────────────────────────────────────────────────────────
// READ PATHS
// ──────────────────────────────────────────────────────────────────────────────

// LevelTable implements progression.ConfigRepository. Table validation runs
// on every load: a gapped or overlapping table surfaces as a configuration
// error to the caller instead of producing wrong levels.
func (r *ConfigRepository) LevelTable(ctx context.Context) (*progression.LevelTable, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT level, min_xp, max_xp, label
		FROM level_thresholds
		ORDER BY min_xp
	`)
	if err != nil {
		return nil, shared.WrapError("progression", "LevelTable", shared.ErrStorageUnavailable, "failed to query level thresholds", err)
	}
	defer rows.Close()

	var thresholds []progression.LevelThreshold
	for rows.Next() {
		var (
			level int
			minXP int64
			maxXP *int64
			label string
		)
		if err := rows.Scan(&level, &minXP, &maxXP, &label); err != nil {
			return nil, shared.WrapError("progression", "LevelTable", shared.ErrStorageUnavailable, "failed to scan threshold row", err)
		}

		th := progression.LevelThreshold{
			Level: progression.Level(level),
			MinXP: progression.XP(minXP),
			Label: label,
		}
		if maxXP != nil {
			th.MaxXP = progression.BoundedXP(int(*maxXP))
		}
		thresholds = append(thresholds, th)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("progression", "LevelTable", shared.ErrStorageUnavailable, "failed to read threshold rows", err)
	}

	return progression.NewLevelTable(thresholds)
}

// RewardRules implements progression.ConfigRepository.
func (r *ConfigRepository) RewardRules(ctx context.Context) (*progression.RuleSet, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT action_type, xp_value, is_active
		FROM reward_rules
		WHERE is_active
	`)
	if err != nil {
		return nil, shared.WrapError("progression", "RewardRules", shared.ErrStorageUnavailable, "failed to query reward rules", err)
	}
	defer rows.Close()

	var rules []progression.RewardRule
	for rows.Next() {
		var (
			action  string
			xpValue int
			active  bool
		)
		if err := rows.Scan(&action, &xpValue, &active); err != nil {
			return nil, shared.WrapError("progression", "RewardRules", shared.ErrStorageUnavailable, "failed to scan rule row", err)
		}
		rules = append(rules, progression.RewardRule{
			Action:   progression.ActionType(action),
			XPValue:  progression.XP(xpValue),
			IsActive: active,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("progression", "RewardRules", shared.ErrStorageUnavailable, "failed to read rule rows", err)
	}

	return progression.NewRuleSet(rules), nil
}

// ListAchievements implements achievement.Registry.
func (r *ConfigRepository) ListAchievements(ctx context.Context) ([]achievement.Achievement, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT a.id, a.title, a.icon, a.xp_reward, a.requirement_type, a.requirement_value,
		       t.trigger_type, t.subject_id, a.created_at
		FROM achievements a
		JOIN achievement_triggers t ON t.achievement_id = a.id
		ORDER BY a.created_at, a.id
	`)
	if err != nil {
		return nil, shared.WrapError("achievement", "ListAchievements", shared.ErrStorageUnavailable, "failed to query achievements", err)
	}
	defer rows.Close()

	var defs []achievement.Achievement
	for rows.Next() {
		var (
			a           achievement.Achievement
			xpReward    int
			reqType     string
			triggerType string
			subjectID   *string
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Icon, &xpReward, &reqType, &a.RequirementValue,
			&triggerType, &subjectID, &a.CreatedAt); err != nil {
			return nil, shared.WrapError("achievement", "ListAchievements", shared.ErrStorageUnavailable, "failed to scan achievement row", err)
		}

		a.XPReward = progression.XP(xpReward)
		a.Requirement = progression.RequirementType(reqType)
		a.Trigger = achievement.Trigger{Kind: achievement.TriggerKind(triggerType)}
		if subjectID != nil {
			a.Trigger.SubjectID = *subjectID
		}
		defs = append(defs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("achievement", "ListAchievements", shared.ErrStorageUnavailable, "failed to read achievement rows", err)
	}

	return defs, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ADMINISTRATIVE WRITES
// ──────────────────────────────────────────────────────────────────────────────

// ReplaceLevelTable swaps the whole threshold table in one transaction.
// The new table is validated before any row is touched.
func (r *ConfigRepository) ReplaceLevelTable(ctx context.Context, thresholds []progression.LevelThreshold) error {
	if _, err := progression.NewLevelTable(thresholds); err != nil {
		return err
	}

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM level_thresholds`); err != nil {
			return err
		}
		for _, th := range thresholds {
			var maxXP *int64
			if th.MaxXP != nil {
				v := int64(*th.MaxXP)
				maxXP = &v
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO level_thresholds (level, min_xp, max_xp, label)
				VALUES ($1, $2, $3, $4)
			`, int(th.Level), int64(th.MinXP), maxXP, th.Label)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertRewardRule replaces the active rule for an action type. Full
// replacement, never a partial merge: the previous active rule is retired
// first so the partial unique index always holds.
func (r *ConfigRepository) UpsertRewardRule(ctx context.Context, rule progression.RewardRule) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE reward_rules SET is_active = FALSE, updated_at = NOW()
			WHERE action_type = $1 AND is_active
		`, string(rule.Action))
		if err != nil {
			return err
		}

		if !rule.IsActive {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO reward_rules (action_type, xp_value, is_active)
			VALUES ($1, $2, TRUE)
		`, string(rule.Action), int(rule.XPValue))
		return err
	})
}

// SaveAchievement inserts or updates a definition together with its
// trigger. Trigger replacement is a delete-then-insert so an achievement
// never carries two triggers, not even transiently within the transaction.
func (r *ConfigRepository) SaveAchievement(ctx context.Context, a achievement.Achievement) error {
	if err := a.Validate(); err != nil {
		return err
	}

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO achievements (id, title, icon, xp_reward, requirement_type, requirement_value, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET title = EXCLUDED.title,
			    icon = EXCLUDED.icon,
			    xp_reward = EXCLUDED.xp_reward,
			    requirement_type = EXCLUDED.requirement_type,
			    requirement_value = EXCLUDED.requirement_value
		`, a.ID, a.Title, a.Icon, int(a.XPReward), string(a.Requirement), a.RequirementValue, createdAt)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM achievement_triggers WHERE achievement_id = $1`, a.ID); err != nil {
			return err
		}

		var subjectID *string
		if a.Trigger.Kind != achievement.TriggerGlobal {
			subjectID = &a.Trigger.SubjectID
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO achievement_triggers (achievement_id, trigger_type, subject_id)
			VALUES ($1, $2, $3)
		`, a.ID, string(a.Trigger.Kind), subjectID)
		return err
	})
}

// DeleteAchievement removes a definition; the trigger and any award records
// cascade.
func (r *ConfigRepository) DeleteAchievement(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM achievements WHERE id = $1`, id)
	if err != nil {
		return shared.WrapError("achievement", "Delete", shared.ErrStorageUnavailable, "failed to delete achievement", err)
	}
	return nil
}
