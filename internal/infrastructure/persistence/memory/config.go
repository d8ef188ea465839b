package memory

import (
	"context"
	"sync"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/achievement"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ConfigRepository holds reference tables in memory. Swappable at runtime,
// which the tests use to exercise hot-reload behavior.
type ConfigRepository struct {
	mu           sync.RWMutex
	table        *progression.LevelTable
	rules        *progression.RuleSet
	achievements []achievement.Achievement
}

// NewConfigRepository creates an empty repository. LevelTable returns a
// configuration error until SetLevelTable is called - an empty threshold
// table is never silently tolerated.
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{
		rules: progression.NewRuleSet(nil),
	}
}

// SetLevelTable replaces the threshold table.
func (r *ConfigRepository) SetLevelTable(table *progression.LevelTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table = table
}

// SetRewardRules replaces the full reward rule snapshot.
func (r *ConfigRepository) SetRewardRules(rules []progression.RewardRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = progression.NewRuleSet(rules)
}

// SetAchievements replaces the achievement definitions.
func (r *ConfigRepository) SetAchievements(defs []achievement.Achievement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.achievements = append([]achievement.Achievement(nil), defs...)
}

// LevelTable implements progression.ConfigRepository.
func (r *ConfigRepository) LevelTable(ctx context.Context) (*progression.LevelTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.table == nil {
		return nil, shared.NewDomainError("progression", "LevelTable", shared.ErrConfiguration, "no threshold table configured")
	}
	return r.table, nil
}

// RewardRules implements progression.ConfigRepository.
func (r *ConfigRepository) RewardRules(ctx context.Context) (*progression.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rules, nil
}

// ListAchievements implements achievement.Registry.
func (r *ConfigRepository) ListAchievements(ctx context.Context) ([]achievement.Achievement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]achievement.Achievement(nil), r.achievements...), nil
}
