package query

import (
	"context"
	"time"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER STATS QUERY
// Read accessor consumed by UI collaborators to render progress bars and
// badges. Includes progress toward the next level threshold.
// ══════════════════════════════════════════════════════════════════════════════

// GetStatsQuery contains the request parameters.
type GetStatsQuery struct {
	UserID string
}

// UserStatsDTO is the read model returned to clients.
type UserStatsDTO struct {
	UserID              string    `json:"user_id"`
	TotalXP             int       `json:"total_xp"`
	Level               int       `json:"level"`
	LevelLabel          string    `json:"level_label"`
	XPIntoLevel         int       `json:"xp_into_level"`
	XPToNextLevel       int       `json:"xp_to_next_level"` // 0 at the top level
	LessonsCompleted    int       `json:"lessons_completed"`
	QuizzesCompleted    int       `json:"quizzes_completed"`
	SongsCompleted      int       `json:"songs_completed"`
	DailyGoalsCompleted int       `json:"daily_goals_completed"`
	CurrentStreak       int       `json:"current_streak"`
	LongestStreak       int       `json:"longest_streak"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// GetStatsHandler serves learner stats.
type GetStatsHandler struct {
	store      progression.Store
	configRepo progression.ConfigRepository
}

// NewGetStatsHandler creates a handler.
func NewGetStatsHandler(store progression.Store, configRepo progression.ConfigRepository) *GetStatsHandler {
	return &GetStatsHandler{store: store, configRepo: configRepo}
}

// Handle executes the query. A learner without any processed event yet gets
// a zero-valued record at the lowest level rather than a not-found error.
func (h *GetStatsHandler) Handle(ctx context.Context, q GetStatsQuery) (*UserStatsDTO, error) {
	if q.UserID == "" {
		return nil, shared.ErrEmptyUserID
	}

	stats, err := h.store.StatsFor(ctx, q.UserID)
	if err != nil {
		if shared.IsTransient(err) {
			return nil, err
		}
		stats = progression.NewUserStats(q.UserID)
	}

	table, err := h.configRepo.LevelTable(ctx)
	if err != nil {
		return nil, err
	}
	th, err := table.LevelFor(stats.TotalXP)
	if err != nil {
		return nil, err
	}

	dto := &UserStatsDTO{
		UserID:              stats.UserID,
		TotalXP:             int(stats.TotalXP),
		Level:               int(th.Level),
		LevelLabel:          th.Label,
		XPIntoLevel:         int(stats.TotalXP - th.MinXP),
		LessonsCompleted:    stats.LessonsCompleted,
		QuizzesCompleted:    stats.QuizzesCompleted,
		SongsCompleted:      stats.SongsCompleted,
		DailyGoalsCompleted: stats.DailyGoalsCompleted,
		CurrentStreak:       stats.CurrentStreak,
		LongestStreak:       stats.LongestStreak,
		UpdatedAt:           stats.UpdatedAt,
	}
	if !th.Unbounded() {
		dto.XPToNextLevel = int(*th.MaxXP - stats.TotalXP + 1)
	}
	return dto, nil
}
