package query

import (
	"context"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEVELS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// LevelDTO is one threshold of the level table as shown to clients.
type LevelDTO struct {
	Level int    `json:"level"`
	MinXP int    `json:"min_xp"`
	MaxXP *int   `json:"max_xp"` // null for the open-ended top level
	Label string `json:"label"`
}

// GetLevelsHandler serves the current level threshold table.
type GetLevelsHandler struct {
	configRepo progression.ConfigRepository
}

// NewGetLevelsHandler creates a handler.
func NewGetLevelsHandler(configRepo progression.ConfigRepository) *GetLevelsHandler {
	return &GetLevelsHandler{configRepo: configRepo}
}

// Handle executes the query. Thresholds come back ordered by MinXP.
func (h *GetLevelsHandler) Handle(ctx context.Context) ([]LevelDTO, error) {
	table, err := h.configRepo.LevelTable(ctx)
	if err != nil {
		return nil, err
	}

	thresholds := table.Thresholds()
	out := make([]LevelDTO, 0, len(thresholds))
	for _, th := range thresholds {
		dto := LevelDTO{
			Level: int(th.Level),
			MinXP: int(th.MinXP),
			Label: th.Label,
		}
		if th.MaxXP != nil {
			max := int(*th.MaxXP)
			dto.MaxXP = &max
		}
		out = append(out, dto)
	}
	return out, nil
}
