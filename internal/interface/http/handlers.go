package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pianova-hub/piano-progression-hub/internal/application/command"
	"github.com/pianova-hub/piano-progression-hub/internal/application/query"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION API
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionAPI groups the progression endpoints.
type ProgressionAPI struct {
	service     *command.ProgressionService
	stats       *query.GetStatsHandler
	leaderboard *query.GetLeaderboardHandler
	rank        *query.GetUserRankHandler
	levels      *query.GetLevelsHandler
}

// NewProgressionAPI creates the API with its query and command handlers.
func NewProgressionAPI(
	service *command.ProgressionService,
	stats *query.GetStatsHandler,
	leaderboard *query.GetLeaderboardHandler,
	rank *query.GetUserRankHandler,
	levels *query.GetLevelsHandler,
) *ProgressionAPI {
	return &ProgressionAPI{
		service:     service,
		stats:       stats,
		leaderboard: leaderboard,
		rank:        rank,
		levels:      levels,
	}
}

// Register mounts the routes on the given group.
func (api *ProgressionAPI) Register(g *echo.Group) {
	g.POST("/events", api.postEvent)
	g.GET("/leaderboard", api.getLeaderboard)
	g.GET("/users/:id/stats", api.getUserStats)
	g.GET("/levels", api.getLevels)
}

// eventRequest is the completion event intake payload.
type eventRequest struct {
	UserID         string    `json:"user_id"`
	Action         string    `json:"action"`
	Subject        string    `json:"subject"`
	SubjectID      string    `json:"subject_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// postEvent applies one completion event. A replayed idempotency key returns
// 200 with replayed=true rather than an error, so at-least-once senders can
// retry blindly.
func (api *ProgressionAPI) postEvent(c echo.Context) error {
	req := new(eventRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body")
	}

	event := progression.CompletionEvent{
		UserID:         req.UserID,
		Action:         progression.ActionType(req.Action),
		Subject:        progression.SubjectType(req.Subject),
		SubjectID:      req.SubjectID,
		IdempotencyKey: req.IdempotencyKey,
		OccurredAt:     req.OccurredAt,
	}

	result, err := api.service.Process(c.Request().Context(), event)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// getLeaderboard serves one ranked page.
func (api *ProgressionAPI) getLeaderboard(c echo.Context) error {
	q := query.GetLeaderboardQuery{
		Page:     intQueryParam(c, "page"),
		PageSize: intQueryParam(c, "page_size"),
	}

	page, err := api.leaderboard.Handle(c.Request().Context(), q)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

// userStatsResponse augments the stats read model with the global rank.
type userStatsResponse struct {
	*query.UserStatsDTO
	Rank int `json:"rank"` // 0 when the learner has no entry yet
}

// getUserStats serves one learner's stats and global rank.
func (api *ProgressionAPI) getUserStats(c echo.Context) error {
	userID := c.Param("id")

	dto, err := api.stats.Handle(c.Request().Context(), query.GetStatsQuery{UserID: userID})
	if err != nil {
		return err
	}

	rank, err := api.rank.Handle(c.Request().Context(), query.GetUserRankQuery{UserID: userID})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, userStatsResponse{UserStatsDTO: dto, Rank: rank})
}

// getLevels serves the level threshold table.
func (api *ProgressionAPI) getLevels(c echo.Context) error {
	levels, err := api.levels.Handle(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"levels": levels})
}

func intQueryParam(c echo.Context, name string) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return -1 // fails query validation with an invalid-page error
	}
	return v
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH API
// ══════════════════════════════════════════════════════════════════════════════

// Pinger checks liveness of one backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// namedPinger pairs a Pinger with its display name.
type namedPinger struct {
	name   string
	pinger Pinger
}

// HealthAPI serves the health endpoint.
type HealthAPI struct {
	version string
	checks  []namedPinger
}

// NewHealthAPI creates the health endpoint.
func NewHealthAPI(version string) *HealthAPI {
	return &HealthAPI{version: version}
}

// AddCheck registers a backing service check. Nil pingers are ignored so a
// disabled cache simply drops out of the report.
func (h *HealthAPI) AddCheck(name string, p Pinger) {
	if p == nil {
		return
	}
	h.checks = append(h.checks, namedPinger{name: name, pinger: p})
}

// Register mounts the health route.
func (h *HealthAPI) Register(e *echo.Echo) {
	e.GET("/health", h.getHealth)
}

func (h *HealthAPI) getHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	services := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.pinger.Ping(ctx); err != nil {
			services[check.name] = "down"
			status = http.StatusServiceUnavailable
		} else {
			services[check.name] = "up"
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	return c.JSON(status, map[string]interface{}{
		"status":   state,
		"version":  h.version,
		"services": services,
	})
}
