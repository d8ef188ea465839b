package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianova-hub/piano-progression-hub/internal/application/command"
	"github.com/pianova-hub/piano-progression-hub/internal/application/query"
	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
	"github.com/pianova-hub/piano-progression-hub/internal/infrastructure/persistence/memory"
	"github.com/pianova-hub/piano-progression-hub/pkg/logger"
)

func testRouter(t *testing.T) (*echo.Echo, *memory.Store) {
	t.Helper()

	table, err := progression.NewLevelTable([]progression.LevelThreshold{
		{Level: 1, MinXP: 0, MaxXP: progression.BoundedXP(99), Label: "Beginner"},
		{Level: 2, MinXP: 100, MaxXP: nil, Label: "Student"},
	})
	require.NoError(t, err)

	store := memory.NewStore()
	configRepo := memory.NewConfigRepository()
	configRepo.SetLevelTable(table)
	configRepo.SetRewardRules([]progression.RewardRule{
		{Action: progression.ActionLessonCompleted, XPValue: 50, IsActive: true},
	})

	quiet := logger.New(logger.Options{Output: io.Discard})
	service := command.NewProgressionService(store, configRepo, configRepo, nil, quiet, command.DefaultProgressionServiceConfig())

	api := NewProgressionAPI(
		service,
		query.NewGetStatsHandler(store, configRepo),
		query.NewGetLeaderboardHandler(store, nil),
		query.NewGetUserRankHandler(store),
		query.NewGetLevelsHandler(configRepo),
	)

	e := echo.New()
	e.HTTPErrorHandler = errorHandler(quiet)
	api.Register(e.Group("/api/v1"))
	return e, store
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func getPath(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPostEvent(t *testing.T) {
	e, _ := testRouter(t)

	body := `{
		"user_id": "user-1",
		"action": "lesson_completed",
		"subject": "lesson",
		"subject_id": "lesson-1",
		"idempotency_key": "evt-1"
	}`

	rec := postJSON(e, "/api/v1/events", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var result command.ProgressionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, progression.XP(50), result.XPEarned)
	assert.Equal(t, progression.Level(1), result.NewLevel)
	assert.False(t, result.Replayed)

	// Same key again: 200 with replayed=true, no double credit.
	rec = postJSON(e, "/api/v1/events", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Replayed)
	assert.Equal(t, progression.XP(50), result.NewTotalXP)
}

func TestPostEvent_MalformedBody(t *testing.T) {
	e, _ := testRouter(t)

	rec := postJSON(e, "/api/v1/events", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostEvent_InvalidEvent(t *testing.T) {
	e, _ := testRouter(t)

	rec := postJSON(e, "/api/v1/events", `{"user_id": "user-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp.Error.Code)
}

func TestGetLeaderboard(t *testing.T) {
	e, _ := testRouter(t)

	for _, user := range []string{"alice", "bob"} {
		rec := postJSON(e, "/api/v1/events", `{
			"user_id": "`+user+`",
			"action": "lesson_completed",
			"subject": "lesson",
			"subject_id": "lesson-1",
			"idempotency_key": "evt-`+user+`"
		}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := getPath(e, "/api/v1/leaderboard?page=1&page_size=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Entries []struct {
			Rank   int    `json:"rank"`
			UserID string `json:"user_id"`
		} `json:"entries"`
		TotalCount int `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Entries, 2)
	assert.Equal(t, 2, page.TotalCount)

	// Tie on XP: user ID ascending.
	assert.Equal(t, "alice", page.Entries[0].UserID)
	assert.Equal(t, 1, page.Entries[0].Rank)
}

func TestGetLeaderboard_BadParams(t *testing.T) {
	e, _ := testRouter(t)

	rec := getPath(e, "/api/v1/leaderboard?page=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUserStats(t *testing.T) {
	e, _ := testRouter(t)

	rec := postJSON(e, "/api/v1/events", `{
		"user_id": "user-1",
		"action": "lesson_completed",
		"subject": "lesson",
		"subject_id": "lesson-1",
		"idempotency_key": "evt-1"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = getPath(e, "/api/v1/users/user-1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID  string `json:"user_id"`
		TotalXP int    `json:"total_xp"`
		Rank    int    `json:"rank"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.UserID)
	assert.Equal(t, 50, resp.TotalXP)
	assert.Equal(t, 1, resp.Rank)
}

func TestGetUserStats_UnknownUser(t *testing.T) {
	e, _ := testRouter(t)

	rec := getPath(e, "/api/v1/users/nobody/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalXP int `json:"total_xp"`
		Rank    int `json:"rank"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.TotalXP)
	assert.Equal(t, 0, resp.Rank)
}

func TestGetLevels(t *testing.T) {
	e, _ := testRouter(t)

	rec := getPath(e, "/api/v1/levels")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Levels []struct {
			Level int    `json:"level"`
			MinXP int    `json:"min_xp"`
			MaxXP *int   `json:"max_xp"`
			Label string `json:"label"`
		} `json:"levels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Levels, 2)
	assert.Equal(t, "Beginner", resp.Levels[0].Label)
	require.NotNil(t, resp.Levels[0].MaxXP)
	assert.Equal(t, 99, *resp.Levels[0].MaxXP)
	assert.Nil(t, resp.Levels[1].MaxXP)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	health := NewHealthAPI("1.2.3")
	health.AddCheck("database", pingFunc(func(ctx context.Context) error { return nil }))
	health.Register(e)

	rec := getPath(e, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status   string            `json:"status"`
		Version  string            `json:"version"`
		Services map[string]string `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "up", resp.Services["database"])
}

func TestHealth_Degraded(t *testing.T) {
	e := echo.New()
	health := NewHealthAPI("1.2.3")
	health.AddCheck("database", pingFunc(func(ctx context.Context) error { return nil }))
	health.AddCheck("cache", pingFunc(func(ctx context.Context) error { return errors.New("down") }))
	health.Register(e)

	rec := getPath(e, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Services["cache"])
}

// pingFunc adapts a function to the Pinger interface.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
