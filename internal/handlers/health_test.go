package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/models"
	"github.com/tonetrace/tonetrace/internal/store"
)

func TestHealth(t *testing.T) {
	app := setupTestApp(t, store.NewMemoryStore())

	resp, body := doJSON(t, app, "GET", "/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var health models.HealthResponse
	decode(t, body, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, Version, health.Version)
	assert.Equal(t, map[string]string{"profiles": "ok", "submissions": "ok"}, health.Stores)
	assert.GreaterOrEqual(t, health.UptimeSeconds, int64(0))

	_, err := time.Parse(time.RFC3339, health.Timestamp)
	assert.NoError(t, err, "timestamp must be RFC 3339")
}

// unreachableStore fails every ping
type unreachableStore struct {
	store.ProfileStore
}

func (unreachableStore) Ping(context.Context) error {
	return errors.New("dial tcp: connection refused")
}

func TestHealth_StoreUnreachable(t *testing.T) {
	app := setupTestApp(t, unreachableStore{store.NewMemoryStore()})

	resp, body := doJSON(t, app, "GET", "/health", "")
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, string(body))

	var health models.HealthResponse
	decode(t, body, &health)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "unavailable", health.Stores["profiles"])
	assert.Equal(t, "ok", health.Stores["submissions"])
}

func TestHealth_ClosedArchive(t *testing.T) {
	archive := store.NewMemorySubmissionStore()
	require.NoError(t, archive.Close())
	app := setupTestAppWithArchive(t, store.NewMemoryStore(), archive)

	resp, body := doJSON(t, app, "GET", "/health", "")
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, string(body))

	var health models.HealthResponse
	decode(t, body, &health)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "ok", health.Stores["profiles"])
	assert.Equal(t, "unavailable", health.Stores["submissions"])
}

func TestHealth_WithoutServices(t *testing.T) {
	h := &Handler{logger: logging.Nop(), started: time.Now()}
	app := fiber.New()
	app.Get("/health", h.Health)

	resp, body := doJSON(t, app, "GET", "/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health models.HealthResponse
	decode(t, body, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Nil(t, health.Stores)
}

func TestNotFound(t *testing.T) {
	h := &Handler{logger: logging.Nop()}
	app := fiber.New()
	app.Use(logging.FiberMiddleware(logging.Nop()))
	app.Use(h.NotFound)

	req := httptest.NewRequest("DELETE", "/v1/students/s1/profile", nil)
	req.Header.Set(logging.RequestIDHeader, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "req-123", resp.Header.Get(logging.RequestIDHeader))

	var errResp models.ErrorResponse
	require.NoError(t, decodeBody(resp.Body, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Error.Code)
	assert.Equal(t, "/v1/students/s1/profile", errResp.Error.Path)
}
