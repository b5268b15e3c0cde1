package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tonetrace/tonetrace/internal/models"
	"github.com/tonetrace/tonetrace/internal/services"
)

// Health handles GET /health. It pings the backing stores and answers 503
// with status "degraded" when one is unreachable.
func (h *Handler) Health(c *fiber.Ctx) error {
	resp := models.HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       Version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if h.profiles == nil {
		return c.JSON(resp)
	}

	status := h.profiles.Health(c.UserContext())
	resp.Stores = map[string]string{
		"profiles":    status.Profiles,
		"submissions": status.Submissions,
	}
	if !status.Healthy() {
		resp.Status = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

// NotFound handles unmatched routes
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeNotFound,
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
