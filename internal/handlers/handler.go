// Package handlers implements the HTTP API on top of the analysis services.
package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/models"
	"github.com/tonetrace/tonetrace/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	analysis *services.AnalysisService
	profiles *services.ProfileService
	history  *services.HistoryService
	started  time.Time
}

// New creates a new handler instance
func New(logger *logging.Logger, analysis *services.AnalysisService, profiles *services.ProfileService, history *services.HistoryService) *Handler {
	return &Handler{
		logger:   logger,
		analysis: analysis,
		profiles: profiles,
		history:  history,
		started:  time.Now(),
	}
}

// parseBody decodes a JSON request body into v. An empty body is invalid.
func parseBody(c *fiber.Ctx, v interface{}) error {
	body := c.Body()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	return json.Unmarshal(body, v)
}

// invalidJSON writes the INVALID_JSON envelope
func invalidJSON(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeInvalidJSON,
			Message: "Invalid request body: " + err.Error(),
			Path:    c.Path(),
		},
	})
}

// fail writes err as an error envelope with the status of its code
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	se := services.AsServiceError(err)
	status := se.StatusCode()
	if status >= fiber.StatusInternalServerError {
		h.logger.WithContext(c.UserContext()).Error("Request failed",
			"path", c.Path(), "code", se.Code, "error", se.Message)
	}
	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    se.Code,
			Message: se.Message,
			Path:    c.Path(),
			Details: se.Details,
		},
	})
}
