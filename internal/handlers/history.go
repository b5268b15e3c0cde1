package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tonetrace/tonetrace/internal/services"
)

// ListSubmissions handles GET /v1/students/:student_id/submissions
func (h *Handler) ListSubmissions(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return h.fail(c, err)
	}
	anomaliesOnly, err := queryBool(c, "anomalies_only")
	if err != nil {
		return h.fail(c, err)
	}

	list, err := h.history.ListSubmissions(c.UserContext(), c.Params("student_id"), limit, anomaliesOnly)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

// History handles GET /v1/students/:student_id/history/:metric
func (h *Handler) History(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return h.fail(c, err)
	}

	history, err := h.history.History(c.UserContext(), c.Params("student_id"), c.Params("metric"), limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(history)
}

// GetSubmission handles GET /v1/submissions/:submission_id
func (h *Handler) GetSubmission(c *fiber.Ctx) error {
	record, err := h.history.GetSubmission(c.UserContext(), c.Params("submission_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(record)
}

// queryLimit parses ?limit=. Missing means zero, which selects the default.
func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, services.NewServiceErrorWithDetails(services.CodeInvalidRequest, "limit must be an integer", map[string]interface{}{
			"limit": raw,
		})
	}
	return limit, nil
}

func queryBool(c *fiber.Ctx, key string) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, services.NewServiceErrorWithDetails(services.CodeInvalidRequest, key+" must be a boolean", map[string]interface{}{
			key: raw,
		})
	}
	return v, nil
}
