package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tonetrace/tonetrace/internal/models"
)

// ProfileRevisionHeader carries the store revision of a returned profile
const ProfileRevisionHeader = "X-Profile-Revision"

// GetProfile handles GET /v1/students/:student_id/profile and returns the
// persisted document
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	result, err := h.profiles.GetProfile(c.UserContext(), c.Params("student_id"))
	if err != nil {
		return h.fail(c, err)
	}

	c.Set(ProfileRevisionHeader, strconv.FormatInt(result.Revision, 10))
	return c.JSON(result.Profile)
}

// Compare handles POST /v1/students/:student_id/compare
func (h *Handler) Compare(c *fiber.Ctx) error {
	var req models.CompareRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c, err)
	}

	studentID := c.Params("student_id")
	report, err := h.analysis.Compare(c.UserContext(), studentID, req.Text, req.Metrics)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(models.CompareResponse{StudentID: studentID, Anomaly: report})
}

// DeleteStudent handles DELETE /v1/students/:student_id. The profile and
// every archived submission are removed.
func (h *Handler) DeleteStudent(c *fiber.Ctx) error {
	result, err := h.profiles.DeleteStudent(c.UserContext(), c.Params("student_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}
