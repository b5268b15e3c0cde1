package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tonetrace/tonetrace/internal/models"
	"github.com/tonetrace/tonetrace/internal/services"
)

// Analyze handles POST /v1/analyze
func (h *Handler) Analyze(c *fiber.Ctx) error {
	var req models.AnalyzeRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c, err)
	}

	result, err := h.analysis.Analyze(c.UserContext(), &services.AnalyzeInput{
		SubmissionID: req.SubmissionID,
		StudentID:    req.StudentID,
		Text:         req.Text,
		Metrics:      req.Metrics,
		Source:       services.SourceHTTP,
		RequireSave:  req.RequireSave,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(models.AnalyzeResponse{
		SubmissionID: result.SubmissionID,
		StudentID:    result.StudentID,
		Metrics:      result.Metrics,
		Anomaly:      result.Anomaly,
		Profile:      result.Profile,
		ProfileSaved: result.ProfileSaved,
	})
}

// Extract handles POST /v1/extract
func (h *Handler) Extract(c *fiber.Ctx) error {
	var req models.ExtractRequest
	if err := parseBody(c, &req); err != nil {
		return invalidJSON(c, err)
	}

	record, err := h.analysis.Extract(c.UserContext(), req.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(models.ExtractResponse{Metrics: record})
}
