package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tonetrace/tonetrace/internal/analytics/anomaly"
	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/extract"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/services"
	"github.com/tonetrace/tonetrace/internal/store"
)

// setupTestApp wires the handlers onto an app backed by profiles and an
// in-memory submission archive
func setupTestApp(t *testing.T, profiles store.ProfileStore) *fiber.App {
	t.Helper()
	return setupTestAppWithArchive(t, profiles, store.NewMemorySubmissionStore())
}

func setupTestAppWithArchive(t *testing.T, profiles store.ProfileStore, archive store.SubmissionStore) *fiber.App {
	t.Helper()
	logger := logging.Nop()

	pipeline, err := extract.NewPipeline(nil)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	analysis := services.NewAnalysisService(logger, profiles, pipeline,
		anomaly.NewDetector(anomaly.DefaultConfig()), profile.NewUpdater(profile.MeanOverTexts),
		services.AnalysisOptions{MinTextLength: 5, Submissions: archive})
	h := New(logger, analysis,
		services.NewProfileService(logger, profiles, archive, 0),
		services.NewHistoryService(logger, archive, 0))

	app := fiber.New()
	app.Get("/health", h.Health)
	app.Post("/v1/analyze", h.Analyze)
	app.Post("/v1/extract", h.Extract)
	app.Get("/v1/students/:student_id/profile", h.GetProfile)
	app.Post("/v1/students/:student_id/compare", h.Compare)
	app.Delete("/v1/students/:student_id", h.DeleteStudent)
	app.Get("/v1/students/:student_id/submissions", h.ListSubmissions)
	app.Get("/v1/students/:student_id/history/:metric", h.History)
	app.Get("/v1/submissions/:submission_id", h.GetSubmission)
	app.Use(h.NotFound)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return resp, data
}

func decodeBody(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

func decode(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to unmarshal response %s: %v", data, err)
	}
}
