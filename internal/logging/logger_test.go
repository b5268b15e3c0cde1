package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tonetrace/tonetrace/internal/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_FieldsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel)

	logger.Info("profile saved", "student_id", "s-1", "total_texts", 3)
	logger.Error("save failed", "error", errors.New("conflict"), "dangling")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0]["student_id"] != "s-1" || entries[0]["total_texts"] != float64(3) {
		t.Errorf("Unexpected fields: %v", entries[0])
	}
	if entries[1]["error"] != "conflict" {
		t.Errorf("Expected error string, got %v", entries[1]["error"])
	}
	if _, ok := entries[1]["dangling"]; ok {
		t.Error("Dangling key without value should be dropped")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.WarnLevel)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	if entries := decodeLines(t, &buf); len(entries) != 1 {
		t.Errorf("Expected only the warning, got %d entries", len(entries))
	}
}

func TestLogger_WithAndContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel).With("component", "analysis")

	ctx := WithRequestID(context.Background(), "req-9")
	ctx = WithStudentID(ctx, "s-42")
	ctx = WithLogger(ctx, logger)

	InfoCtx(ctx, "analyzed")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["component"] != "analysis" || e["request_id"] != "req-9" || e["student_id"] != "s-42" {
		t.Errorf("Missing context fields: %v", e)
	}
	if RequestID(ctx) != "req-9" {
		t.Errorf("RequestID() = %q", RequestID(ctx))
	}
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	if FromContext(context.Background()) != Global() {
		t.Error("Expected global logger without a context logger")
	}
}

func TestNewFromConfig(t *testing.T) {
	path := t.TempDir() + "/logs/app.log"
	logger, err := NewFromConfig(config.LoggingConfig{Level: "warn", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if logger.Zerolog().GetLevel() != zerolog.WarnLevel {
		t.Errorf("Expected warn level, got %v", logger.Zerolog().GetLevel())
	}

	logger, err = NewFromConfig(config.LoggingConfig{Level: "bogus", Format: "console"})
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if logger.Zerolog().GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info fallback, got %v", logger.Zerolog().GetLevel())
	}
}

func TestFiberMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	app := fiber.New()
	app.Use(FiberMiddleware(logger))
	app.Get("/ok", func(c *fiber.Ctx) error {
		if RequestID(c.UserContext()) == "" {
			t.Error("Expected request ID in user context")
		}
		return c.SendString("ok")
	})
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("healthy") })

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("Expected generated request ID header")
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.Header.Get(RequestIDHeader) != "fixed-id" {
		t.Errorf("Expected propagated request ID, got %q", resp.Header.Get(RequestIDHeader))
	}

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected only /ok to be logged, got %d entries", len(entries))
	}
	if entries[0]["path"] != "/ok" || entries[0]["status"] != float64(200) {
		t.Errorf("Unexpected log entry: %v", entries[0])
	}
}
