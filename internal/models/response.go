package models

import (
	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/analytics/anomaly"
	"github.com/tonetrace/tonetrace/internal/analytics/profile"
)

// HealthResponse reports process liveness and store reachability
type HealthResponse struct {
	Status        string            `json:"status"` // healthy or degraded
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Stores        map[string]string `json:"stores,omitempty"`
}

// AnalyzeResponse represents analysis response
type AnalyzeResponse struct {
	SubmissionID string                   `json:"submission_id"`
	StudentID    string                   `json:"student_id"`
	Metrics      *analytics.MetricsRecord `json:"metrics"`
	Anomaly      *anomaly.Report          `json:"anomaly"`
	Profile      *profile.Document        `json:"profile"`
	ProfileSaved bool                     `json:"profile_saved"`
}

// ExtractResponse represents extract-only response
type ExtractResponse struct {
	Metrics *analytics.MetricsRecord `json:"metrics"`
}

// CompareResponse represents comparison response
type CompareResponse struct {
	StudentID string          `json:"student_id"`
	Anomaly   *anomaly.Report `json:"anomaly"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
