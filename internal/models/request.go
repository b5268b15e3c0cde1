package models

import "github.com/tonetrace/tonetrace/internal/analytics"

// AnalyzeRequest represents an analysis submission. Exactly one of Text and
// Metrics must be set.
type AnalyzeRequest struct {
	StudentID    string                   `json:"student_id"`
	Text         string                   `json:"text,omitempty"`
	Metrics      *analytics.MetricsRecord `json:"metrics,omitempty"`
	SubmissionID string                   `json:"submission_id,omitempty"` // Generated when empty
	RequireSave  bool                     `json:"require_save,omitempty"`  // Fail instead of returning profile_saved=false
}

// ExtractRequest represents an extract-only request
type ExtractRequest struct {
	Text string `json:"text"`
}

// CompareRequest represents a comparison against the stored baseline
type CompareRequest struct {
	Text    string                   `json:"text,omitempty"`
	Metrics *analytics.MetricsRecord `json:"metrics,omitempty"`
}
