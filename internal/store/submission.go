package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/analytics/anomaly"
)

// ErrSubmissionNotFound is returned by SubmissionStore.Get for unknown ids.
var ErrSubmissionNotFound = errors.New("submission not found")

// SubmissionRecord is the archived outcome of one analysis. Records are kept
// apart from the profile, which folds submissions into running means and
// never retains them.
type SubmissionRecord struct {
	SubmissionID string                   `json:"submission_id"`
	StudentID    string                   `json:"student_id"`
	Source       string                   `json:"source,omitempty"`
	TextPreview  string                   `json:"text_preview,omitempty"`
	TextLength   int                      `json:"text_length,omitempty"` // Characters
	Metrics      *analytics.MetricsRecord `json:"metrics"`
	Anomaly      *anomaly.Report          `json:"anomaly"`
	ProfileSaved bool                     `json:"profile_saved"`
	AnalyzedAt   time.Time                `json:"analyzed_at"`

	// ExtractorDurationsMS holds the wall time of every extractor that
	// reported back. Empty when metrics were supplied by the caller.
	ExtractorDurationsMS map[string]float64 `json:"extractor_durations_ms,omitempty"`
}

// IsAnomaly reports whether the archived report flagged the submission.
func (r *SubmissionRecord) IsAnomaly() bool {
	return r.Anomaly != nil && r.Anomaly.IsAnomaly
}

// SubmissionQuery filters a List call. Limit <= 0 returns every record.
type SubmissionQuery struct {
	Limit         int
	AnomaliesOnly bool
}

// SubmissionStore archives one record per analyzed submission.
type SubmissionStore interface {
	// Record inserts r or replaces the record with the same submission id.
	Record(ctx context.Context, r *SubmissionRecord) error

	// Get returns one record or ErrSubmissionNotFound.
	Get(ctx context.Context, submissionID string) (*SubmissionRecord, error)

	// List returns a student's records newest first.
	List(ctx context.Context, studentID string, q SubmissionQuery) ([]*SubmissionRecord, error)

	// DeleteStudent removes every record of a student and returns the count.
	DeleteStudent(ctx context.Context, studentID string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

func encodeSubmission(r *SubmissionRecord) ([]byte, error) {
	if r == nil || r.SubmissionID == "" || r.StudentID == "" {
		return nil, fmt.Errorf("submission record needs submission_id and student_id")
	}
	if r.AnalyzedAt.IsZero() {
		r.AnalyzedAt = time.Now().UTC()
	}
	return json.Marshal(r)
}

func decodeSubmission(doc []byte) (*SubmissionRecord, error) {
	var r SubmissionRecord
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("failed to decode submission record: %w", err)
	}
	return &r, nil
}
