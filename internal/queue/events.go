package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/config"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// AnalysisEvent is published for every completed analysis
type AnalysisEvent struct {
	SubmissionID string             `json:"submission_id"`
	StudentID    string             `json:"student_id"`
	IsAnomaly    bool               `json:"is_anomaly"`
	Reasons      []string           `json:"reasons"`
	Details      map[string]float64 `json:"details"`
	TotalTexts   int                `json:"total_texts"`
	AnalyzedAt   time.Time          `json:"analyzed_at"`
}

// Submission is the intake payload consumed by the worker. Exactly one of
// Text and Metrics is expected.
type Submission struct {
	SubmissionID string                   `json:"submission_id,omitempty"`
	StudentID    string                   `json:"student_id"`
	Text         string                   `json:"text,omitempty"`
	Metrics      *analytics.MetricsRecord `json:"metrics,omitempty"`
	Attempt      int                      `json:"attempt,omitempty"` // Redeliveries so far
}

// DecodeSubmission parses and checks an intake payload
func DecodeSubmission(data []byte) (*Submission, error) {
	var s Submission
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid submission payload: %w", err)
	}
	if s.StudentID == "" {
		return nil, fmt.Errorf("invalid submission payload: student_id is required")
	}
	if s.Text == "" && s.Metrics == nil {
		return nil, fmt.Errorf("invalid submission payload: text or metrics is required")
	}
	return &s, nil
}

// PublishRecorder observes publish outcomes
type PublishRecorder interface {
	RecordPublish(subject string, err error)
}

// EventPublisher fans analysis events out to the analyses subject and, for
// anomalous analyses, to the anomalies subject. Failures are logged and
// recorded but never returned.
type EventPublisher struct {
	publisher Publisher
	subjects  config.SubjectsConfig
	recorder  PublishRecorder
	logger    *logging.Logger
	timeout   time.Duration
}

// NewEventPublisher creates an EventPublisher. A nil publisher disables
// publishing.
func NewEventPublisher(publisher Publisher, subjects config.SubjectsConfig, recorder PublishRecorder, logger *logging.Logger) *EventPublisher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &EventPublisher{
		publisher: publisher,
		subjects:  subjects,
		recorder:  recorder,
		logger:    logger,
		timeout:   utils.PublishTimeout,
	}
}

// PublishAnalysis publishes ev and reports how many subjects accepted it
func (p *EventPublisher) PublishAnalysis(ctx context.Context, ev *AnalysisEvent) int {
	if p == nil || p.publisher == nil || ev == nil {
		return 0
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("Failed to encode analysis event", "submission_id", ev.SubmissionID, "error", err)
		return 0
	}

	subjects := []string{p.subjects.Analyses}
	if ev.IsAnomaly {
		subjects = append(subjects, p.subjects.Anomalies)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	published := 0
	for _, subject := range subjects {
		err := p.publisher.Publish(ctx, Message{Subject: subject, Key: ev.StudentID, Data: data})
		if p.recorder != nil {
			p.recorder.RecordPublish(subject, err)
		}
		if err != nil {
			p.logger.Warn("Failed to publish analysis event",
				"subject", subject,
				"submission_id", ev.SubmissionID,
				"student_id", ev.StudentID,
				"error", err)
			continue
		}
		published++
	}
	return published
}
