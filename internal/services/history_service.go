package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/store"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// Series names accepted by History besides the analytics metrics
const (
	SeriesTone         = "tone"
	SeriesEmotion      = "emotion"
	SeriesHedgingCount = "hedging_count"
)

// HistoryService reads the submission archive
type HistoryService struct {
	logger      *logging.Logger
	submissions store.SubmissionStore
	timeout     time.Duration
}

// NewHistoryService creates a new HistoryService. A nil archive makes every
// read NOT_FOUND.
func NewHistoryService(logger *logging.Logger, submissions store.SubmissionStore, timeout time.Duration) *HistoryService {
	if timeout <= 0 {
		timeout = utils.StoreOperationTimeout
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &HistoryService{logger: logger, submissions: submissions, timeout: timeout}
}

// SubmissionList is one page of a student's archived submissions
type SubmissionList struct {
	StudentID   string                    `json:"student_id"`
	Count       int                       `json:"count"`
	Submissions []*store.SubmissionRecord `json:"submissions"`
}

// HistoryPoint is one submission's value of a series. Value is set for
// numeric series and Label for tone and emotion.
type HistoryPoint struct {
	SubmissionID string    `json:"submission_id"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
	Value        *float64  `json:"value,omitempty"`
	Label        string    `json:"label,omitempty"`
	IsAnomaly    bool      `json:"is_anomaly"`
}

// SeriesSummary aggregates the returned points
type SeriesSummary struct {
	Count        int            `json:"count"`
	Mean         *float64       `json:"mean,omitempty"`
	Min          *float64       `json:"min,omitempty"`
	Max          *float64       `json:"max,omitempty"`
	Change       *float64       `json:"change,omitempty"` // Last minus first
	Distribution map[string]int `json:"distribution,omitempty"`
}

// MetricHistory is a series oldest first
type MetricHistory struct {
	StudentID string         `json:"student_id"`
	Metric    string         `json:"metric"`
	Points    []HistoryPoint `json:"points"`
	Summary   SeriesSummary  `json:"summary"`
}

// HistorySeries lists every series name History accepts
func HistorySeries() []string {
	names := make([]string, 0, len(analytics.AllMetrics)+3)
	for _, m := range analytics.AllMetrics {
		names = append(names, string(m))
	}
	return append(names, SeriesHedgingCount, SeriesTone, SeriesEmotion)
}

// ListSubmissions returns a student's archived submissions newest first
func (s *HistoryService) ListSubmissions(ctx context.Context, studentID string, limit int, anomaliesOnly bool) (*SubmissionList, error) {
	records, err := s.list(ctx, studentID, limit, anomaliesOnly)
	if err != nil {
		return nil, err
	}
	return &SubmissionList{StudentID: studentID, Count: len(records), Submissions: records}, nil
}

// GetSubmission returns one archived submission
func (s *HistoryService) GetSubmission(ctx context.Context, submissionID string) (*store.SubmissionRecord, error) {
	if strings.TrimSpace(submissionID) == "" {
		return nil, NewServiceError(CodeInvalidRequest, "submission_id is required")
	}
	if s.submissions == nil {
		return nil, archiveDisabled()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	r, err := s.submissions.Get(ctx, submissionID)
	if errors.Is(err, store.ErrSubmissionNotFound) {
		return nil, NewServiceErrorWithDetails(CodeNotFound, "Submission not found", map[string]interface{}{
			"submission_id": submissionID,
		})
	}
	if err != nil {
		s.logger.Error("Failed to load submission", "submission_id", submissionID, "error", err)
		return nil, archiveFailure(err)
	}
	return r, nil
}

// History returns one series over the latest limit submissions that carry
// it, oldest first.
func (s *HistoryService) History(ctx context.Context, studentID, metric string, limit int) (*MetricHistory, error) {
	pick, err := seriesExtractor(metric)
	if err != nil {
		return nil, err
	}
	records, err := s.list(ctx, studentID, limit, false)
	if err != nil {
		return nil, err
	}

	points := make([]HistoryPoint, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Metrics == nil {
			continue
		}
		p, ok := pick(r.Metrics)
		if !ok {
			continue
		}
		p.SubmissionID = r.SubmissionID
		p.AnalyzedAt = r.AnalyzedAt
		p.IsAnomaly = r.IsAnomaly()
		points = append(points, p)
	}

	return &MetricHistory{
		StudentID: studentID,
		Metric:    metric,
		Points:    points,
		Summary:   summarize(points),
	}, nil
}

func (s *HistoryService) list(ctx context.Context, studentID string, limit int, anomaliesOnly bool) ([]*store.SubmissionRecord, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, NewServiceError(CodeInvalidRequest, "student_id is required")
	}
	limit, err := pageLimit(limit)
	if err != nil {
		return nil, err
	}
	if s.submissions == nil {
		return nil, archiveDisabled()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	records, err := s.submissions.List(ctx, studentID, store.SubmissionQuery{Limit: limit, AnomaliesOnly: anomaliesOnly})
	if err != nil {
		s.logger.Error("Failed to list submissions", "student_id", studentID, "error", err)
		return nil, archiveFailure(err)
	}
	if records == nil {
		records = []*store.SubmissionRecord{}
	}
	return records, nil
}

// pageLimit applies the default and the cap. Zero selects the default.
func pageLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, NewServiceErrorWithDetails(CodeInvalidRequest, "limit cannot be negative", map[string]interface{}{
			"limit": limit,
		})
	case limit == 0:
		return utils.DefaultHistoryLimit, nil
	case limit > utils.MaxHistoryLimit:
		return utils.MaxHistoryLimit, nil
	}
	return limit, nil
}

func seriesExtractor(metric string) (func(*analytics.MetricsRecord) (HistoryPoint, bool), error) {
	switch metric {
	case SeriesTone:
		return func(r *analytics.MetricsRecord) (HistoryPoint, bool) {
			label, ok := r.ToneLabel()
			return HistoryPoint{Label: label}, ok
		}, nil
	case SeriesEmotion:
		return func(r *analytics.MetricsRecord) (HistoryPoint, bool) {
			label, ok := r.EmotionLabel()
			return HistoryPoint{Label: label}, ok
		}, nil
	case SeriesHedgingCount:
		return func(r *analytics.MetricsRecord) (HistoryPoint, bool) {
			if r.HedgingCount == nil {
				return HistoryPoint{}, false
			}
			return HistoryPoint{Value: analytics.Float(float64(*r.HedgingCount))}, true
		}, nil
	}

	m := analytics.Metric(metric)
	if !m.Valid() {
		return nil, NewServiceErrorWithDetails(CodeInvalidRequest, "Unknown metric", map[string]interface{}{
			"metric":    metric,
			"supported": HistorySeries(),
		})
	}
	return func(r *analytics.MetricsRecord) (HistoryPoint, bool) {
		v, ok := r.Value(m)
		if !ok {
			return HistoryPoint{}, false
		}
		return HistoryPoint{Value: analytics.Float(v)}, true
	}, nil
}

func summarize(points []HistoryPoint) SeriesSummary {
	summary := SeriesSummary{Count: len(points)}
	if len(points) == 0 {
		return summary
	}

	if points[0].Value == nil {
		summary.Distribution = make(map[string]int)
		for _, p := range points {
			summary.Distribution[p.Label]++
		}
		return summary
	}

	values := make([]float64, len(points))
	sum := 0.0
	for i, p := range points {
		values[i] = *p.Value
		sum += *p.Value
	}
	first, last := values[0], values[len(values)-1]
	sort.Float64s(values)

	mean := sum / float64(len(values))
	lo, hi := values[0], values[len(values)-1]
	change := last - first
	summary.Mean, summary.Min, summary.Max, summary.Change = &mean, &lo, &hi, &change
	return summary
}

func archiveDisabled() *ServiceError {
	return NewServiceError(CodeNotFound, "Submission archive is disabled")
}

func archiveFailure(err error) *ServiceError {
	return NewServiceErrorWithDetails(CodeStoreUnavailable, "Failed to read submission archive", map[string]interface{}{
		"error": err.Error(),
	})
}
