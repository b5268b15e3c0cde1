package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/analytics/anomaly"
	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/extract"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/queue"
	"github.com/tonetrace/tonetrace/internal/store"
	"github.com/tonetrace/tonetrace/internal/telemetry"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// Analysis sources used as telemetry labels
const (
	SourceHTTP  = "http"
	SourceQueue = "queue"
)

// AnalysisOptions configures an AnalysisService. Zero values select defaults.
type AnalysisOptions struct {
	MaxRetries    int           // Conditional save attempts (default: utils.DefaultMaxRetries)
	StoreTimeout  time.Duration // Per store call (default: utils.StoreOperationTimeout)
	MinTextLength int           // Characters, 0 disables the check
	MaxTextLength int           // Characters, 0 disables the check
	Events        *queue.EventPublisher
	Telemetry     *telemetry.Provider
	Submissions   store.SubmissionStore // Archive of every analysis, nil disables it
}

// AnalysisService runs one submission through extraction, anomaly detection
// against the stored baseline and the profile update.
type AnalysisService struct {
	logger    *logging.Logger
	profiles  store.ProfileStore
	locker    *store.KeyedLocker
	pipeline  *extract.Pipeline
	detector  *anomaly.Detector
	updater   *profile.Updater
	events    *queue.EventPublisher
	archive   store.SubmissionStore
	telemetry *telemetry.Provider
	opts      AnalysisOptions
	newID     func() string
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(
	logger *logging.Logger,
	profiles store.ProfileStore,
	pipeline *extract.Pipeline,
	detector *anomaly.Detector,
	updater *profile.Updater,
	opts AnalysisOptions,
) *AnalysisService {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = utils.DefaultMaxRetries
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = utils.StoreOperationTimeout
	}
	if logger == nil {
		logger = logging.Global()
	}
	if detector == nil {
		detector = anomaly.NewDetector(anomaly.DefaultConfig())
	}
	if updater == nil {
		updater = profile.NewUpdater(profile.MeanOverTexts)
	}
	return &AnalysisService{
		logger:    logger,
		profiles:  profiles,
		locker:    store.NewKeyedLocker(),
		pipeline:  pipeline,
		detector:  detector,
		updater:   updater,
		events:    opts.Events,
		archive:   opts.Submissions,
		telemetry: opts.Telemetry,
		opts:      opts,
		newID:     uuid.NewString,
	}
}

// AnalyzeInput is one submission. Exactly one of Text and Metrics must be set.
type AnalyzeInput struct {
	SubmissionID string // Generated when empty
	StudentID    string
	Text         string
	Metrics      *analytics.MetricsRecord
	Source       string

	// RequireSave turns a lost profile update into an error instead of a
	// result with ProfileSaved=false.
	RequireSave bool
}

// AnalysisResult is the outcome of Analyze
type AnalysisResult struct {
	SubmissionID string                   `json:"submission_id"`
	StudentID    string                   `json:"student_id"`
	Metrics      *analytics.MetricsRecord `json:"metrics"`
	Anomaly      *anomaly.Report          `json:"anomaly"`
	Profile      *profile.Document        `json:"profile"`
	ProfileSaved bool                     `json:"profile_saved"`
}

// Analyze compares the submission against the student's baseline, folds it
// into the profile and saves the result. Concurrent submissions of one
// student are serialized in process; writers in other processes are detected
// by the store revision and retried.
func (s *AnalysisService) Analyze(ctx context.Context, in *AnalyzeInput) (*AnalysisResult, error) {
	startTime := time.Now()

	if in == nil || strings.TrimSpace(in.StudentID) == "" {
		return nil, NewServiceError(CodeInvalidRequest, "student_id is required")
	}
	record, timings, err := s.resolveMetrics(ctx, in.Text, in.Metrics)
	if err != nil {
		return nil, err
	}

	submissionID := in.SubmissionID
	if submissionID == "" {
		submissionID = s.newID()
	}
	ctx = logging.WithStudentID(logging.WithSubmissionID(ctx, submissionID), in.StudentID)
	log := s.logger.WithContext(ctx)

	unlock := s.locker.Lock(in.StudentID)
	defer unlock()

	current := s.updater.Update(profile.New(), record)

	var (
		report        *anomaly.Report
		updated       *profile.StyleProfile
		baselineTexts int
		saveErr       error
	)
	for attempt := 0; attempt < s.opts.MaxRetries; attempt++ {
		baseline, revision := s.loadBaseline(ctx, in.StudentID)
		baselineTexts = baseline.TotalTexts

		report = s.detector.Detect(current, baseline)
		updated = s.updater.Update(baseline.Clone(), record)

		saveErr = s.save(ctx, in.StudentID, updated, revision)
		if saveErr == nil {
			break
		}
		if !errors.Is(saveErr, store.ErrRevisionConflict) {
			s.telemetry.RecordStoreError("save")
			log.Error("Failed to save profile", "error", saveErr, "attempt", attempt+1)
			break
		}

		s.telemetry.RecordSaveConflict()
		log.Debug("Profile changed concurrently, retrying", "attempt", attempt+1, "revision", revision)
		if !sleepContext(ctx, utils.RetryBackoff(attempt)) {
			saveErr = ctx.Err()
			break
		}
	}

	saved := saveErr == nil
	if !saved {
		s.telemetry.RecordLostUpdate()
		log.Warn("Profile update lost", "error", saveErr, "max_retries", s.opts.MaxRetries)
		if in.RequireSave {
			return nil, saveFailure(saveErr)
		}
	}

	source := in.Source
	if source == "" {
		source = SourceHTTP
	}
	s.telemetry.RecordAnalysis(source, saved, report.IsAnomaly, s.detector.Flagged(report), time.Since(startTime))

	totalTexts := updated.TotalTexts
	if !saved {
		totalTexts = baselineTexts
	}
	analyzedAt := time.Now().UTC()
	s.recordSubmission(ctx, &store.SubmissionRecord{
		SubmissionID:         submissionID,
		StudentID:            in.StudentID,
		Source:               source,
		TextPreview:          utils.Preview(in.Text, utils.SubmissionPreviewLength),
		TextLength:           utf8.RuneCountInString(in.Text),
		Metrics:              record,
		Anomaly:              report,
		ProfileSaved:         saved,
		AnalyzedAt:           analyzedAt,
		ExtractorDurationsMS: timings.Milliseconds(),
	})
	s.events.PublishAnalysis(ctx, &queue.AnalysisEvent{
		SubmissionID: submissionID,
		StudentID:    in.StudentID,
		IsAnomaly:    report.IsAnomaly,
		Reasons:      report.Reasons,
		Details:      report.Details,
		TotalTexts:   totalTexts,
		AnalyzedAt:   analyzedAt,
	})

	log.Info("Analysis completed",
		"is_anomaly", report.IsAnomaly,
		"reasons", len(report.Reasons),
		"total_texts", updated.TotalTexts,
		"profile_saved", saved,
		"latency_ms", time.Since(startTime).Milliseconds())

	return &AnalysisResult{
		SubmissionID: submissionID,
		StudentID:    in.StudentID,
		Metrics:      record,
		Anomaly:      report,
		Profile:      updated.ToDocument(),
		ProfileSaved: saved,
	}, nil
}

// Extract runs the extractor pipeline without touching any profile
func (s *AnalysisService) Extract(ctx context.Context, text string) (*analytics.MetricsRecord, error) {
	record, _, err := s.resolveMetrics(ctx, text, nil)
	return record, err
}

// Compare checks the submission against the stored baseline without
// updating it. A student without a profile is NOT_FOUND.
func (s *AnalysisService) Compare(ctx context.Context, studentID, text string, metrics *analytics.MetricsRecord) (*anomaly.Report, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, NewServiceError(CodeInvalidRequest, "student_id is required")
	}
	record, _, err := s.resolveMetrics(ctx, text, metrics)
	if err != nil {
		return nil, err
	}

	snap, err := s.get(ctx, studentID)
	if err != nil {
		return nil, lookupFailure(studentID, err)
	}

	return s.detector.Detect(s.updater.Update(profile.New(), record), snap.Profile), nil
}

// resolveMetrics validates supplied metrics or extracts them from text.
// Timings are nil for supplied metrics.
func (s *AnalysisService) resolveMetrics(ctx context.Context, text string, metrics *analytics.MetricsRecord) (*analytics.MetricsRecord, extract.Timings, error) {
	switch {
	case metrics != nil && text != "":
		return nil, nil, NewServiceError(CodeInvalidRequest, "provide either text or metrics, not both")
	case metrics != nil:
		if err := metrics.Validate(); err != nil {
			return nil, nil, NewServiceErrorWithDetails(CodeInvalidRequest, "Invalid metrics", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return metrics, nil, nil
	case strings.TrimSpace(text) == "":
		return nil, nil, NewServiceError(CodeInvalidRequest, "text or metrics is required")
	}

	length := utf8.RuneCountInString(text)
	if s.opts.MinTextLength > 0 && length < s.opts.MinTextLength {
		return nil, nil, NewServiceErrorWithDetails(CodeInvalidRequest, "Text is too short", map[string]interface{}{
			"length":     length,
			"min_length": s.opts.MinTextLength,
		})
	}
	if s.opts.MaxTextLength > 0 && length > s.opts.MaxTextLength {
		return nil, nil, NewServiceErrorWithDetails(CodeInvalidRequest, "Text is too long", map[string]interface{}{
			"length":     length,
			"max_length": s.opts.MaxTextLength,
		})
	}

	if s.pipeline == nil {
		return nil, nil, NewServiceError(CodeInternal, "No extractors configured")
	}
	record, timings, err := s.pipeline.RunTimed(ctx, text)
	if err != nil {
		if errors.Is(err, extract.ErrEmptyText) {
			return nil, nil, NewServiceError(CodeInvalidRequest, "Text contains no words")
		}
		return nil, nil, NewServiceErrorWithDetails(CodeInternal, "Failed to extract metrics", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return record, timings, nil
}

// loadBaseline returns the stored profile and its revision. A missing
// profile, or a store that cannot be read, yields a fresh default at
// revision 0; saving at revision 0 fails if a profile does exist, so a read
// failure can never overwrite stored data.
func (s *AnalysisService) loadBaseline(ctx context.Context, studentID string) (*profile.StyleProfile, int64) {
	snap, err := s.get(ctx, studentID)
	if err == nil {
		return snap.Profile, snap.Revision
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.telemetry.RecordStoreError("get")
		s.logger.WithContext(ctx).Error("Failed to load profile, using default", "error", err)
	}
	return s.profiles.CreateDefault(), 0
}

func (s *AnalysisService) get(ctx context.Context, studentID string) (*store.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	return s.profiles.Get(ctx, studentID)
}

func (s *AnalysisService) save(ctx context.Context, studentID string, p *profile.StyleProfile, revision int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	_, err := s.profiles.Save(ctx, studentID, p, revision)
	return err
}

// recordSubmission archives r. Failures are logged and counted, never
// returned: the profile update already happened.
func (s *AnalysisService) recordSubmission(ctx context.Context, r *store.SubmissionRecord) {
	if s.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.archive.Record(ctx, r); err != nil {
		s.telemetry.RecordStoreError("record")
		s.logger.WithContext(ctx).Error("Failed to archive submission", "error", err)
	}
}

func saveFailure(err error) *ServiceError {
	if errors.Is(err, store.ErrRevisionConflict) {
		return NewServiceError(CodeUpdateConflict, "Profile was modified concurrently, update not applied")
	}
	return NewServiceErrorWithDetails(CodeStoreUnavailable, "Failed to save profile", map[string]interface{}{
		"error": err.Error(),
	})
}

func lookupFailure(studentID string, err error) *ServiceError {
	if errors.Is(err, store.ErrNotFound) {
		return NewServiceErrorWithDetails(CodeNotFound, "Profile not found", map[string]interface{}{
			"student_id": studentID,
		})
	}
	return NewServiceErrorWithDetails(CodeStoreUnavailable, "Failed to load profile", map[string]interface{}{
		"error": err.Error(),
	})
}

// sleepContext waits for d and reports false if ctx ended first
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
