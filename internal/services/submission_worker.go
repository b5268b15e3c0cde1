package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/queue"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// WorkerStats counts submissions by outcome
type WorkerStats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Requeued  int64 `json:"requeued"`
	Dropped   int64 `json:"dropped"` // Undecodable payloads
}

// SubmissionWorker consumes queued submissions with bounded concurrency.
// A message is acknowledged once it is dispatched; analyses that could not
// save the profile are published again on the intake subject until
// maxAttempts is reached.
type SubmissionWorker struct {
	logger      *logging.Logger
	analysis    *AnalysisService
	publisher   queue.Publisher
	subject     string
	maxAttempts int

	semaphore chan struct{}
	wg        sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
	requeued  atomic.Int64
	dropped   atomic.Int64
}

// NewSubmissionWorker creates a worker. publisher may be nil, which disables
// requeueing.
func NewSubmissionWorker(
	logger *logging.Logger,
	analysis *AnalysisService,
	publisher queue.Publisher,
	subject string,
	concurrency int,
	maxAttempts int,
) *SubmissionWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = utils.DefaultMaxRetries
	}
	return &SubmissionWorker{
		logger:      logger,
		analysis:    analysis,
		publisher:   publisher,
		subject:     subject,
		maxAttempts: maxAttempts,
		semaphore:   make(chan struct{}, concurrency),
	}
}

// Handle implements queue.MessageHandler. It blocks while every worker slot
// is busy; an error is returned only when ctx ends before a slot frees up.
func (w *SubmissionWorker) Handle(ctx context.Context, subject string, data []byte) error {
	sub, err := queue.DecodeSubmission(data)
	if err != nil {
		w.dropped.Add(1)
		w.logger.Warn("Dropping submission", "subject", subject, "error", err)
		return nil
	}
	if sub.SubmissionID == "" {
		sub.SubmissionID = uuid.NewString()
	}

	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.semaphore }()
		w.process(context.WithoutCancel(ctx), sub)
	}()
	return nil
}

func (w *SubmissionWorker) process(ctx context.Context, sub *queue.Submission) {
	ctx, cancel := context.WithTimeout(ctx, utils.DefaultRequestTimeout)
	defer cancel()

	_, err := w.analysis.Analyze(ctx, &AnalyzeInput{
		SubmissionID: sub.SubmissionID,
		StudentID:    sub.StudentID,
		Text:         sub.Text,
		Metrics:      sub.Metrics,
		Source:       SourceQueue,
		RequireSave:  true,
	})
	if err == nil {
		w.processed.Add(1)
		return
	}

	se := AsServiceError(err)
	retryable := se.Code == CodeUpdateConflict || se.Code == CodeStoreUnavailable
	if retryable && w.publisher != nil && sub.Attempt+1 < w.maxAttempts {
		if w.requeue(ctx, sub) {
			return
		}
	}

	w.failed.Add(1)
	w.logger.Error("Submission failed",
		"submission_id", sub.SubmissionID,
		"student_id", sub.StudentID,
		"code", se.Code,
		"attempt", sub.Attempt+1,
		"error", se.Message)
}

func (w *SubmissionWorker) requeue(ctx context.Context, sub *queue.Submission) bool {
	next := *sub
	next.Attempt++
	data, err := json.Marshal(&next)
	if err != nil {
		return false
	}

	pubCtx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()
	if err := w.publisher.Publish(pubCtx, queue.Message{Subject: w.subject, Key: sub.StudentID, Data: data}); err != nil {
		w.logger.Warn("Failed to requeue submission", "submission_id", sub.SubmissionID, "error", err)
		return false
	}

	w.requeued.Add(1)
	w.logger.Debug("Submission requeued", "submission_id", sub.SubmissionID, "attempt", next.Attempt)
	return true
}

// Wait blocks until every dispatched submission has finished
func (w *SubmissionWorker) Wait() {
	w.wg.Wait()
}

// Stats returns the outcome counters
func (w *SubmissionWorker) Stats() WorkerStats {
	return WorkerStats{
		Processed: w.processed.Load(),
		Failed:    w.failed.Load(),
		Requeued:  w.requeued.Load(),
		Dropped:   w.dropped.Load(),
	}
}
