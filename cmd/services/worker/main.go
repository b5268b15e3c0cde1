package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tonetrace/tonetrace/internal/config"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/queue"
	"github.com/tonetrace/tonetrace/internal/services"
	"github.com/tonetrace/tonetrace/internal/store"
	"github.com/tonetrace/tonetrace/internal/telemetry"
	"github.com/tonetrace/tonetrace/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

// maxAttempts bounds how often one submission is requeued after a lost update
const maxAttempts = 5

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Submission worker starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime,
		"config", cfg.Summary())

	if !cfg.Queue.Enabled {
		logger.Fatal("Queue must be enabled to run the submission worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	profiles, err := store.New(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("Failed to open profile store", "type", cfg.Store.Type, "error", err)
	}
	defer func() { _ = profiles.Close() }()

	submissions, err := store.NewSubmissionStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("Failed to open submission archive", "type", cfg.Store.SubmissionStoreType(), "error", err)
	}
	if submissions != nil {
		defer func() { _ = submissions.Close() }()
	}

	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "type", cfg.Queue.Type, "error", err)
	}
	defer func() { _ = q.Close() }()

	tp := telemetry.NewProvider()
	events := queue.NewEventPublisher(q, cfg.Queue.Subjects, tp, logger)

	analysis, err := services.NewAnalysisServiceFromConfig(cfg, logger, profiles, submissions, events, tp)
	if err != nil {
		logger.Fatal("Failed to build analysis service", "error", err)
	}

	subject := cfg.Queue.Subjects.Submissions
	worker := services.NewSubmissionWorker(logger, analysis, q, subject,
		cfg.Analysis.WorkerConcurrency, maxAttempts)

	if err := q.Subscribe(ctx, subject, worker.Handle); err != nil {
		logger.Fatal("Failed to subscribe", "subject", subject, "error", err)
	}
	logger.Info("Consuming submissions",
		"subject", subject,
		"concurrency", cfg.Analysis.WorkerConcurrency,
		"queue_type", cfg.Queue.Type)

	waitForShutdown(logger, cancel)

	if err := q.Unsubscribe(subject); err != nil {
		logger.Warn("Failed to unsubscribe", "subject", subject, "error", err)
	}

	drained := make(chan struct{})
	go func() {
		worker.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(utils.ShutdownTimeout):
		logger.Warn("Timed out waiting for in-flight submissions")
	}

	stats := worker.Stats()
	logger.Info("Submission worker stopped",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"requeued", stats.Requeued,
		"dropped", stats.Dropped)
}

// waitForShutdown blocks until an interrupt and cancels the consumer context
func waitForShutdown(logger *logging.Logger, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig.String())
	cancel()
}
