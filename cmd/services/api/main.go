package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tonetrace/tonetrace/internal/config"
	"github.com/tonetrace/tonetrace/internal/handlers"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/queue"
	"github.com/tonetrace/tonetrace/internal/router"
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
	logger.Info("API service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime,
		"config", cfg.Summary())

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

	tp := telemetry.NewProvider()

	// Events are optional; analyses still run without a queue
	var events *queue.EventPublisher
	if cfg.Queue.Enabled {
		q, err := queue.New(cfg.Queue, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Queue", "type", cfg.Queue.Type, "error", err)
		}
		defer func() { _ = q.Close() }()
		events = queue.NewEventPublisher(q, cfg.Queue.Subjects, tp, logger)
	} else {
		logger.Info("Queue disabled - analysis events will not be published")
	}

	analysis, err := services.NewAnalysisServiceFromConfig(cfg, logger, profiles, submissions, events, tp)
	if err != nil {
		logger.Fatal("Failed to build analysis service", "error", err)
	}
	h := handlers.New(logger, analysis,
		services.NewProfileService(logger, profiles, submissions, cfg.Store.Timeout),
		services.NewHistoryService(logger, submissions, cfg.Store.Timeout))

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	app := router.New(logger, h, *cfg, tp)

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
