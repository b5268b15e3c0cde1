package services

import (
	"fmt"

	"github.com/tonetrace/tonetrace/internal/analytics/anomaly"
	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/config"
	"github.com/tonetrace/tonetrace/internal/extract"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/queue"
	"github.com/tonetrace/tonetrace/internal/store"
	"github.com/tonetrace/tonetrace/internal/telemetry"
)

// NewAnalysisServiceFromConfig assembles the extraction pipeline, detector
// and updater described by cfg. submissions, events and tp may be nil.
func NewAnalysisServiceFromConfig(
	cfg *config.Config,
	logger *logging.Logger,
	profiles store.ProfileStore,
	submissions store.SubmissionStore,
	events *queue.EventPublisher,
	tp *telemetry.Provider,
) (*AnalysisService, error) {
	var names []string
	for _, name := range extract.Names() {
		if cfg.Analysis.ExtractorEnabled(name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no known extractor enabled in %v", cfg.Analysis.Extractors)
	}

	opts := []extract.PipelineOption{
		extract.WithTimeout(cfg.Analysis.ExtractorTimeout),
		extract.WithLogger(logger),
	}
	if tp != nil {
		opts = append(opts, extract.WithObserver(tp))
	}
	pipeline, err := extract.NewPipeline(names, opts...)
	if err != nil {
		return nil, err
	}

	return NewAnalysisService(logger, profiles, pipeline,
		anomaly.NewDetector(cfg.Anomaly),
		profile.NewUpdater(cfg.MeanMode()),
		AnalysisOptions{
			MaxRetries:    cfg.Store.MaxRetries,
			StoreTimeout:  cfg.Store.Timeout,
			MinTextLength: cfg.Analysis.MinTextLength,
			MaxTextLength: cfg.Analysis.MaxTextLength,
			Events:        events,
			Telemetry:     tp,
			Submissions:   submissions,
		}), nil
}
