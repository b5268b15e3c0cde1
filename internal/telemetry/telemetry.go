// Package telemetry exports Prometheus metrics for analyses, profile saves,
// queue publishing and extractors.
package telemetry

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tonetrace"

// Metrics holds all tonetrace Prometheus metrics
type Metrics struct {
	// Analysis metrics
	AnalysesTotal    *prometheus.CounterVec
	AnomaliesTotal   prometheus.Counter
	AnalysisDuration prometheus.Histogram
	AnomalyReasons   *prometheus.CounterVec

	// Profile store metrics
	SaveConflicts prometheus.Counter
	LostUpdates   prometheus.Counter
	StoreErrors   *prometheus.CounterVec

	// Queue metrics
	EventsPublished *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec

	// Extractor metrics
	ExtractorDuration *prometheus.HistogramVec
	ExtractorFailures *prometheus.CounterVec
}

// Provider owns a registry and the metrics registered on it
type Provider struct {
	registry *prometheus.Registry
	Metrics  *Metrics
}

// NewProvider creates a provider with its own registry, including the Go
// runtime and process collectors.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Provider{registry: reg, Metrics: initMetrics(promauto.With(reg))}
}

// Registry returns the underlying registry
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// Handler returns the Prometheus HTTP handler for the metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// FiberHandler adapts Handler for a Fiber route
func (p *Provider) FiberHandler() fiber.Handler {
	return adaptor.HTTPHandler(p.Handler())
}

func initMetrics(f promauto.Factory) *Metrics {
	m := &Metrics{}
	initAnalysisMetrics(f, m)
	initStoreMetrics(f, m)
	initQueueMetrics(f, m)
	initExtractorMetrics(f, m)
	return m
}

func initAnalysisMetrics(f promauto.Factory, m *Metrics) {
	m.AnalysesTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Total analyses by source (http, queue) and outcome",
	}, []string{"source", "outcome"})

	m.AnomaliesTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "anomalies_total",
		Help:      "Total analyses flagged anomalous",
	})

	m.AnalysisDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "End-to-end time of one analysis",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	})

	m.AnomalyReasons = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "anomaly_checks_failed_total",
		Help:      "Anomaly checks that exceeded their threshold, by check",
	}, []string{"check"})
}

func initStoreMetrics(f promauto.Factory, m *Metrics) {
	m.SaveConflicts = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_save_conflicts_total",
		Help:      "Conditional profile saves rejected because of a stale revision",
	})

	m.LostUpdates = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_lost_updates_total",
		Help:      "Analyses whose profile update was not persisted",
	})

	m.StoreErrors = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_store_errors_total",
		Help:      "Profile store failures by operation",
	}, []string{"operation"})
}

func initQueueMetrics(f promauto.Factory, m *Metrics) {
	m.EventsPublished = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Events published by subject",
	}, []string{"subject"})

	m.PublishFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_failures_total",
		Help:      "Event publish failures by subject",
	}, []string{"subject"})
}

func initExtractorMetrics(f promauto.Factory, m *Metrics) {
	m.ExtractorDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extractor_duration_seconds",
		Help:      "Time spent in one extractor",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
	}, []string{"extractor"})

	m.ExtractorFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractor_failures_total",
		Help:      "Extractor runs that returned an error",
	}, []string{"extractor"})
}

// =============================================================================
// Recording helpers; every method is safe on a nil Provider.
// =============================================================================

// RecordAnalysis records one finished analysis
func (p *Provider) RecordAnalysis(source string, saved, anomalous bool, checks []string, duration time.Duration) {
	if p == nil {
		return
	}
	outcome := "saved"
	if !saved {
		outcome = "unsaved"
	}
	p.Metrics.AnalysesTotal.WithLabelValues(source, outcome).Inc()
	p.Metrics.AnalysisDuration.Observe(duration.Seconds())
	if anomalous {
		p.Metrics.AnomaliesTotal.Inc()
	}
	for _, c := range checks {
		p.Metrics.AnomalyReasons.WithLabelValues(c).Inc()
	}
}

// RecordSaveConflict records a rejected conditional save
func (p *Provider) RecordSaveConflict() {
	if p == nil {
		return
	}
	p.Metrics.SaveConflicts.Inc()
}

// RecordLostUpdate records an analysis whose profile update was dropped
func (p *Provider) RecordLostUpdate() {
	if p == nil {
		return
	}
	p.Metrics.LostUpdates.Inc()
}

// RecordStoreError records a store failure for operation (get, save)
func (p *Provider) RecordStoreError(operation string) {
	if p == nil {
		return
	}
	p.Metrics.StoreErrors.WithLabelValues(operation).Inc()
}

// RecordPublish records the outcome of publishing one event
func (p *Provider) RecordPublish(subject string, err error) {
	if p == nil {
		return
	}
	if err != nil {
		p.Metrics.PublishFailures.WithLabelValues(subject).Inc()
		return
	}
	p.Metrics.EventsPublished.WithLabelValues(subject).Inc()
}

// ObserveExtractor implements extract.Observer
func (p *Provider) ObserveExtractor(name string, duration time.Duration, err error) {
	if p == nil {
		return
	}
	p.Metrics.ExtractorDuration.WithLabelValues(name).Observe(duration.Seconds())
	if err != nil {
		p.Metrics.ExtractorFailures.WithLabelValues(name).Inc()
	}
}
