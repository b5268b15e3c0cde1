package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/logging"
)

// ErrEmptyText is returned by Run for text without any words.
var ErrEmptyText = errors.New("text contains no words")

// Observer receives the outcome of every extractor run.
type Observer interface {
	ObserveExtractor(name string, duration time.Duration, err error)
}

// Pipeline runs a fixed set of extractors over one text.
type Pipeline struct {
	extractors []Extractor
	timeout    time.Duration
	logger     *logging.Logger
	observer   Observer
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithTimeout bounds one Run. Extractors still running at the deadline are
// treated as failed.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

// WithObserver reports per-extractor durations and errors
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger sets the logger used for extractor failures
func WithLogger(l *logging.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline builds a pipeline from registered extractor names. An empty
// list selects every registered extractor. Fragments are merged in the order
// of names.
func NewPipeline(names []string, opts ...PipelineOption) (*Pipeline, error) {
	if len(names) == 0 {
		names = Names()
	}

	p := &Pipeline{logger: logging.Global()}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		e, err := Get(name)
		if err != nil {
			return nil, err
		}
		p.extractors = append(p.extractors, e)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewPipelineFrom builds a pipeline from explicit extractors.
func NewPipelineFrom(extractors []Extractor, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{extractors: extractors, logger: logging.Global()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Names returns the extractor names in merge order
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.extractors))
	for i, e := range p.extractors {
		names[i] = e.Name()
	}
	return names
}

type fragment struct {
	index    int
	record   *analytics.MetricsRecord
	duration time.Duration
	err      error
}

// Timings maps extractor names to the wall time of one run.
type Timings map[string]time.Duration

// Milliseconds converts t for serialization.
func (t Timings) Milliseconds() map[string]float64 {
	if len(t) == 0 {
		return nil
	}
	out := make(map[string]float64, len(t))
	for name, d := range t {
		out[name] = float64(d.Microseconds()) / 1000
	}
	return out
}

// Run extracts a MetricsRecord from text. A failing extractor is logged and
// its fields stay absent; Run itself fails only for empty text or a
// cancelled parent context.
func (p *Pipeline) Run(ctx context.Context, text string) (*analytics.MetricsRecord, error) {
	record, _, err := p.RunTimed(ctx, text)
	return record, err
}

// RunTimed is Run that also returns the duration of every extractor that
// finished, failed ones included. Extractors cut off by the timeout are
// missing from the timings.
func (p *Pipeline) RunTimed(ctx context.Context, text string) (*analytics.MetricsRecord, Timings, error) {
	doc := NewDocument(text)
	if doc.Empty() {
		return nil, nil, ErrEmptyText
	}

	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	// Buffered so late extractors never block after a timeout.
	results := make(chan fragment, len(p.extractors))
	for i, e := range p.extractors {
		go func(i int, e Extractor) {
			start := time.Now()
			rec, err := safeExtract(runCtx, e, doc)
			elapsed := time.Since(start)
			if p.observer != nil {
				p.observer.ObserveExtractor(e.Name(), elapsed, err)
			}
			results <- fragment{index: i, record: rec, duration: elapsed, err: err}
		}(i, e)
	}

	fragments := make([]*analytics.MetricsRecord, len(p.extractors))
	timings := make(Timings, len(p.extractors))
	pending := len(p.extractors)
collect:
	for pending > 0 {
		select {
		case f := <-results:
			pending--
			timings[p.extractors[f.index].Name()] = f.duration
			if f.err != nil {
				p.logger.Warn("Extractor failed",
					"extractor", p.extractors[f.index].Name(),
					"error", f.err)
				continue
			}
			fragments[f.index] = f.record
		case <-runCtx.Done():
			break collect
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if pending > 0 {
		p.logger.Warn("Extractors timed out", "pending", pending, "timeout", p.timeout)
	}

	record := &analytics.MetricsRecord{SchemaVersion: analytics.RecordSchemaVersion}
	for _, f := range fragments {
		record.Merge(f)
	}
	return record, timings, nil
}

func safeExtract(ctx context.Context, e Extractor, doc *Document) (rec *analytics.MetricsRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor %s panicked: %v", e.Name(), r)
		}
	}()
	return e.Extract(ctx, doc)
}
