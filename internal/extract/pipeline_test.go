package extract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/logging"
)

type stubExtractor struct {
	name  string
	rec   *analytics.MetricsRecord
	err   error
	block chan struct{}
	panic bool
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Extract(ctx context.Context, doc *Document) (*analytics.MetricsRecord, error) {
	if s.block != nil {
		<-s.block
	}
	if s.panic {
		panic("boom")
	}
	return s.rec, s.err
}

type recordingObserver struct {
	mu     sync.Mutex
	calls  map[string]int
	errors int
}

func (o *recordingObserver) ObserveExtractor(name string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = make(map[string]int)
	}
	o.calls[name]++
	if err != nil {
		o.errors++
	}
}

func TestPipeline_MergesInOrder(t *testing.T) {
	p := NewPipelineFrom([]Extractor{
		&stubExtractor{name: "a", rec: &analytics.MetricsRecord{Tone: analytics.String("formal"), HedgingCount: analytics.Int(2)}},
		&stubExtractor{name: "b", rec: &analytics.MetricsRecord{Tone: analytics.String("informal")}},
	}, WithLogger(logging.Nop()))

	for i := 0; i < 20; i++ {
		rec, err := p.Run(context.Background(), "some words")
		require.NoError(t, err)
		assert.Equal(t, "informal", *rec.Tone)
		assert.Equal(t, 2, *rec.HedgingCount)
		assert.Equal(t, analytics.RecordSchemaVersion, rec.SchemaVersion)
	}
}

func TestPipeline_FailingExtractorLeavesFieldsAbsent(t *testing.T) {
	obs := &recordingObserver{}
	p := NewPipelineFrom([]Extractor{
		&stubExtractor{name: "ok", rec: &analytics.MetricsRecord{LexicalDiversity: analytics.Float(0.5)}},
		&stubExtractor{name: "broken", err: errors.New("model unavailable")},
		&stubExtractor{name: "panics", panic: true},
	}, WithLogger(logging.Nop()), WithObserver(obs))

	rec, err := p.Run(context.Background(), "some words")
	require.NoError(t, err)
	assert.Equal(t, 0.5, *rec.LexicalDiversity)
	assert.Nil(t, rec.Sentiment)

	assert.Equal(t, map[string]int{"ok": 1, "broken": 1, "panics": 1}, obs.calls)
	assert.Equal(t, 2, obs.errors)
}

func TestPipeline_Timeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	p := NewPipelineFrom([]Extractor{
		&stubExtractor{name: "fast", rec: &analytics.MetricsRecord{HedgingCount: analytics.Int(1)}},
		&stubExtractor{name: "slow", block: block, rec: &analytics.MetricsRecord{Tone: analytics.String("x")}},
	}, WithLogger(logging.Nop()), WithTimeout(50*time.Millisecond))

	start := time.Now()
	rec, err := p.Run(context.Background(), "some words")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Nil(t, rec.Tone)
	assert.Equal(t, 1, *rec.HedgingCount)
}

func TestPipeline_RunTimed(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	p := NewPipelineFrom([]Extractor{
		&stubExtractor{name: "ok", rec: &analytics.MetricsRecord{HedgingCount: analytics.Int(1)}},
		&stubExtractor{name: "broken", err: errors.New("model unavailable")},
		&stubExtractor{name: "slow", block: block},
	}, WithLogger(logging.Nop()), WithTimeout(50*time.Millisecond))

	rec, timings, err := p.RunTimed(context.Background(), "some words")
	require.NoError(t, err)
	assert.Equal(t, 1, *rec.HedgingCount)
	assert.Contains(t, timings, "ok")
	assert.Contains(t, timings, "broken")
	assert.NotContains(t, timings, "slow")

	ms := timings.Milliseconds()
	assert.Len(t, ms, 2)
	assert.GreaterOrEqual(t, ms["ok"], 0.0)
	assert.Nil(t, Timings{}.Milliseconds())
}

func TestTimings_Milliseconds(t *testing.T) {
	ms := Timings{"tone": 1500 * time.Microsecond, "grammar": 2 * time.Millisecond}.Milliseconds()
	assert.Equal(t, map[string]float64{"tone": 1.5, "grammar": 2}, ms)
}

func TestPipeline_EmptyText(t *testing.T) {
	p, err := NewPipeline(nil)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestPipeline_CancelledContext(t *testing.T) {
	p, err := NewPipeline([]string{"hedging"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, "maybe")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPipeline_Selection(t *testing.T) {
	p, err := NewPipeline([]string{"tone", "hedging", "tone"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tone", "hedging"}, p.Names())

	_, err = NewPipeline([]string{"astrology"})
	assert.Error(t, err)

	all, err := NewPipeline(nil)
	require.NoError(t, err)
	assert.Equal(t, Names(), all.Names())
	assert.Contains(t, Names(), "readability")
	assert.Len(t, Names(), 11)
}
