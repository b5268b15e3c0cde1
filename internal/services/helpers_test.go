package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/analytics/anomaly"
	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/extract"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/store"
)

// formalRecord is a steady baseline submission
func formalRecord() *analytics.MetricsRecord {
	return &analytics.MetricsRecord{
		Tone:             analytics.String("formal"),
		Sentiment:        &analytics.SentimentMetrics{Polarity: analytics.Float(0.4)},
		Formality:        &analytics.FormalityMetrics{Grade: analytics.Float(10)},
		Complexity:       &analytics.ComplexityMetrics{SentenceLength: analytics.Float(18), LexicalDensity: analytics.Float(0.55)},
		LexicalDiversity: analytics.Float(0.6),
		HedgingCount:     analytics.Int(1),
	}
}

// casualRecord deviates from formalRecord on every checked dimension
func casualRecord() *analytics.MetricsRecord {
	return &analytics.MetricsRecord{
		Tone:             analytics.String("informal"),
		Sentiment:        &analytics.SentimentMetrics{Polarity: analytics.Float(-0.6)},
		Formality:        &analytics.FormalityMetrics{Grade: analytics.Float(3)},
		Complexity:       &analytics.ComplexityMetrics{SentenceLength: analytics.Float(6), LexicalDensity: analytics.Float(0.3)},
		LexicalDiversity: analytics.Float(0.3),
	}
}

func newTestService(t *testing.T, profiles store.ProfileStore, opts AnalysisOptions) *AnalysisService {
	t.Helper()
	pipeline, err := extract.NewPipeline(nil)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return NewAnalysisService(logging.Nop(), profiles, pipeline,
		anomaly.NewDetector(anomaly.DefaultConfig()), profile.NewUpdater(profile.MeanOverTexts), opts)
}

// conflictingStore rejects the first conflicts saves with ErrRevisionConflict
type conflictingStore struct {
	store.ProfileStore
	conflicts atomic.Int32
	saves     atomic.Int32
}

func (s *conflictingStore) Save(ctx context.Context, id string, p *profile.StyleProfile, rev int64) (int64, error) {
	s.saves.Add(1)
	if s.conflicts.Add(-1) >= 0 {
		return 0, store.ErrRevisionConflict
	}
	return s.ProfileStore.Save(ctx, id, p, rev)
}

// racingStore simulates a writer in another process: before the first save it
// folds one extra submission into the stored profile.
type racingStore struct {
	store.ProfileStore
	once sync.Once
}

func (s *racingStore) Save(ctx context.Context, id string, p *profile.StyleProfile, rev int64) (int64, error) {
	s.once.Do(func() {
		other := profile.Update(profile.New(), formalRecord())
		if _, err := s.ProfileStore.Save(ctx, id, other, rev); err != nil {
			panic(err)
		}
	})
	return s.ProfileStore.Save(ctx, id, p, rev)
}

// brokenStore fails the calls it has an error for
type brokenStore struct {
	store.ProfileStore
	getErr    error
	saveErr   error
	deleteErr error
	pingErr   error
}

func (s *brokenStore) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.ProfileStore.Delete(ctx, id)
}

func (s *brokenStore) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.ProfileStore.Ping(ctx)
}

func (s *brokenStore) Get(ctx context.Context, id string) (*store.Snapshot, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.ProfileStore.Get(ctx, id)
}

func (s *brokenStore) Save(ctx context.Context, id string, p *profile.StyleProfile, rev int64) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	return s.ProfileStore.Save(ctx, id, p, rev)
}

var errUnavailable = errors.New("connection refused")

// brokenArchive fails the calls it has an error for
type brokenArchive struct {
	store.SubmissionStore
	recordErr error
	listErr   error
	pingErr   error
}

func (s *brokenArchive) Record(ctx context.Context, r *store.SubmissionRecord) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	return s.SubmissionStore.Record(ctx, r)
}

func (s *brokenArchive) List(ctx context.Context, id string, q store.SubmissionQuery) ([]*store.SubmissionRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.SubmissionStore.List(ctx, id, q)
}

func (s *brokenArchive) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.SubmissionStore.Ping(ctx)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
