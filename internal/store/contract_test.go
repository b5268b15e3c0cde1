package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/analytics/profile"
)

func sampleProfile(texts int) *profile.StyleProfile {
	u := profile.NewUpdater(profile.MeanOverTexts)
	u.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	p := profile.New()
	for i := 0; i < texts; i++ {
		u.Update(p, &analytics.MetricsRecord{
			Tone:             analytics.String("formal"),
			Sentiment:        &analytics.SentimentMetrics{Polarity: analytics.Float(0.25)},
			LexicalDiversity: analytics.Float(0.6),
			HedgingCount:     analytics.Int(1),
		})
	}
	return p
}

// runStoreContract exercises the revision contract every backend must honour.
func runStoreContract(t *testing.T, s ProfileStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create default is empty", func(t *testing.T) {
		p := s.CreateDefault()
		require.NotNil(t, p)
		assert.Equal(t, 0, p.TotalTexts)
		assert.True(t, p.Equal(profile.New()))
	})

	t.Run("create then update", func(t *testing.T) {
		rev, err := s.Save(ctx, "alice", sampleProfile(1), 0)
		require.NoError(t, err)
		assert.Greater(t, rev, int64(0))

		snap, err := s.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, rev, snap.Revision)
		assert.True(t, sampleProfile(1).Equal(snap.Profile))

		rev2, err := s.Save(ctx, "alice", sampleProfile(2), snap.Revision)
		require.NoError(t, err)
		assert.Greater(t, rev2, rev)

		snap, err = s.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, rev2, snap.Revision)
		assert.Equal(t, 2, snap.Profile.TotalTexts)
	})

	t.Run("create only once", func(t *testing.T) {
		_, err := s.Save(ctx, "bob", sampleProfile(1), 0)
		require.NoError(t, err)
		_, err = s.Save(ctx, "bob", sampleProfile(1), 0)
		assert.ErrorIs(t, err, ErrRevisionConflict)
	})

	t.Run("stale revision", func(t *testing.T) {
		rev, err := s.Save(ctx, "carol", sampleProfile(1), 0)
		require.NoError(t, err)
		_, err = s.Save(ctx, "carol", sampleProfile(2), rev)
		require.NoError(t, err)

		_, err = s.Save(ctx, "carol", sampleProfile(3), rev)
		assert.ErrorIs(t, err, ErrRevisionConflict)

		snap, err := s.Get(ctx, "carol")
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Profile.TotalTexts)
	})

	t.Run("update of missing profile conflicts", func(t *testing.T) {
		_, err := s.Save(ctx, "dave", sampleProfile(1), 42)
		assert.ErrorIs(t, err, ErrRevisionConflict)
	})

	t.Run("nil profile saves empty document", func(t *testing.T) {
		_, err := s.Save(ctx, "erin", nil, 0)
		require.NoError(t, err)
		snap, err := s.Get(ctx, "erin")
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Profile.TotalTexts)
	})

	t.Run("delete then recreate", func(t *testing.T) {
		rev, err := s.Save(ctx, "grace", sampleProfile(2), 0)
		require.NoError(t, err)
		require.Greater(t, rev, int64(0))

		require.NoError(t, s.Delete(ctx, "grace"))
		_, err = s.Get(ctx, "grace")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.Save(ctx, "grace", sampleProfile(1), rev)
		assert.ErrorIs(t, err, ErrRevisionConflict)

		_, err = s.Save(ctx, "grace", sampleProfile(1), 0)
		require.NoError(t, err)
		snap, err := s.Get(ctx, "grace")
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Profile.TotalTexts)
	})

	t.Run("delete missing", func(t *testing.T) {
		assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
	})

	t.Run("delete leaves other profiles", func(t *testing.T) {
		_, err := s.Save(ctx, "heidi", sampleProfile(1), 0)
		require.NoError(t, err)
		_, err = s.Save(ctx, "ivan", sampleProfile(3), 0)
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "heidi"))
		snap, err := s.Get(ctx, "ivan")
		require.NoError(t, err)
		assert.Equal(t, 3, snap.Profile.TotalTexts)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("concurrent writers", func(t *testing.T) {
		const writers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, "frank", sampleProfile(1), 0)
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				} else if !errors.Is(err, ErrRevisionConflict) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})
}
