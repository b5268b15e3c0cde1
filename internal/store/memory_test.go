package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreContract(t, s)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p := sampleProfile(1)
	_, err := s.Save(ctx, "alice", p, 0)
	require.NoError(t, err)

	p.ToneDistribution["informal"] = 9
	snap, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.NotContains(t, snap.Profile.ToneDistribution, "informal")

	snap.Profile.TotalTexts = 100
	again, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Profile.TotalTexts)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Save(context.Background(), "alice", sampleProfile(1), 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Delete(context.Background(), "alice"), ErrClosed)
	assert.ErrorIs(t, s.Ping(context.Background()), ErrClosed)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "alice")
	assert.ErrorIs(t, err, context.Canceled)
}
