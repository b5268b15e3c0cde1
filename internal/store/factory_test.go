package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonetrace/tonetrace/internal/config"
	"github.com/tonetrace/tonetrace/internal/logging"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := logging.Nop()

	s, err := New(ctx, config.StoreConfig{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	_ = s.Close()

	s, err = New(ctx, config.StoreConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "p.db")},
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	_ = s.Close()

	_, err = New(ctx, config.StoreConfig{Type: "mongo"}, logger)
	assert.Error(t, err)
}

func TestNewSubmissionStore(t *testing.T) {
	ctx := context.Background()
	logger := logging.Nop()

	s, err := NewSubmissionStore(ctx, config.StoreConfig{Submissions: config.SubmissionsConfig{Enabled: true}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemorySubmissionStore{}, s)
	_ = s.Close()

	path := filepath.Join(t.TempDir(), "p.db")
	s, err = NewSubmissionStore(ctx, config.StoreConfig{
		Type:        "sqlite",
		SQLite:      config.SQLiteConfig{Path: path},
		Submissions: config.SubmissionsConfig{Enabled: true},
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteSubmissionStore{}, s)
	_ = s.Close()

	s, err = NewSubmissionStore(ctx, config.StoreConfig{Type: "sqlite"}, logger)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewSubmissionStore(ctx, config.StoreConfig{
		Type:        "redis",
		Submissions: config.SubmissionsConfig{Enabled: true},
	}, logger)
	assert.Error(t, err)
}
