package store

import (
	"context"
	"fmt"

	"github.com/tonetrace/tonetrace/internal/config"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// New creates the profile store selected by cfg.Type.
func New(ctx context.Context, cfg config.StoreConfig, logger *logging.Logger) (ProfileStore, error) {
	storeType := utils.StoreType(cfg.Type)
	if storeType == "" {
		storeType = utils.StoreTypeMemory
	}

	var (
		s   ProfileStore
		err error
	)
	switch storeType {
	case utils.StoreTypeMemory:
		s = NewMemoryStore()
	case utils.StoreTypePostgres:
		s, err = NewPostgresStore(ctx, cfg.Postgres)
	case utils.StoreTypeSQLite:
		s, err = NewSQLiteStore(ctx, cfg.SQLite.Path)
	case utils.StoreTypeRedis:
		s, err = NewRedisStore(ctx, cfg.Redis)
	case utils.StoreTypeEtcd:
		s, err = NewEtcdStore(cfg.Etcd)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Profile store ready", "type", string(storeType))
	return s, nil
}

// NewSubmissionStore creates the submission archive selected by
// cfg.SubmissionStoreType. It returns nil when the archive is disabled.
func NewSubmissionStore(ctx context.Context, cfg config.StoreConfig, logger *logging.Logger) (SubmissionStore, error) {
	if !cfg.Submissions.Enabled {
		logger.Info("Submission archive disabled")
		return nil, nil
	}

	storeType := cfg.SubmissionStoreType()
	var (
		s   SubmissionStore
		err error
	)
	switch storeType {
	case utils.StoreTypeMemory:
		s = NewMemorySubmissionStore()
	case utils.StoreTypePostgres:
		s, err = NewPostgresSubmissionStore(ctx, cfg.Postgres)
	case utils.StoreTypeSQLite:
		s, err = NewSQLiteSubmissionStore(ctx, cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported submission store type: %s", storeType)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Submission archive ready", "type", string(storeType))
	return s, nil
}
