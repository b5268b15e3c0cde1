package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/config"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS style_profiles (
	student_id TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	revision   BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore stores profiles as JSONB rows with a revision column.
type PostgresStore struct {
	base
	pool *pgxpool.Pool
}

// NewPostgresStore connects, verifies the connection and creates the table.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	pool, err := openPostgresPool(ctx, cfg, postgresSchema)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// openPostgresPool creates a verified pool and runs each schema statement.
func openPostgresPool(ctx context.Context, cfg config.PostgresConfig, schema ...string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: failed to create schema: %w", err)
		}
	}
	return pool, nil
}

func (s *PostgresStore) Get(ctx context.Context, studentID string) (*Snapshot, error) {
	var (
		doc      []byte
		revision int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT document, revision FROM style_profiles WHERE student_id = $1`,
		studentID,
	).Scan(&doc, &revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get profile: %w", err)
	}

	p, err := profile.Unmarshal(doc)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Profile: p, Revision: revision}, nil
}

func (s *PostgresStore) Save(ctx context.Context, studentID string, p *profile.StyleProfile, expectedRevision int64) (int64, error) {
	doc, err := encode(p)
	if err != nil {
		return 0, err
	}

	if expectedRevision == 0 {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO style_profiles (student_id, document, revision)
			 VALUES ($1, $2, 1)
			 ON CONFLICT (student_id) DO NOTHING`,
			studentID, doc,
		)
		if err != nil {
			return 0, fmt.Errorf("postgres: failed to insert profile: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrRevisionConflict
		}
		return 1, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE style_profiles
		 SET document = $2, revision = revision + 1, updated_at = now()
		 WHERE student_id = $1 AND revision = $3`,
		studentID, doc, expectedRevision,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrRevisionConflict
	}
	return expectedRevision + 1, nil
}

func (s *PostgresStore) Delete(ctx context.Context, studentID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM style_profiles WHERE student_id = $1`, studentID)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
