package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonetrace/tonetrace/internal/config"
)

const (
	submissionsSchema = `
CREATE TABLE IF NOT EXISTS submissions (
	submission_id TEXT PRIMARY KEY,
	student_id    TEXT NOT NULL,
	analyzed_at   TIMESTAMPTZ NOT NULL,
	is_anomaly    BOOLEAN NOT NULL DEFAULT false,
	document      JSONB NOT NULL
)`
	submissionsIndex = `
CREATE INDEX IF NOT EXISTS idx_submissions_student_time
	ON submissions (student_id, analyzed_at DESC)`
)

// PostgresSubmissionStore archives submissions as JSONB rows.
type PostgresSubmissionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSubmissionStore connects and creates the submissions table.
func NewPostgresSubmissionStore(ctx context.Context, cfg config.PostgresConfig) (*PostgresSubmissionStore, error) {
	pool, err := openPostgresPool(ctx, cfg, submissionsSchema, submissionsIndex)
	if err != nil {
		return nil, err
	}
	return &PostgresSubmissionStore{pool: pool}, nil
}

func (s *PostgresSubmissionStore) Record(ctx context.Context, r *SubmissionRecord) error {
	doc, err := encodeSubmission(r)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO submissions (submission_id, student_id, analyzed_at, is_anomaly, document)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (submission_id) DO UPDATE SET
			student_id = EXCLUDED.student_id,
			analyzed_at = EXCLUDED.analyzed_at,
			is_anomaly = EXCLUDED.is_anomaly,
			document = EXCLUDED.document`,
		r.SubmissionID, r.StudentID, r.AnalyzedAt, r.IsAnomaly(), doc,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to record submission: %w", err)
	}
	return nil
}

func (s *PostgresSubmissionStore) Get(ctx context.Context, submissionID string) (*SubmissionRecord, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM submissions WHERE submission_id = $1`, submissionID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get submission: %w", err)
	}
	return decodeSubmission(doc)
}

func (s *PostgresSubmissionStore) List(ctx context.Context, studentID string, q SubmissionQuery) ([]*SubmissionRecord, error) {
	query := `SELECT document FROM submissions WHERE student_id = $1`
	args := []interface{}{studentID}
	if q.AnomaliesOnly {
		query += ` AND is_anomaly`
	}
	query += ` ORDER BY analyzed_at DESC, submission_id DESC`
	if q.Limit > 0 {
		query += ` LIMIT $2`
		args = append(args, q.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []*SubmissionRecord
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan submission: %w", err)
		}
		r, err := decodeSubmission(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to list submissions: %w", err)
	}
	return out, nil
}

func (s *PostgresSubmissionStore) DeleteStudent(ctx context.Context, studentID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM submissions WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to delete submissions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresSubmissionStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresSubmissionStore) Close() error {
	s.pool.Close()
	return nil
}
