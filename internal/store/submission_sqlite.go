package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteSubmissionStore archives submissions in an embedded SQLite database.
// analyzed_at is stored as Unix nanoseconds so ordering is numeric.
type SQLiteSubmissionStore struct {
	db *sql.DB
}

// NewSQLiteSubmissionStore opens the database at path and creates the
// submissions table. path may be shared with a SQLiteStore.
func NewSQLiteSubmissionStore(ctx context.Context, path string) (*SQLiteSubmissionStore, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
			submission_id TEXT PRIMARY KEY,
			student_id    TEXT NOT NULL,
			analyzed_at   INTEGER NOT NULL,
			is_anomaly    INTEGER NOT NULL DEFAULT 0,
			document      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_student_time
			ON submissions (student_id, analyzed_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: failed to create submissions schema: %w", err)
		}
	}
	return &SQLiteSubmissionStore{db: db}, nil
}

func (s *SQLiteSubmissionStore) Record(ctx context.Context, r *SubmissionRecord) error {
	doc, err := encodeSubmission(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (submission_id, student_id, analyzed_at, is_anomaly, document)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (submission_id) DO UPDATE SET
			student_id = excluded.student_id,
			analyzed_at = excluded.analyzed_at,
			is_anomaly = excluded.is_anomaly,
			document = excluded.document`,
		r.SubmissionID, r.StudentID, r.AnalyzedAt.UnixNano(), r.IsAnomaly(), string(doc),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to record submission: %w", err)
	}
	return nil
}

func (s *SQLiteSubmissionStore) Get(ctx context.Context, submissionID string) (*SubmissionRecord, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM submissions WHERE submission_id = ?`, submissionID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get submission: %w", err)
	}
	return decodeSubmission([]byte(doc))
}

func (s *SQLiteSubmissionStore) List(ctx context.Context, studentID string, q SubmissionQuery) ([]*SubmissionRecord, error) {
	query := `SELECT document FROM submissions WHERE student_id = ?`
	args := []interface{}{studentID}
	if q.AnomaliesOnly {
		query += ` AND is_anomaly = 1`
	}
	query += ` ORDER BY analyzed_at DESC, submission_id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []*SubmissionRecord
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan submission: %w", err)
		}
		r, err := decodeSubmission([]byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to list submissions: %w", err)
	}
	return out, nil
}

func (s *SQLiteSubmissionStore) DeleteStudent(ctx context.Context, studentID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM submissions WHERE student_id = ?`, studentID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to delete submissions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	return n, nil
}

func (s *SQLiteSubmissionStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteSubmissionStore) Close() error {
	return s.db.Close()
}
