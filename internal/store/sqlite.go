package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// sqlite driver
	_ "modernc.org/sqlite"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
)

// SQLiteStore stores profiles in an embedded SQLite database.
type SQLiteStore struct {
	base
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// openSQLite opens the database file with WAL pragmas applied. Profile and
// submission stores each hold their own handle on the same file.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}
	// Pragmas are per connection and writers serialize anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: failed to execute %s: %w", pragma, err)
		}
	}
	return db, nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS style_profiles (
		student_id TEXT PRIMARY KEY,
		document   TEXT NOT NULL,
		revision   INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite: failed to create schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Get(ctx context.Context, studentID string) (*Snapshot, error) {
	var (
		doc      string
		revision int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT document, revision FROM style_profiles WHERE student_id = ?`,
		studentID,
	).Scan(&doc, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get profile: %w", err)
	}

	p, err := profile.Unmarshal([]byte(doc))
	if err != nil {
		return nil, err
	}
	return &Snapshot{Profile: p, Revision: revision}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, studentID string, p *profile.StyleProfile, expectedRevision int64) (int64, error) {
	doc, err := encode(p)
	if err != nil {
		return 0, err
	}

	var result sql.Result
	if expectedRevision == 0 {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO style_profiles (student_id, document, revision)
			 VALUES (?, ?, 1)
			 ON CONFLICT (student_id) DO NOTHING`,
			studentID, string(doc),
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE style_profiles
			 SET document = ?, revision = revision + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE student_id = ? AND revision = ?`,
			string(doc), studentID, expectedRevision,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to save profile: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if n == 0 {
		return 0, ErrRevisionConflict
	}
	return expectedRevision + 1, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, studentID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM style_profiles WHERE student_id = ?`, studentID)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete profile: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
