// Package manifest records conversion attempts in a local SQLite database.
// The history powers the skip-unchanged check and the history command. A
// broken manifest never fails a conversion; callers degrade it to a warning.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Conversion outcomes as stored in the status column.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Entry is one recorded conversion attempt.
type Entry struct {
	ID          int64
	RunID       string
	InputPath   string
	OutputPath  string
	InputSHA256 string
	OptionsFP   string
	Mesher      string
	Status      string
	Error       string
	Facets      int
	DurationMS  int64
	CreatedAt   time.Time
}

type Store struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return err
	}

	schema := `
CREATE TABLE IF NOT EXISTS conversions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  input_path TEXT NOT NULL,
  output_path TEXT NOT NULL DEFAULT '',
  input_sha256 TEXT NOT NULL DEFAULT '',
  options_fp TEXT NOT NULL DEFAULT '',
  mesher TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  facets INTEGER NOT NULL DEFAULT 0,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

-- the skip-unchanged check looks up the latest successful row per input.
CREATE INDEX IF NOT EXISTS idx_conversions_input_status ON conversions(input_path, status, id);
CREATE INDEX IF NOT EXISTS idx_conversions_run ON conversions(run_id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Record appends one conversion attempt. The history is append-only so
// earlier runs stay inspectable.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = db.ExecContext(
		ctx,
		`INSERT INTO conversions(run_id, input_path, output_path, input_sha256, options_fp, mesher, status, error, facets, duration_ms, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.InputPath,
		entry.OutputPath,
		entry.InputSHA256,
		entry.OptionsFP,
		entry.Mesher,
		entry.Status,
		entry.Error,
		entry.Facets,
		entry.DurationMS,
		createdAt.Unix(),
	)
	return err
}

// LastSuccess returns the most recent successful conversion of inputPath.
// The boolean is false when the file was never converted successfully.
func (s *Store) LastSuccess(ctx context.Context, inputPath string) (Entry, bool, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return Entry{}, false, err
	}

	row := db.QueryRowContext(
		ctx,
		`SELECT id, run_id, input_path, output_path, input_sha256, options_fp, mesher, status, error, facets, duration_ms, created_at
		 FROM conversions
		 WHERE input_path = ? AND status = ?
		 ORDER BY id DESC LIMIT 1`,
		inputPath,
		StatusOK,
	)

	entry, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Recent returns the newest entries, optionally filtered to inputs whose
// path contains filter.
func (s *Store) Recent(ctx context.Context, filter string, limit int) ([]Entry, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, run_id, input_path, output_path, input_sha256, options_fp, mesher, status, error, facets, duration_ms, created_at
	          FROM conversions`
	args := make([]any, 0, 2)
	if strings.TrimSpace(filter) != "" {
		query += ` WHERE input_path LIKE ?`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) ensureDB(ctx context.Context) (*sql.DB, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("manifest db not initialized")
	}
	return s.db, nil
}

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var entry Entry
	var createdAt int64
	if err := scan(
		&entry.ID,
		&entry.RunID,
		&entry.InputPath,
		&entry.OutputPath,
		&entry.InputSHA256,
		&entry.OptionsFP,
		&entry.Mesher,
		&entry.Status,
		&entry.Error,
		&entry.Facets,
		&entry.DurationMS,
		&createdAt,
	); err != nil {
		return Entry{}, err
	}
	entry.CreatedAt = time.Unix(createdAt, 0)
	return entry, nil
}
