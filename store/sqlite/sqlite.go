/*
Package sqlite caches generated output files in a SQLite database.

PURPOSE:
  Every download of a given (label, receipt date) pair must serve the exact
  bytes produced by the first generation run, even across process restarts.
  Re-generating is not an option once a file has been handed to the shared
  services centre: a retried upstream query could order records differently
  and produce a file that no longer matches what was uploaded.

KEY TABLE:
  generated_files: one row per (label, date), holding the filename, the file
  bytes and the run id of the generation that produced them. The UNIQUE
  constraint is what makes concurrent first-generations safe; the loser of
  the race re-reads the winner's row.

CONCURRENCY:
  sync.RWMutex serializes writers in-process; the database is opened in WAL
  mode so readers are not blocked by the single writer.

SEE ALSO:
  - api/handlers.go: GetOrCreate wired in front of every file generator
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const dateFormat = "2006-01-02"

// CachedFile is one stored generation result.
type CachedFile struct {
	Label     string
	Date      time.Time
	Filename  string
	Data      []byte
	RunID     string
	CreatedAt time.Time
}

// FileStore caches generated files keyed by (label, receipt date).
type FileStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the cache database at dbPath. Use ":memory:" for
// an in-memory cache.
func New(dbPath string) (*FileStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &FileStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *FileStore) Close() error {
	return s.db.Close()
}

func (s *FileStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generated_files (
		label TEXT NOT NULL,
		date TEXT NOT NULL,
		filename TEXT NOT NULL,
		data BLOB NOT NULL,
		run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(label, date)
	);

	CREATE INDEX IF NOT EXISTS idx_generated_files_label
		ON generated_files(label);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns the cached file for (label, date), or nil when none exists.
func (s *FileStore) Get(ctx context.Context, label string, date time.Time) (*CachedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(ctx, label, date)
}

func (s *FileStore) get(ctx context.Context, label string, date time.Time) (*CachedFile, error) {
	var (
		file      CachedFile
		day       string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT label, date, filename, data, run_id, created_at FROM generated_files WHERE label = ? AND date = ?",
		label, date.Format(dateFormat),
	).Scan(&file.Label, &day, &file.Filename, &file.Data, &file.RunID, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	file.Date, _ = time.Parse(dateFormat, day)
	file.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &file, nil
}

// Put stores a generated file. A second Put for the same (label, date) is a
// conflict and fails; the cache is write-once per pair.
func (s *FileStore) Put(ctx context.Context, label string, date time.Time, filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO generated_files (label, date, filename, data, run_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		label, date.Format(dateFormat), filename, data,
		uuid.NewString(), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetOrCreate returns the cached file for (label, date), generating and
// storing it first when absent. generate only runs on a cache miss.
func (s *FileStore) GetOrCreate(ctx context.Context, label string, date time.Time, filename string, generate func() ([]byte, error)) (*CachedFile, error) {
	if file, err := s.Get(ctx, label, date); err != nil || file != nil {
		return file, err
	}

	data, err := generate()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO generated_files (label, date, filename, data, run_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		label, date.Format(dateFormat), filename, data,
		uuid.NewString(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		// Lost the insert race: another request generated the file first.
		// Its bytes are authoritative.
		if isUniqueConstraintError(err) {
			return s.get(ctx, label, date)
		}
		return nil, err
	}
	return s.get(ctx, label, date)
}

// Clear drops every cached file. Exposed as an admin action for when a
// generation bug ships and cached artifacts must be rebuilt.
func (s *FileStore) Clear(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM generated_files")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
