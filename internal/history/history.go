// Package history stores past pdfdiff runs in a SQLite database so that
// regressions can be traced over time.
package history

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file inside the history directory.
const FileName = "history.db"

// ErrRunNotFound is returned by Pages for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one comparison.
type Run struct {
	ID        string
	CreatedAt time.Time
	DocA      string
	DocB      string
	// HashA and HashB are SHA3-256 fingerprints of the input files.
	HashA     string
	HashB     string
	Equal     bool
	Output    string
	PagesA    int
	PagesB    int
	DPI       float64
	Threshold int
	Pages     []Page
}

// Page is the outcome for one page slot of a run.
type Page struct {
	Index      int
	Status     string
	DiffPixels int
}

// Store is the history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	path := filepath.Join(dir, FileName)

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		doc_a TEXT NOT NULL,
		doc_b TEXT NOT NULL,
		hash_a TEXT,
		hash_b TEXT,
		is_equal INTEGER NOT NULL,
		output TEXT,
		pages_a INTEGER,
		pages_b INTEGER,
		dpi REAL,
		threshold INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

	CREATE TABLE IF NOT EXISTS pages (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		page_index INTEGER NOT NULL,
		status TEXT NOT NULL,
		diff_pixels INTEGER NOT NULL,
		PRIMARY KEY (run_id, page_index, status)
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Record stores run and its pages. A missing ID or timestamp is filled in.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, created_at, doc_a, doc_b, hash_a, hash_b, is_equal, output, pages_a, pages_b, dpi, threshold)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.Format(time.RFC3339Nano),
		run.DocA,
		run.DocB,
		run.HashA,
		run.HashB,
		run.Equal,
		run.Output,
		run.PagesA,
		run.PagesB,
		run.DPI,
		run.Threshold,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, p := range run.Pages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO pages (run_id, page_index, status, diff_pixels) VALUES (?, ?, ?, ?)`,
			run.ID, p.Index, p.Status, p.DiffPixels,
		)
		if err != nil {
			return fmt.Errorf("failed to insert page %d: %w", p.Index, err)
		}
	}
	return tx.Commit()
}

// List returns at most limit runs, newest first, without their pages.
// A limit of zero or less returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, created_at, doc_a, doc_b, hash_a, hash_b, is_equal, output, pages_a, pages_b, dpi, threshold
	FROM runs
	ORDER BY created_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &created, &r.DocA, &r.DocB, &r.HashA, &r.HashB,
			&r.Equal, &r.Output, &r.PagesA, &r.PagesB, &r.DPI, &r.Threshold); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Pages returns the page results of a run in page order.
func (s *Store) Pages(ctx context.Context, runID string) ([]Page, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&n); err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT page_index, status, diff_pixels FROM pages WHERE run_id = ? ORDER BY page_index, status`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.Index, &p.Status, &p.DiffPixels); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// Fingerprint returns the hex SHA3-256 digest of the file at path.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided input path
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha3.New256()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
