// Package store persists per-document publish metadata: the share link, the
// last publish timestamp, and whether the document's theme stylesheet has
// been uploaded. It is the only state that survives between pipeline runs.
//
// The backing database is SQLite with the production pragmas applied on
// open (WAL, busy_timeout, foreign_keys). Callers blank-import the driver:
//
//	import _ "modernc.org/sqlite"
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL DEFAULT '',
	share_link      TEXT NOT NULL DEFAULT '',
	updated_at      INTEGER NOT NULL DEFAULT 0,
	theme_published INTEGER NOT NULL DEFAULT 0
);
`

// Meta is one document's stored publish metadata.
type Meta struct {
	ID        string
	Title     string
	ShareLink string
	UpdatedAt time.Time
}

// ErrNotFound is returned when a document has no stored metadata.
var ErrNotFound = errors.New("store: document not found")

// Store wraps the metadata database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the metadata database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory store for tests. MaxOpenConns(1) keeps every
// query on the same in-memory database.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("store.OpenMemory: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns a document's metadata.
func (s *Store) Get(ctx context.Context, id string) (Meta, error) {
	var m Meta
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, share_link, updated_at FROM documents WHERE id = ?`, id).
		Scan(&m.ID, &m.Title, &m.ShareLink, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, ErrNotFound
	}
	if err != nil {
		return Meta{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	m.UpdatedAt = time.UnixMilli(updated)
	return m, nil
}

// PutLink records the document's share link and publish timestamp, creating
// the row when needed. This is the metadata patch at the end of a successful
// run.
func (s *Store) PutLink(ctx context.Context, id, title, link string, updated time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, share_link, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			share_link = excluded.share_link,
			updated_at = excluded.updated_at`,
		id, title, link, updated.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: put link %s: %w", id, err)
	}
	return nil
}

// ShareLink returns the stored share link for a document, or "" when the
// document was never published. Used by the link resolver during transform.
func (s *Store) ShareLink(ctx context.Context, id string) string {
	m, err := s.Get(ctx, id)
	if err != nil {
		return ""
	}
	return m.ShareLink
}

// ThemePublished reports whether the document's theme stylesheet has been
// uploaded before. An explicit stored field, not ambient state: the pipeline
// stays a function of its declared inputs.
func (s *Store) ThemePublished(ctx context.Context, id string) (bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx,
		`SELECT theme_published FROM documents WHERE id = ?`, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: theme status %s: %w", id, err)
	}
	return v != 0, nil
}

// SetThemePublished marks the document's theme as uploaded.
func (s *Store) SetThemePublished(ctx context.Context, id string, published bool) error {
	v := 0
	if published {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, theme_published) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET theme_published = excluded.theme_published`,
		id, v)
	if err != nil {
		return fmt.Errorf("store: set theme status %s: %w", id, err)
	}
	return nil
}
