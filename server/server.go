// Package server implements a self-hosted share endpoint speaking the same
// contract the remote transport client expects: content-addressed asset
// uploads deduplicated by hash, document creation from a publish template,
// and public retrieval by filename. Storage is SQLite; API keys are kept as
// bcrypt hashes.
package server

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	hash       TEXT PRIMARY KEY,
	filetype   TEXT NOT NULL,
	content    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS shared_documents (
	filename   TEXT PRIMARY KEY,
	template   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS api_keys (
	id         TEXT PRIMARY KEY,
	key_hash   TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Config configures the share server.
type Config struct {
	// PublicBase is the externally visible base URL used to mint asset and
	// document URLs, e.g. https://share.example.com.
	PublicBase string
	// MaxUploadBytes caps one upload request body. Default: 32 MiB.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 32 << 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server holds the share store state.
type Server struct {
	cfg Config
	db  *sql.DB
}

// New creates a Server over an already opened database and applies the
// schema.
func New(db *sql.DB, cfg Config) (*Server, error) {
	cfg.defaults()
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("server: schema: %w", err)
	}
	return &Server{cfg: cfg, db: db}, nil
}

// Router builds the HTTP routes. The v1 API requires a bearer key; public
// retrieval does not.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requireKey)
		r.Use(maxBody(s.cfg.MaxUploadBytes))
		r.Post("/upload", s.handleUpload)
		r.Post("/create", s.handleCreate)
	})

	r.Get("/assets/{name}", s.handleAsset)
	r.Get("/{filename}", s.handleDocument)
	return r
}

// maxBody caps request bodies so a misbehaving client cannot exhaust memory.
func maxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) assetURL(hash, ext string) string {
	return strings.TrimRight(s.cfg.PublicBase, "/") + "/assets/" + hash + "." + ext
}

func (s *Server) documentURL(filename string) string {
	return strings.TrimRight(s.cfg.PublicBase, "/") + "/" + filename
}
