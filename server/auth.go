package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// requireKey gates the v1 API behind a bearer token checked against the
// bcrypt hashes in api_keys. Keys are few (one per publishing client), so a
// linear scan over the table is fine.
func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := bearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			return
		}
		if !s.keyValid(r.Context(), key) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "bad api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) || len(h) == len(prefix) {
		return "", false
	}
	return h[len(prefix):], true
}

func (s *Server) keyValid(ctx context.Context, key string) bool {
	rows, err := s.db.QueryContext(ctx, `SELECT key_hash FROM api_keys`)
	if err != nil {
		s.cfg.Logger.Error("server: api key query failed", "error", err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return true
		}
	}
	return false
}

// AddKey registers a new API key and returns its id. The key itself is never
// stored, only its bcrypt hash.
func AddKey(ctx context.Context, db *sql.DB, key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("server: hash key: %w", err)
	}
	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO api_keys (id, key_hash, created_at) VALUES (?,?,?)`,
		id, string(hash), time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("server: store key: %w", err)
	}
	return id, nil
}
