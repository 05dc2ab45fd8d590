package server

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/notepub/digest"
	"github.com/hazyhaar/notepub/remote"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type uploadRequest struct {
	FileType string `json:"filetype"`
	Hash     string `json:"hash"`
	ByteLen  int    `json:"byte_len"`
	Content  string `json:"content"` // base64
}

// handleUpload stores one content-addressed blob. A hash the store already
// holds short-circuits to the existing URL — the second client sharing the
// same bytes costs one SELECT, not a second blob.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request"})
		return
	}
	if req.Hash == "" || req.FileType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hash and filetype required"})
		return
	}

	var existingType string
	err := s.db.QueryRowContext(r.Context(),
		`SELECT filetype FROM blobs WHERE hash = ?`, req.Hash).Scan(&existingType)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]string{"url": s.assetURL(req.Hash, existingType)})
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content must be base64"})
		return
	}
	if digest.Sum(content) != req.Hash {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hash does not match content"})
		return
	}

	_, err = s.db.ExecContext(r.Context(),
		`INSERT INTO blobs (hash, filetype, content, created_at) VALUES (?,?,?,?)`,
		req.Hash, req.FileType, content, time.Now().UnixMilli())
	if err != nil {
		s.cfg.Logger.Error("server: blob insert failed", "hash", req.Hash, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": s.assetURL(req.Hash, req.FileType)})
}

// handleCreate stores (or replaces) a published document template.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var tpl remote.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed template"})
		return
	}
	if tpl.Filename == "" || strings.ContainsAny(tpl.Filename, "/\\") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filename"})
		return
	}

	raw, err := json.Marshal(tpl)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode failure"})
		return
	}

	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(r.Context(), `
		INSERT INTO shared_documents (filename, template, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			template = excluded.template,
			updated_at = excluded.updated_at`,
		tpl.Filename, string(raw), now, now)
	if err != nil {
		s.cfg.Logger.Error("server: document insert failed", "filename", tpl.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": s.documentURL(tpl.Filename)})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	hash := name
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		hash = name[:i]
	}

	var filetype string
	var content []byte
	err := s.db.QueryRowContext(r.Context(),
		`SELECT filetype, content FROM blobs WHERE hash = ?`, hash).Scan(&filetype, &content)
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mimeFor(filetype))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(content)
}

// handleDocument serves a published document. Encrypted documents ship as a
// JSON envelope the client-side viewer decrypts with the URL fragment; plain
// documents ship their HTML directly.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	var raw string
	err := s.db.QueryRowContext(r.Context(),
		`SELECT template FROM shared_documents WHERE filename = ?`, filename).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}

	var tpl remote.Template
	if err := json.Unmarshal([]byte(raw), &tpl); err != nil {
		http.Error(w, "corrupt document", http.StatusInternalServerError)
		return
	}

	if tpl.Encrypted {
		writeJSON(w, http.StatusOK, tpl)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(tpl.Content))
}

func mimeFor(filetype string) string {
	switch filetype {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	case "ttf":
		return "font/ttf"
	case "otf":
		return "font/otf"
	case "woff":
		return "font/woff"
	case "woff2":
		return "font/woff2"
	case "css":
		return "text/css"
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}
