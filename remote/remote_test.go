package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Upload(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/upload" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var req struct {
			FileType string `json:"filetype"`
			Hash     string `json:"hash"`
			Content  string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		raw, _ := base64.StdEncoding.DecodeString(req.Content)
		if string(raw) != "png-bytes" {
			t.Errorf("content: got %q", raw)
		}
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/" + req.Hash + ".png"})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL + "/v1", APIKey: "sekrit"})
	url, err := c.Upload(context.Background(), Descriptor{
		FileType: "png", Hash: "abc123def456", ByteLen: 9, Content: []byte("png-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.example.com/abc123def456.png" {
		t.Fatalf("url: got %q", url)
	}
	if gotAuth != "Bearer sekrit" {
		t.Fatalf("auth header: got %q", gotAuth)
	}
}

func TestClient_CreateDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tpl Template
		if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
			t.Errorf("decode: %v", err)
		}
		if !tpl.Encrypted || tpl.Filename == "" {
			t.Errorf("template: %+v", tpl)
		}
		json.NewEncoder(w).Encode(map[string]string{"url": "https://share.example.com/" + tpl.Filename})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	url, err := c.CreateDocument(context.Background(), Template{
		Filename: "f.html", Content: "ciphertext", Encrypted: true, Width: 700,
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if url != "https://share.example.com/f.html" {
		t.Fatalf("url: got %q", url)
	}
}

func TestClient_ErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad api key"})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	if _, err := c.Upload(context.Background(), Descriptor{Hash: "deadbeef0000"}); err == nil {
		t.Fatal("expected error")
	}
}
