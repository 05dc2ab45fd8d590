// Package remote defines the transport contract to the share store and its
// HTTP implementation. The pipeline only needs two operations: upload one
// content-addressed asset, and create the published document from an
// assembled template. Errors surface to the caller as-is; retry policy, if
// any, lives behind the store, not here.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/notepub/transform"
)

// Descriptor describes one asset upload.
type Descriptor struct {
	FileType string `json:"filetype"`
	Hash     string `json:"hash"`
	ByteLen  int    `json:"byte_len"`
	Content  []byte `json:"-"`
}

// Template is the assembled publish payload, consumed exactly once per run.
type Template struct {
	Filename    string                   `json:"filename"`
	Content     string                   `json:"content"`
	Title       string                   `json:"title,omitempty"`
	Description string                   `json:"description,omitempty"`
	Width       int                      `json:"width"`
	Elements    []transform.ElementStyle `json:"elements"`
	MathJax     bool                     `json:"mathJax"`
	Encrypted   bool                     `json:"encrypted"`
}

// Transport is what the pipeline needs from the remote store.
type Transport interface {
	Upload(ctx context.Context, d Descriptor) (publicURL string, err error)
	CreateDocument(ctx context.Context, t Template) (publicURL string, err error)
}

// maxResponseBody caps response reads (1 MiB) — the store answers with small
// JSON bodies, anything larger is a misbehaving endpoint.
const maxResponseBody int64 = 1 << 20

// ClientConfig configures the HTTP transport client.
type ClientConfig struct {
	// BaseURL of the share store API, e.g. https://share.example.com/v1.
	BaseURL string
	// APIKey is sent as a bearer token. Empty means unauthenticated — the
	// pipeline halts in AwaitingAuth before ever reaching the transport.
	APIKey string
	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (c *ClientConfig) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client is the HTTP Transport implementation.
type Client struct {
	cfg ClientConfig
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

type uploadRequest struct {
	FileType string `json:"filetype"`
	Hash     string `json:"hash"`
	ByteLen  int    `json:"byte_len"`
	Content  string `json:"content"` // base64
}

type urlResponse struct {
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

// Upload sends one asset and returns its public URL. The store deduplicates
// by hash server-side; re-sending known content is cheap but the queue
// avoids even that.
func (c *Client) Upload(ctx context.Context, d Descriptor) (string, error) {
	req := uploadRequest{
		FileType: d.FileType,
		Hash:     d.Hash,
		ByteLen:  d.ByteLen,
		Content:  base64.StdEncoding.EncodeToString(d.Content),
	}
	var resp urlResponse
	if err := c.post(ctx, "/upload", req, &resp); err != nil {
		return "", fmt.Errorf("remote: upload %s: %w", d.Hash[:min(12, len(d.Hash))], err)
	}
	return resp.URL, nil
}

// CreateDocument submits the publish template and returns the document's
// public URL.
func (c *Client) CreateDocument(ctx context.Context, t Template) (string, error) {
	var resp urlResponse
	if err := c.post(ctx, "/create", t, &resp); err != nil {
		return "", fmt.Errorf("remote: create document: %w", err)
	}
	return resp.URL, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		var e urlResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", res.Status, e.Error)
		}
		return fmt.Errorf("%s", res.Status)
	}
	return json.Unmarshal(data, out)
}
