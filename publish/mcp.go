package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/notepub/renderwatch"
	"github.com/hazyhaar/notepub/store"
)

// RegisterMCP registers the publish tools on an MCP server.
func (p *Publisher) RegisterMCP(srv *mcp.Server) {
	p.registerPublishTool(srv)
	p.registerStatusTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(errors.New(err.Error()))
	return &res
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Errorf("marshal: %w", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

// staticSource serves pre-rendered HTML as a one-section render tree that is
// immediately stable.
type staticSource struct {
	html string
	text string
}

func (s staticSource) Sections(context.Context) ([]renderwatch.Section, error) {
	return []renderwatch.Section{{HTML: s.html, Text: s.text}}, nil
}

// --- publish ---

type publishReq struct {
	Doc         string `json:"doc"`
	Title       string `json:"title"`
	HTML        string `json:"html"`
	CSS         string `json:"css,omitempty"`
	Unencrypted bool   `json:"unencrypted,omitempty"`
	ForceTheme  bool   `json:"force_theme,omitempty"`
	DryRun      bool   `json:"dry_run,omitempty"`
}

func (p *Publisher) registerPublishTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "notepub_publish",
		Description: "Publish rendered document HTML as a share link, encrypting content and deduplicating embedded assets. Set dry_run to preview the markdown without publishing.",
		InputSchema: inputSchema(map[string]any{
			"doc":         map[string]any{"type": "string", "description": "Document identifier"},
			"title":       map[string]any{"type": "string", "description": "Document title"},
			"html":        map[string]any{"type": "string", "description": "Rendered document HTML"},
			"css":         map[string]any{"type": "string", "description": "Aggregated stylesheet text"},
			"unencrypted": map[string]any{"type": "boolean", "description": "Publish plain instead of encrypted"},
			"force_theme": map[string]any{"type": "boolean", "description": "Re-upload the theme stylesheet"},
			"dry_run":     map[string]any{"type": "boolean", "description": "Preview as markdown, publish nothing"},
		}, []string{"doc", "html"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r publishReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}

		run := Request{
			DocID:       r.Doc,
			Title:       r.Title,
			Source:      staticSource{html: r.HTML},
			CSS:         r.CSS,
			Unencrypted: r.Unencrypted,
			ForceTheme:  r.ForceTheme,
		}
		if r.DryRun {
			md, err := p.Preview(ctx, run)
			if err != nil {
				return toolError(err), nil
			}
			return toolJSON(map[string]any{"markdown": md})
		}

		res, err := p.Run(ctx, run)
		if err != nil {
			return toolError(err), nil
		}
		return toolJSON(res)
	})
}

// --- status ---

type statusReq struct {
	Doc string `json:"doc"`
}

func (p *Publisher) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "notepub_status",
		Description: "Report a document's publish status: share link, last publish time, theme upload state.",
		InputSchema: inputSchema(map[string]any{
			"doc": map[string]any{"type": "string", "description": "Document identifier"},
		}, []string{"doc"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r statusReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}

		m, err := p.deps.Store.Get(ctx, r.Doc)
		if errors.Is(err, store.ErrNotFound) {
			return toolJSON(map[string]any{"published": false})
		}
		if err != nil {
			return toolError(err), nil
		}
		theme, _ := p.deps.Store.ThemePublished(ctx, r.Doc)
		return toolJSON(map[string]any{
			"published":       m.ShareLink != "",
			"link":            m.ShareLink,
			"title":           m.Title,
			"updated":         m.UpdatedAt,
			"theme_published": theme,
		})
	})
}
