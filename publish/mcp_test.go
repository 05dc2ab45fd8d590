package publish

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/notepub/store"
)

var testMCPImpl = &mcp.Implementation{Name: "notepub-test", Version: "0.1.0"}

func mcpSession(t *testing.T) (*mcp.ClientSession, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	st := store.OpenMemory(t)
	p := New(Config{APIKey: "k"}, Deps{Transport: ft, Store: st})

	srv := mcp.NewServer(testMCPImpl, nil)
	p.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session, ft
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if result.IsError {
		t.Fatalf("call %s: tool error: %+v", name, result.Content)
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("call %s: unexpected content %T", name, result.Content[0])
	}
	return text.Text
}

func TestMCP_PublishAndStatus(t *testing.T) {
	session, ft := mcpSession(t)

	out := callTool(t, session, "notepub_publish", map[string]any{
		"doc":   "doc1",
		"title": "Note",
		"html":  "<h1>Hello</h1><p>World</p>",
	})
	var res Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode publish result: %v", err)
	}
	if res.Link == "" || !res.Encrypted {
		t.Fatalf("publish result: %+v", res)
	}
	if len(ft.created) != 1 {
		t.Fatalf("documents created: got %d", len(ft.created))
	}

	out = callTool(t, session, "notepub_status", map[string]any{"doc": "doc1"})
	var status struct {
		Published bool   `json:"published"`
		Link      string `json:"link"`
	}
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Published || status.Link != res.Link {
		t.Fatalf("status: %+v, want link %q", status, res.Link)
	}
}

func TestMCP_StatusUnpublished(t *testing.T) {
	session, _ := mcpSession(t)

	out := callTool(t, session, "notepub_status", map[string]any{"doc": "never"})
	if !strings.Contains(out, `"published":false`) {
		t.Fatalf("got %s", out)
	}
}

func TestMCP_DryRun(t *testing.T) {
	session, ft := mcpSession(t)

	out := callTool(t, session, "notepub_publish", map[string]any{
		"doc":     "doc1",
		"html":    "<h1>Preview</h1>",
		"dry_run": true,
	})
	if !strings.Contains(out, "# Preview") {
		t.Fatalf("got %s", out)
	}
	if len(ft.created) != 0 || len(ft.uploads) != 0 {
		t.Fatal("dry run touched the network")
	}
}
