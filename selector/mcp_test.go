package selector

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testImpl = &mcp.Implementation{Name: "selector-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testImpl, nil)
	New().RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(testImpl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text, result.IsError
}

func TestMCP_Generate(t *testing.T) {
	session := mcpSession(t)

	text, isErr := callTool(t, session, "selector_generate", map[string]any{
		"html":   `<html><body><div id="profile-card">x</div></body></html>`,
		"target": "div",
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var res Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.CSSSelector != "#profile-card" || res.Confidence != High {
		t.Fatalf("got %+v", res)
	}
}

func TestMCP_GenerateNoMatch(t *testing.T) {
	session := mcpSession(t)

	_, isErr := callTool(t, session, "selector_generate", map[string]any{
		"html":   `<p>x</p>`,
		"target": "table",
	})
	if !isErr {
		t.Fatal("expected tool error")
	}
}

func TestMCP_Test(t *testing.T) {
	session := mcpSession(t)

	text, isErr := callTool(t, session, "selector_test", map[string]any{
		"html":  `<ul><li>a</li><li>b</li></ul>`,
		"css":   "li",
		"xpath": "//ul",
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var resp testResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CSS.MatchCount != 2 || resp.XPath.MatchCount != 1 {
		t.Fatalf("got css=%+v xpath=%+v", resp.CSS, resp.XPath)
	}
}
