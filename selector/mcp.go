package selector

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/leadsync/dom"
	"github.com/hazyhaar/leadsync/kit"
)

// RegisterMCP registers the selector tools on an MCP server.
func (s *Synthesizer) RegisterMCP(srv *mcp.Server) {
	s.registerGenerateTool(srv)
	s.registerTestTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

type generateRequest struct {
	HTML   string `json:"html"`
	Target string `json:"target"`
}

func (s *Synthesizer) registerGenerateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "selector_generate",
		Description: "Generate a CSS selector and an XPath for one element of an HTML page, with a confidence rating.",
		InputSchema: inputSchema(map[string]any{
			"html":   map[string]any{"type": "string", "description": "Page HTML"},
			"target": map[string]any{"type": "string", "description": "Any CSS selector locating the element (first match is used)"},
		}, []string{"html", "target"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*generateRequest)
		doc, err := dom.ParseString(rr.HTML)
		if err != nil {
			return nil, err
		}
		el, err := doc.Find(rr.Target)
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, fmt.Errorf("selector: no element matches %q", rr.Target)
		}
		return s.Generate(doc, el), nil
	}

	kit.RegisterMCPTool(srv, tool, kit.Logging(s.logger, tool.Name)(endpoint), kit.DecodeJSON[generateRequest]())
}

type testRequest struct {
	HTML  string `json:"html"`
	CSS   string `json:"css,omitempty"`
	XPath string `json:"xpath,omitempty"`
}

type testResponse struct {
	CSS   *Match `json:"css,omitempty"`
	XPath *Match `json:"xpath,omitempty"`
}

func (s *Synthesizer) registerTestTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "selector_test",
		Description: "Count how many elements of an HTML page a CSS selector and/or an XPath match.",
		InputSchema: inputSchema(map[string]any{
			"html":  map[string]any{"type": "string", "description": "Page HTML"},
			"css":   map[string]any{"type": "string", "description": "CSS selector"},
			"xpath": map[string]any{"type": "string", "description": "XPath expression"},
		}, []string{"html"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*testRequest)
		if rr.CSS == "" && rr.XPath == "" {
			return nil, errors.New("selector: css or xpath is required")
		}
		doc, err := dom.ParseString(rr.HTML)
		if err != nil {
			return nil, err
		}
		var resp testResponse
		if rr.CSS != "" {
			p := TestCSS(doc, rr.CSS)
			resp.CSS = &p
		}
		if rr.XPath != "" {
			p := TestXPath(doc, rr.XPath)
			resp.XPath = &p
		}
		return resp, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[testRequest]())
}
