package schema

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/leadsync/kit"
	"github.com/hazyhaar/leadsync/pagetype"
)

// RegisterMCP registers the schema tools on an MCP server.
func (r *Registry) RegisterMCP(srv *mcp.Server) {
	r.registerForPlatformTool(srv)
	r.registerExportTool(srv)
	r.registerImportTool(srv)
	r.registerHistoryTool(srv)
	r.registerDeleteElementTool(srv)
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

func platformProps() map[string]any {
	platforms := make([]any, 0, len(pagetype.Platforms))
	for _, p := range pagetype.Platforms {
		platforms = append(platforms, string(p))
	}
	pageTypes := make([]any, 0, len(pagetype.PageTypes))
	for _, t := range pagetype.PageTypes {
		pageTypes = append(pageTypes, string(t))
	}
	return map[string]any{
		"platform":  map[string]any{"type": "string", "enum": platforms, "description": "Platform"},
		"page_type": map[string]any{"type": "string", "enum": pageTypes, "description": "Page type"},
	}
}

type keyRequest struct {
	Platform string `json:"platform"`
	PageType string `json:"page_type"`
}

// withActor attributes history records written over MCP unless an upstream
// layer already set a user.
func withActor(ctx context.Context) context.Context {
	if kit.GetUserID(ctx) != "" {
		return ctx
	}
	return kit.WithUserID(ctx, "mcp")
}

// --- schema_for_platform ---

func (r *Registry) registerForPlatformTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "schema_for_platform",
		Description: "List the active extraction elements of a platform/page-type schema, in order.",
		InputSchema: inputSchema(platformProps(), []string{"platform", "page_type"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*keyRequest)
		els, err := r.ForPlatform(ctx, pagetype.Platform(rr.Platform), pagetype.PageType(rr.PageType))
		if err != nil {
			return nil, err
		}
		if els == nil {
			els = []*Element{}
		}
		return els, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[keyRequest]())
}

// --- schema_export ---

func (r *Registry) registerExportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "schema_export",
		Description: "Export the active schema of a platform/page-type as a versioned JSON document.",
		InputSchema: inputSchema(platformProps(), []string{"platform", "page_type"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*keyRequest)
		return r.Export(ctx, pagetype.Platform(rr.Platform), pagetype.PageType(rr.PageType))
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[keyRequest]())
}

// --- schema_import ---

func (r *Registry) registerImportTool(srv *mcp.Server) {
	props := platformProps()
	props["version"] = map[string]any{"type": "string", "description": "Schema version (default 1.0.0)"}
	props["elements"] = map[string]any{
		"type":        "array",
		"description": "Elements in order; each has element_type, css_selector, xpath_selector, is_required, fallback_value, parent_element, multiple, description",
		"items":       map[string]any{"type": "object"},
	}
	tool := &mcp.Tool{
		Name:        "schema_import",
		Description: "Import a schema document. The current active elements are deactivated, not deleted.",
		InputSchema: inputSchema(props, []string{"platform", "page_type", "elements"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return r.Import(ctx, req.(*Document))
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		res, err := kit.DecodeJSON[Document]()(req)
		if err != nil {
			return nil, err
		}
		res.EnrichCtx = withActor
		return res, nil
	}

	kit.RegisterMCPTool(srv, tool, kit.Logging(r.logger, tool.Name)(endpoint), decode)
}

// --- schema_history ---

type historyRequest struct {
	Platform  string `json:"platform,omitempty"`
	PageType  string `json:"page_type,omitempty"`
	Version   string `json:"version,omitempty"`
	ElementID string `json:"element_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (r *Registry) registerHistoryTool(srv *mcp.Server) {
	props := platformProps()
	props["version"] = map[string]any{"type": "string", "description": "Only records of this version"}
	props["element_id"] = map[string]any{"type": "string", "description": "Only records of this element"}
	props["limit"] = map[string]any{"type": "integer", "description": "Max records (default 200)"}
	tool := &mcp.Tool{
		Name:        "schema_history",
		Description: "Read the append-only change log of schema elements, oldest first.",
		InputSchema: inputSchema(props, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*historyRequest)
		if rr.Limit <= 0 {
			rr.Limit = 200
		}
		recs, err := r.History(ctx, HistoryFilter{
			ElementID: rr.ElementID,
			Platform:  rr.Platform,
			PageType:  rr.PageType,
			Version:   rr.Version,
			Limit:     rr.Limit,
		})
		if err != nil {
			return nil, err
		}
		if recs == nil {
			recs = []*HistoryRecord{}
		}
		return recs, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[historyRequest]())
}

// --- schema_delete_element ---

type deleteRequest struct {
	ID string `json:"id"`
}

func (r *Registry) registerDeleteElementTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "schema_delete_element",
		Description: "Delete one schema element. Its history is kept.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Element ID"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*deleteRequest)
		if err := r.DeleteElement(ctx, rr.ID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "deleted", "id": rr.ID}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		res, err := kit.DecodeJSON[deleteRequest]()(req)
		if err != nil {
			return nil, err
		}
		res.EnrichCtx = withActor
		return res, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
