package pagetype

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/leadsync/kit"
)

type classifyRequest struct {
	URL string `json:"url"`
}

// ClassifyResult is the page_classify response.
type ClassifyResult struct {
	PageInfo
	Label      string `json:"label,omitempty"`
	Supported  bool   `json:"supported"`
	PlatformID string `json:"platform_id,omitempty"`
}

// Describe classifies rawURL and adds the display label and platform id.
func Describe(rawURL string) ClassifyResult {
	info := Classify(rawURL)
	res := ClassifyResult{PageInfo: info, Label: Label(info.Type), Supported: info.Supported()}
	if res.Supported {
		res.PlatformID = ExtractPlatformID(rawURL, info.Platform, info.Type)
	}
	return res
}

// RegisterMCP registers the page_classify tool.
func RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "page_classify",
		Description: "Classify a URL into a social platform and page type, and derive its platform id.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "Absolute page URL"},
			},
			"required": []string{"url"},
		},
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*classifyRequest)
		if r.URL == "" {
			return nil, errors.New("pagetype: url is required")
		}
		return Describe(r.URL), nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[classifyRequest]())
}
