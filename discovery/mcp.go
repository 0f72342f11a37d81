package discovery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"tokscout/kit"
)

// HealthURI is the URI of the health resource.
const HealthURI = "status://health"

// RegisterMCP registers all discovery tools, the search prompt and the
// health resource on an MCP server.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	svc.registerSearchVideos(srv)
	svc.registerGetTrending(srv)
	svc.registerGetHashtag(srv)
	svc.registerSearchLog(srv)
	svc.registerSearchPrompt(srv)
	svc.registerHealth(srv)
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

// endpoint returns the configured middleware chain wrapped around next.
func (svc *Service) endpoint(op string, next kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(svc.logger, op))(next)
}

func (svc *Service) registerSearchVideos(srv *mcp.Server) {
	type req struct {
		SearchTerms []string `json:"search_terms"`
		Count       int      `json:"count"`
	}

	tool := &mcp.Tool{
		Name:        "search_videos",
		Description: "Search TikTok videos by terms or hashtags; multi-word terms are split into individual hashtags",
		InputSchema: inputSchema(map[string]any{
			"search_terms": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Terms or hashtags to search for",
			},
			"count": map[string]any{"type": "integer", "description": "Max videos per term (default 30)"},
		}, []string{"search_terms"}),
	}

	endpoint := svc.endpoint("search_videos", func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if len(p.SearchTerms) == 0 {
			return nil, fmt.Errorf("search_terms must not be empty")
		}
		return svc.SearchVideos(ctx, p.SearchTerms, p.Count)
	})

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerGetTrending(srv *mcp.Server) {
	type req struct {
		Count int `json:"count"`
	}

	tool := &mcp.Tool{
		Name:        "get_trending",
		Description: "Fetch currently trending TikTok videos",
		InputSchema: inputSchema(map[string]any{
			"count": map[string]any{"type": "integer", "description": "Max videos (default 30)"},
		}, nil),
	}

	endpoint := svc.endpoint("get_trending", func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		videos, err := svc.Trending(ctx, p.Count)
		if err != nil {
			return nil, err
		}
		return map[string]any{"videos": videos}, nil
	})

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerGetHashtag(srv *mcp.Server) {
	type req struct {
		Name string `json:"name"`
	}

	tool := &mcp.Tool{
		Name:        "get_hashtag",
		Description: "Get metadata and stats for a single hashtag",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Hashtag name, with or without #"},
		}, []string{"name"}),
	}

	endpoint := svc.endpoint("get_hashtag", func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if err := validateTerm(p.Name, svc.cfg.MaxTermLength); err != nil {
			return nil, err
		}
		return svc.Hashtag(ctx, p.Name)
	})

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerSearchLog(srv *mcp.Server) {
	type req struct {
		Limit int `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "get_search_log",
		Description: "List recent search log entries, newest first (empty when no search log is configured)",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max entries (default 50)"},
		}, nil),
	}

	endpoint := svc.endpoint("get_search_log", func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		entries, err := svc.RecentSearches(ctx, p.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"entries": entries}, nil
	})

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (svc *Service) registerSearchPrompt(srv *mcp.Server) {
	prompt := &mcp.Prompt{
		Name:        "search_prompt",
		Description: "Guidance for searching TikTok content effectively",
		Arguments: []*mcp.PromptArgument{
			{Name: "query", Description: "What the user wants to find", Required: true},
		},
	}

	srv.AddPrompt(prompt, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		query := req.Params.Arguments["query"]
		return &mcp.GetPromptResult{
			Description: "TikTok search guidance",
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: svc.SearchPrompt(query)},
				},
			},
		}, nil
	})
}

func (svc *Service) registerHealth(srv *mcp.Server) {
	resource := &mcp.Resource{
		URI:         HealthURI,
		Name:        "health",
		Description: "Service health and version",
		MIMEType:    "application/json",
	}

	srv.AddResource(resource, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		data, err := json.Marshal(svc.Health())
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: HealthURI, MIMEType: "application/json", Text: string(data)},
			},
		}, nil
	})
}
