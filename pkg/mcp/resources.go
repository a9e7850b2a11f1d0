package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const cacheStatsURI = "recocache://cache/stats"

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			cacheStatsURI,
			"Cache Statistics",
			mcplib.WithResourceDescription("Entries, hits, misses, hit rate and live keys of the recommendation cache"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleCacheStatsResource,
	)
}

func (s *Server) handleCacheStatsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	data, err := json.Marshal(s.gateway.Store().Stats())
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
