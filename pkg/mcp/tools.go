package mcp

import (
	"context"
	"fmt"
	"math"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/explore-jakarta/recocache/pkg/recommend"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		mcpserver.ServerTool{
			Tool: mcplib.NewTool("recocache_by_place",
				mcplib.WithDescription("Recommend places similar to a given place."),
				mcplib.WithNumber("place_id", mcplib.Required(), mcplib.Description("Place ID (positive integer)")),
			),
			Handler: s.handleByPlace,
		},
		mcpserver.ServerTool{
			Tool: mcplib.NewTool("recocache_for_user",
				mcplib.WithDescription("Personalized recommendations for a user, based on their ratings."),
				mcplib.WithNumber("user_id", mcplib.Required(), mcplib.Description("User ID (positive integer)")),
			),
			Handler: s.handleForUser,
		},
		mcpserver.ServerTool{
			Tool: mcplib.NewTool("recocache_by_category",
				mcplib.WithDescription("Recommend places matching a set of categories. Order does not matter."),
				mcplib.WithArray("categories",
					mcplib.Required(),
					mcplib.Description("Category names, e.g. Museum, Park"),
					mcplib.WithStringItems(),
				),
			),
			Handler: s.handleByCategory,
		},
		mcpserver.ServerTool{
			Tool: mcplib.NewTool("recocache_nearby",
				mcplib.WithDescription("Places near a coordinate."),
				mcplib.WithNumber("lat", mcplib.Required(), mcplib.Description("Latitude in degrees")),
				mcplib.WithNumber("lon", mcplib.Required(), mcplib.Description("Longitude in degrees")),
			),
			Handler: s.handleNearby,
		},
		mcpserver.ServerTool{
			Tool: mcplib.NewTool("recocache_cache_stats",
				mcplib.WithDescription("Show cache entries, hits, misses, hit rate and live entries per kind."),
			),
			Handler: s.handleCacheStats,
		},
		mcpserver.ServerTool{
			Tool: mcplib.NewTool("recocache_invalidate_user",
				mcplib.WithDescription("Drop cached personalized recommendations for a user."),
				mcplib.WithNumber("user_id", mcplib.Required(), mcplib.Description("User ID (positive integer)")),
			),
			Handler: s.handleInvalidateUser,
		},
		mcpserver.ServerTool{
			Tool: mcplib.NewTool("recocache_lookup_stats",
				mcplib.WithDescription("Summarize recorded lookups per kind."),
				mcplib.WithString("since", mcplib.Description("Only lookups newer than this Go duration, e.g. 24h")),
			),
			Handler: s.handleLookupStats,
		},
	)
}

// idArg reads a positive integer argument. JSON numbers arrive as float64.
func idArg(args map[string]any, name string) (int64, error) {
	v, ok := args[name].(float64)
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if !ok || v <= 0 || v != math.Trunc(v) || v >= math.MaxInt64 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return int64(v), nil
}

func coordArg(args map[string]any, name string, limit float64) (float64, error) {
	v, ok := args[name].(float64)
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%s %v out of range", name, v)
	}
	return v, nil
}

func (s *Server) handleByPlace(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := idArg(req.GetArguments(), "place_id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return s.lookup(ctx, recommend.PlaceRequest(id)), nil
}

func (s *Server) handleForUser(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := idArg(req.GetArguments(), "user_id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return s.lookup(ctx, recommend.UserRequest(id)), nil
}

func (s *Server) handleByCategory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	raw, _ := req.GetArguments()["categories"].([]any)
	categories := make([]string, 0, len(raw))
	for _, v := range raw {
		if c, ok := v.(string); ok && c != "" {
			categories = append(categories, c)
		}
	}
	if len(categories) == 0 {
		return mcplib.NewToolResultError("categories must list at least one category"), nil
	}
	return s.lookup(ctx, recommend.CategoryRequest(categories)), nil
}

func (s *Server) handleNearby(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := req.GetArguments()
	lat, err := coordArg(args, "lat", 90)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	lon, err := coordArg(args, "lon", 180)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return s.lookup(ctx, recommend.NearbyRequest(lat, lon)), nil
}

func (s *Server) lookup(ctx context.Context, req recommend.Request) *mcplib.CallToolResult {
	res, err := s.gateway.Lookup(ctx, req)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("lookup failed", err)
	}
	return mcplib.NewToolResultText(formatPlaces(res))
}

func (s *Server) handleCacheStats(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return mcplib.NewToolResultText(formatCacheStats(s.gateway.Store().Stats())), nil
}

func (s *Server) handleInvalidateUser(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := idArg(req.GetArguments(), "user_id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	n := s.gateway.InvalidateUser(id)
	return mcplib.NewToolResultText(formatInvalidated(id, n)), nil
}

func (s *Server) handleLookupStats(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.history == nil {
		return mcplib.NewToolResultText("Lookup tracking is not configured."), nil
	}

	var since time.Time
	if v, _ := req.GetArguments()["since"].(string); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return mcplib.NewToolResultError("invalid since duration (use e.g. 24h)"), nil
		}
		since = time.Now().UTC().Add(-d)
	}

	rows, err := s.history.Summary(ctx, since)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to fetch lookup stats", err), nil
	}
	return mcplib.NewToolResultText(formatLookupSummary(rows)), nil
}
