// Package mcp serves recommendation lookups and cache diagnostics as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"io"
	"log/slog"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/explore-jakarta/recocache/pkg/models"
	"github.com/explore-jakarta/recocache/pkg/recommend"
)

// History exposes recorded lookups. It is optional.
type History interface {
	Summary(ctx context.Context, since time.Time) ([]models.LookupSummary, error)
}

// Server wraps an MCP server whose tools call the gateway.
type Server struct {
	gateway   *recommend.Gateway
	history   History
	log       *slog.Logger
	mcpServer *mcpserver.MCPServer
}

// New creates a Server over gw. history may be nil.
func New(gw *recommend.Gateway, history History, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		gateway: gw,
		history: history,
		log:     log,
		mcpServer: mcpserver.NewMCPServer("recocache", version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Run serves line-delimited JSON-RPC from in to out until in is exhausted or
// ctx is cancelled.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.log.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}
