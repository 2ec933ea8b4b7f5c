package cmd

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-proxmox/internal/server"
)

// runSSEServer serves MCP over Server-Sent Events. The SSE server owns the
// http.Server so its shutdown closes open event streams first.
func runSSEServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, config ServeConfig, sc *server.ServerContext, logger *slog.Logger) error {
	mux := http.NewServeMux()

	healthChecker := server.NewHealthChecker(sc)
	healthChecker.RegisterHealthEndpoints(mux)

	httpServer, err := newHTTPServer(config, mux, sc.InstrumentationProvider())
	if err != nil {
		return err
	}
	// Event streams stay open indefinitely.
	httpServer.WriteTimeout = 0

	sseServer := mcpserver.NewSSEServer(mcpSrv,
		mcpserver.WithSSEEndpoint(config.SSEEndpoint),
		mcpserver.WithMessageEndpoint(config.MessageEndpoint),
		mcpserver.WithHTTPServer(httpServer),
	)
	mux.Handle(config.SSEEndpoint, sseServer)
	mux.Handle(config.MessageEndpoint, sseServer)

	logger.Info("SSE server starting",
		"addr", config.HTTPAddr,
		"sse_endpoint", config.SSEEndpoint,
		"message_endpoint", config.MessageEndpoint)

	return runHTTPListener(ctx, httpListener{
		name: "SSE server",
		start: func() error {
			return sseServer.Start(config.HTTPAddr)
		},
		shutdown: sseServer.Shutdown,
	}, config, sc, healthChecker, logger)
}
