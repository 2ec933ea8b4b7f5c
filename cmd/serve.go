package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-proxmox/internal/server"
)

// errShutdownSignal is the cancellation cause recorded when a signal stops
// the server.
var errShutdownSignal = errors.New("shutdown signal received")

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	config := ServeConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP Proxmox server",
		Long: `Start the MCP Proxmox server to provide tools for managing a Proxmox VE
cluster via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Connection settings come from flags, then PROXMOX_* environment variables,
then the --config file. When they are missing or invalid the server still
starts and lists its tools, but every call reports why it cannot reach the
cluster.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, &config); err != nil {
				return fatalConfig(err)
			}
			if err := config.Validate(); err != nil {
				return fatalConfig(err)
			}
			return runServe(cmd.Context(), config)
		},
	}

	addConnectionFlags(cmd, &config)

	// Transport flags
	cmd.Flags().StringVar(&config.Transport, "transport", transportStdio, "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().StringVar(&config.HTTPAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&config.SSEEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&config.MessageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().StringVar(&config.HTTPEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")
	cmd.Flags().StringVar(&config.AllowedOrigins, "allowed-origins", "", "Comma separated CORS origins for HTTP transports (env "+envAllowedOrigins+")")
	cmd.Flags().BoolVar(&config.EnableHSTS, "enable-hsts", false, "Send Strict-Transport-Security on plain HTTP too, e.g. behind a TLS proxy (env "+envEnableHSTS+")")

	// Metrics flags
	cmd.Flags().BoolVar(&config.Metrics.Enabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated listener (HTTP transports, requires INSTRUMENTATION_ENABLED)")
	cmd.Flags().StringVar(&config.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")

	return cmd
}

// runServe wires the logger, instrumentation, Proxmox client and MCP server
// together and runs the selected transport until it stops or a signal arrives.
func runServe(parent context.Context, config ServeConfig) error {
	logger, err := newLogger(config, os.Stderr)
	if err != nil {
		return fatalConfig(err)
	}
	slog.SetDefault(logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := shutdownContext(parent, logger)
	defer stop()

	provider, err := newInstrumentationProvider(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := provider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("error during instrumentation shutdown", "error", shutdownErr)
		}
	}()

	sc, err := newServerContext(ctx, config, logger, provider)
	if err != nil {
		return err
	}
	defer func() {
		if err := sc.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", "error", err)
		}
	}()

	mcpSrv := newMCPServer(sc, newCaller(sc, config))

	logger.Info("Starting MCP Proxmox server",
		"transport", config.Transport,
		"version", rootCmd.Version,
		"state", sc.Startup().State.String(),
		"read_only", config.ReadOnly)

	switch config.Transport {
	case transportStdio:
		err = runStdioServer(ctx, mcpSrv, logger)
	case transportSSE:
		err = runSSEServer(ctx, mcpSrv, config, sc, logger)
	case transportStreamableHTTP:
		err = runStreamableHTTPServer(ctx, mcpSrv, config, sc, logger)
	default:
		err = fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", config.Transport)
	}
	if err != nil {
		return err
	}

	if cause := context.Cause(ctx); cause != nil {
		logger.Info("Server stopped", "cause", cause.Error())
	} else {
		logger.Info("Server stopped")
	}
	return nil
}

// shutdownContext returns a context cancelled on SIGINT or SIGTERM. The
// signal is logged and recorded as the cancellation cause.
func shutdownContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel(fmt.Errorf("%w: %s", errShutdownSignal, sig))
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel(nil)
	}
}
