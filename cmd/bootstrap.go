package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
	"github.com/giantswarm/mcp-proxmox/internal/server"
	"github.com/giantswarm/mcp-proxmox/internal/tools"
)

// fatalConfig logs a configuration problem that must stop the process.
func fatalConfig(err error) error {
	startup := server.Fatal(err)
	slog.Error("fatal configuration error", "state", startup.State.String(), "reason", startup.Reason)
	return err
}

// newLogger builds the process logger. Logs always go to w (stderr in
// production) because stdout carries the stdio transport.
func newLogger(config ServeConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, config.LogFormat)
}

// newInstrumentationProvider creates the OpenTelemetry provider and points
// its audit log at logger.
func newInstrumentationProvider(ctx context.Context, logger *slog.Logger) (*instrumentation.Provider, error) {
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version

	provider, err := instrumentation.NewProvider(ctx, instrumentationConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	provider.SetAuditLogger(logger)

	if provider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			"metrics", instrumentationConfig.MetricsExporter,
			"tracing", instrumentationConfig.TracingExporter)
	}
	return provider, nil
}

// newServerContext builds the Proxmox client and the server context around
// it. Missing or malformed connection settings do not fail here: the context
// is created in degraded state and every tool call reports the reason.
func newServerContext(ctx context.Context, config ServeConfig, logger *slog.Logger, provider *instrumentation.Provider) (*server.ServerContext, error) {
	adapter := logging.NewSlogAdapter(logger)

	clientOpts := []proxmox.ClientOption{proxmox.WithLogger(adapter)}
	if provider != nil {
		clientOpts = append(clientOpts, proxmox.WithMetrics(provider.Metrics()))
	}

	client, startup := server.Connect(config.Proxmox.ClientConfig(), clientOpts...)

	serverConfig := server.NewDefaultConfig()
	serverConfig.Version = rootCmd.Version
	serverConfig.Transport = config.Transport
	serverConfig.ReadOnly = config.ReadOnly
	serverConfig.MaxConcurrency = config.MaxConcurrency
	serverConfig.LogLevel = config.LogLevel
	serverConfig.LogFormat = config.LogFormat

	opts := []server.Option{
		server.WithConfig(serverConfig),
		server.WithLogger(adapter),
		server.WithStartup(startup),
		server.WithInstrumentationProvider(provider),
	}

	if startup.Ready() {
		opts = append(opts, server.WithProxmoxClient(client))
		logger.Info("Proxmox client configured",
			logging.Host(client.BaseURL()),
			"user", config.Proxmox.User,
			logging.Token(config.Proxmox.TokenID),
			"verify_ssl", config.Proxmox.VerifySSL)
	} else {
		logger.Warn("Starting in degraded mode; every tool call will report the startup failure",
			"reason", startup.Reason)
	}

	sc, err := server.NewServerContext(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	return sc, nil
}

// newCaller is the single entry point every front end dispatches through.
func newCaller(sc *server.ServerContext, config ServeConfig) tools.Caller {
	return tools.NewCaller(sc, tools.WithAuditUser(config.Proxmox.User))
}

// newMCPServer creates the MCP server with the full tool catalogue
// registered, whether or not the cluster is reachable.
func newMCPServer(sc *server.ServerContext, caller tools.Caller) *mcpserver.MCPServer {
	cfg := sc.Config()
	mcpSrv := mcpserver.NewMCPServer(cfg.ServerName, cfg.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
	tools.RegisterTools(mcpSrv, caller, tools.DefaultRegistry())
	return mcpSrv
}
