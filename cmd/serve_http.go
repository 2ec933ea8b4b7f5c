package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/server"
	"github.com/giantswarm/mcp-proxmox/internal/server/middleware"
)

// httpListener abstracts over the two HTTP transports: both block in start
// and are stopped with shutdown.
type httpListener struct {
	name     string
	start    func() error
	shutdown func(ctx context.Context) error
}

// newHTTPServer builds the http.Server shared by both HTTP transports. The
// handler chain is security headers, CORS, request metrics, then the mux.
func newHTTPServer(config ServeConfig, mux *http.ServeMux, provider *instrumentation.Provider) (*http.Server, error) {
	origins, err := middleware.ValidateAllowedOrigins(config.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	var handler http.Handler = mux
	handler = middleware.HTTPMetrics(provider)(handler)
	handler = middleware.CORS(origins)(handler)
	handler = middleware.SecurityHeaders(middleware.SecurityHeadersConfig{EnableHSTS: config.EnableHSTS})(handler)

	return &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Tool calls fan out across the cluster; leave room for slow nodes.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}, nil
}

// runStreamableHTTPServer serves MCP over the streamable HTTP transport with
// health endpoints on the same listener.
func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, config ServeConfig, sc *server.ServerContext, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(config.HTTPEndpoint, mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(config.HTTPEndpoint),
	))

	healthChecker := server.NewHealthChecker(sc)
	healthChecker.RegisterHealthEndpoints(mux)

	httpServer, err := newHTTPServer(config, mux, sc.InstrumentationProvider())
	if err != nil {
		return err
	}

	logger.Info("streamable HTTP server starting",
		"addr", config.HTTPAddr,
		"endpoint", config.HTTPEndpoint,
		"health_endpoints", []string{"/healthz", "/readyz", "/healthz/detailed"})

	return runHTTPListener(ctx, httpListener{
		name: "HTTP server",
		start: func() error {
			return httpServer.ListenAndServe()
		},
		shutdown: httpServer.Shutdown,
	}, config, sc, healthChecker, logger)
}

// runHTTPListener starts l and the optional metrics server, notifies systemd,
// and blocks until ctx is cancelled or the listener fails.
func runHTTPListener(ctx context.Context, l httpListener, config ServeConfig, sc *server.ServerContext, healthChecker *server.HealthChecker, logger *slog.Logger) error {
	var metricsServer *server.MetricsServer
	provider := sc.InstrumentationProvider()
	if config.Metrics.Enabled && provider != nil && provider.Enabled() {
		var err error
		metricsServer, err = startMetricsServer(config.Metrics, provider, logger)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := l.start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	notifySystemd(daemon.SdNotifyReady, logger)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping " + l.name)
		healthChecker.SetReady(false)
		notifySystemd(daemon.SdNotifyStopping, logger)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error shutting down metrics server", "error", err)
			}
		}

		if err := l.shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down %s: %w", l.name, err)
		}
	case err := <-serverDone:
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		if err != nil {
			return fmt.Errorf("%s stopped with error: %w", l.name, err)
		}
		logger.Info(l.name + " stopped normally")
	}

	logger.Info(l.name + " gracefully stopped")
	return nil
}

// startMetricsServer starts the dedicated metrics listener in the background.
func startMetricsServer(config MetricsServeConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		Enabled:                 config.Enabled,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	logger.Info("metrics server started", "addr", metricsServer.Addr(), "endpoint", provider.Config().PrometheusEndpoint)
	return metricsServer, nil
}

// notifySystemd reports state to systemd when running under a Type=notify
// unit. Outside systemd it does nothing.
func notifySystemd(state string, logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		logger.Debug("notified systemd", "state", state)
	}
}
