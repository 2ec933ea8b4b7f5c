package server

import (
	"context"
	"sync"

	"github.com/giantswarm/mcp-proxmox/internal/cluster"
	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/operations"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// ServerContext encapsulates all dependencies needed by the MCP server
// and provides a clean abstraction for dependency injection and lifecycle management.
type ServerContext struct {
	// Core dependencies
	client     proxmox.Client
	aggregator *cluster.Aggregator
	operations *operations.Operations
	logger     logging.Logger
	config     *Config
	startup    Startup

	// OpenTelemetry instrumentation
	instrumentationProvider *instrumentation.Provider

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Lifecycle management
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new ServerContext with default values.
// Use the provided functional options to customize the context.
//
// A context whose startup state is Ready must carry a Proxmox client. A
// Degraded context carries none; the tool layer answers every call with the
// captured startup reason instead.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:     serverCtx,
		cancel:  cancel,
		config:  NewDefaultConfig(),
		logger:  logging.DefaultLogger(),
		startup: Startup{State: StateReady},
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := sc.validate(); err != nil {
		cancel()
		return nil, err
	}

	if sc.client != nil {
		var metrics *instrumentation.Metrics
		if sc.instrumentationProvider != nil {
			metrics = sc.instrumentationProvider.Metrics()
		}
		aggOpts := []cluster.Option{cluster.WithLogger(sc.logger), cluster.WithMetrics(metrics)}
		if sc.config.MaxConcurrency > 0 {
			aggOpts = append(aggOpts, cluster.WithConcurrency(sc.config.MaxConcurrency))
		}
		sc.aggregator = cluster.New(sc.client, aggOpts...)
		sc.operations = operations.New(sc.client, sc.aggregator, operations.WithLogger(sc.logger))
	}

	return sc, nil
}

// Context returns the server context for cancellation and deadlines.
func (sc *ServerContext) Context() context.Context {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ctx
}

// ProxmoxClient returns the transport client, or nil in degraded mode.
func (sc *ServerContext) ProxmoxClient() proxmox.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.client
}

// Aggregator returns the cluster-wide read model, or nil in degraded mode.
func (sc *ServerContext) Aggregator() *cluster.Aggregator {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.aggregator
}

// Operations returns the per-target operation set, or nil in degraded mode.
func (sc *ServerContext) Operations() *operations.Operations {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.operations
}

// Logger returns the diagnostic logger.
func (sc *ServerContext) Logger() logging.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// Startup returns the outcome recorded when the Proxmox client was built.
func (sc *ServerContext) Startup() Startup {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.startup
}

// InstrumentationProvider returns the OpenTelemetry provider, which may be nil.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.instrumentationProvider
}

// Shutdown gracefully shuts down the server context.
// This cancels the context and releases any resources.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.logger.Info("Shutting down server context")

	if sc.cancel != nil {
		sc.cancel()
	}
	sc.shutdown = true

	sc.logger.Info("Server context shutdown complete")
	return nil
}

// IsShutdown returns true if the server context has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// validate ensures all required dependencies are set.
func (sc *ServerContext) validate() error {
	if sc.startup.State == StateReady && sc.client == nil {
		return ErrMissingProxmoxClient
	}
	if sc.logger == nil {
		return ErrMissingLogger
	}
	if sc.config == nil {
		return ErrMissingConfig
	}
	return nil
}

// Config holds the server configuration.
type Config struct {
	// Server settings
	ServerName string `json:"serverName"`
	Version    string `json:"version"`
	Transport  string `json:"transport"`

	// ReadOnly refuses every tool that changes guest state.
	ReadOnly bool `json:"readOnly"`

	// MaxConcurrency bounds the number of nodes queried at once during fan-out.
	MaxConcurrency int `json:"maxConcurrency"`

	// Logging settings
	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName:     DefaultServerName,
		Version:        "0.1.0",
		Transport:      "stdio",
		ReadOnly:       false,
		MaxConcurrency: DefaultMaxConcurrency,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
