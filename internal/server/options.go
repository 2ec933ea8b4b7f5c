package server

import (
	"errors"
	"time"

	"github.com/giantswarm/mcp-proxmox/internal/fanout"
	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

const (
	// DefaultServerName is advertised in the MCP initialize handshake.
	DefaultServerName = "mcp-proxmox"

	// DefaultMaxConcurrency bounds per-node fan-out.
	DefaultMaxConcurrency = fanout.DefaultConcurrency

	// DefaultShutdownTimeout is how long HTTP servers get to drain on shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithProxmoxClient sets the Proxmox transport client.
func WithProxmoxClient(client proxmox.Client) Option {
	return func(sc *ServerContext) error {
		if client == nil {
			return ErrMissingProxmoxClient
		}
		sc.client = client
		return nil
	}
}

// WithStartup records the outcome of client construction. A Degraded startup
// needs no client.
func WithStartup(startup Startup) Option {
	return func(sc *ServerContext) error {
		sc.startup = startup
		return nil
	}
}

// WithLogger sets the logger for the ServerContext.
func WithLogger(logger logging.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithVersion sets the version reported to clients and health endpoints.
func WithVersion(version string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.Version = version
		return nil
	}
}

// WithReadOnly enables or disables read-only mode.
func WithReadOnly(enabled bool) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ReadOnly = enabled
		return nil
	}
}

// WithMaxConcurrency bounds how many nodes are queried at once.
func WithMaxConcurrency(n int) Option {
	return func(sc *ServerContext) error {
		if n < 1 {
			return ErrInvalidConcurrency
		}
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.MaxConcurrency = n
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
// The provider's metrics are handed to the aggregator for fan-out accounting.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingProxmoxClient = errors.New("proxmox client is required")
	ErrMissingLogger        = errors.New("logger is required")
	ErrMissingConfig        = errors.New("configuration is required")
	ErrInvalidConcurrency   = errors.New("max concurrency must be at least 1")
)
