package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
)

// DefaultMetricsAddr is where the metrics server listens unless told otherwise.
const DefaultMetricsAddr = ":9090"

// MetricsServerConfig configures the dedicated metrics listener.
type MetricsServerConfig struct {
	// Addr is the listen address (default: DefaultMetricsAddr).
	Addr string

	// Enabled is informational; callers decide whether to start the server.
	Enabled bool

	// InstrumentationProvider supplies the Prometheus registry. Required.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves /metrics on its own port so scrapes never share a
// listener with MCP traffic.
type MetricsServer struct {
	addr   string
	server *http.Server

	mu      sync.Mutex
	started bool
}

// NewMetricsServer builds a metrics server. Nothing listens until Start.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.InstrumentationProvider == nil {
		return nil, errors.New("instrumentation provider is required")
	}

	addr := config.Addr
	if addr == "" {
		addr = DefaultMetricsAddr
	}

	endpoint := config.InstrumentationProvider.Config().PrometheusEndpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(endpoint, config.InstrumentationProvider.PrometheusHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		addr: addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Addr returns the listen address.
func (s *MetricsServer) Addr() string {
	return s.addr
}

// Start blocks serving requests until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *MetricsServer) Start() error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return s.server.ListenAndServe()
}

// Shutdown stops the server. Calling it before Start is a no-op.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}
	return s.server.Shutdown(ctx)
}
