// Package server holds the process-wide state of the MCP server.
//
// ServerContext carries the Proxmox client together with the cluster
// aggregator and operation set built on it, the logger, the configuration and
// the instrumentation provider. Dependencies are injected with functional
// options:
//
//	client, startup := server.Connect(clientConfig, proxmox.WithLogger(logger))
//	opts := []server.Option{
//		server.WithLogger(logger),
//		server.WithStartup(startup),
//		server.WithReadOnly(readOnly),
//	}
//	if client != nil {
//		opts = append(opts, server.WithProxmoxClient(client))
//	}
//	sc, err := server.NewServerContext(ctx, opts...)
//
// # Startup states
//
// Connect never aborts the process. Missing or malformed connection settings
// yield a Degraded startup whose Reason is shown to every tool caller, while
// the MCP transport keeps answering capability listings. Only invalid
// server-level settings are fatal.
//
// # HTTP surfaces
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed for the HTTP
// transports. A degraded server reports "degraded" with HTTP 200 on /readyz.
// MetricsServer exposes the Prometheus registry on a separate listener.
package server
