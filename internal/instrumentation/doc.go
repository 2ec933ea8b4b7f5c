// Package instrumentation provides OpenTelemetry instrumentation for the
// mcp-proxmox server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Tool Metrics:
//   - mcp_tool_calls_total: Counter of tool dispatches by tool and status
//   - mcp_tool_call_duration_seconds: Histogram of tool dispatch durations
//
// Proxmox API Metrics:
//   - proxmox_requests_total: Counter of API requests by method, endpoint, and status
//   - proxmox_request_duration_seconds: Histogram of API request durations
//   - proxmox_fanout_partial_failures_total: Counter of per-node or per-storage
//     failures tolerated by cluster-wide aggregations
//
// # Cardinality Considerations
//
// Proxmox API paths carry node names and guest ids. Endpoints are always
// recorded in normalized form ("/nodes/{node}/qemu/{vmid}/status/start").
// The node label is opt-in through METRICS_DETAILED_LABELS.
//
// # Tracing
//
// Spans are created for every tool dispatch, every cluster-wide fan-out and
// every Proxmox API request, so a single tool call renders as one trace.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: mcp-proxmox)
//   - METRICS_DETAILED_LABELS: Add the node label to Proxmox request metrics
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordToolCall(ctx, "get_nodes", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
