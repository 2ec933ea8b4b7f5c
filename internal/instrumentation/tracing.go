package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the mcp-proxmox package.
const TracerName = "github.com/giantswarm/mcp-proxmox"

// Span attribute keys.
const (
	// SpanAttrTool is the MCP tool name.
	SpanAttrTool = "mcp.tool"

	// SpanAttrInvocationID is the audit id of a tool invocation.
	SpanAttrInvocationID = "mcp.invocation_id"

	// SpanAttrNode is the Proxmox node name.
	SpanAttrNode = "proxmox.node"

	// SpanAttrVMID is the guest id.
	SpanAttrVMID = "proxmox.vmid"

	// SpanAttrKind is the guest kind (qemu or lxc).
	SpanAttrKind = "proxmox.kind"

	// SpanAttrStorage is the storage id.
	SpanAttrStorage = "proxmox.storage"

	// SpanAttrOperation is the aggregation or operation name.
	SpanAttrOperation = "proxmox.operation"

	// SpanAttrEndpoint is the normalized API path.
	SpanAttrEndpoint = "proxmox.endpoint"

	// SpanAttrMethod is the HTTP method used against the API.
	SpanAttrMethod = "http.request.method"

	// SpanAttrStatusCode is the HTTP status code returned by the API.
	SpanAttrStatusCode = "http.response.status_code"

	// SpanAttrNodesChecked is the number of nodes visited by a fan-out.
	SpanAttrNodesChecked = "proxmox.nodes_checked"

	// SpanAttrPartialFailures is the number of failures tolerated by a fan-out.
	SpanAttrPartialFailures = "proxmox.partial_failures"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithTool adds the MCP tool name attribute.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrTool, tool))
	return b
}

// WithInvocationID adds the audit id of a tool invocation.
func (b *SpanAttributeBuilder) WithInvocationID(id string) *SpanAttributeBuilder {
	if id != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrInvocationID, id))
	}
	return b
}

// WithNode adds the node attribute when node is non-empty.
func (b *SpanAttributeBuilder) WithNode(node string) *SpanAttributeBuilder {
	if node != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrNode, node))
	}
	return b
}

// WithGuest adds the guest id and kind attributes.
func (b *SpanAttributeBuilder) WithGuest(vmid int64, kind string) *SpanAttributeBuilder {
	if vmid > 0 {
		b.attrs = append(b.attrs, attribute.Int64(SpanAttrVMID, vmid))
	}
	if kind != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrKind, kind))
	}
	return b
}

// WithStorage adds the storage id attribute.
func (b *SpanAttributeBuilder) WithStorage(storage string) *SpanAttributeBuilder {
	if storage != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrStorage, storage))
	}
	return b
}

// WithOperation adds the operation attribute.
func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrOperation, operation))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartProxmoxSpan starts a client span for a single Proxmox API request.
// The span is named after the normalized endpoint so that node names and
// guest ids do not end up in span names.
func StartProxmoxSpan(ctx context.Context, method, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	endpoint := NormalizeEndpoint(path)

	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+3)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrMethod, method),
		attribute.String(SpanAttrEndpoint, endpoint),
	)
	if node := EndpointNode(path); node != "" {
		allAttrs = append(allAttrs, attribute.String(SpanAttrNode, node))
	}
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "proxmox "+method+" "+endpoint,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartFanoutSpan starts a span covering a cluster-wide aggregation.
func StartFanoutSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrOperation, operation))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "fanout."+operation, trace.WithAttributes(allAttrs...))
}

// SetSpanStatusCode records the upstream HTTP status on the span in ctx.
func SetSpanStatusCode(ctx context.Context, code int) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(SpanAttrStatusCode, code))
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
