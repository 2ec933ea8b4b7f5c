package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one MCP tool call for audit logging.
//
// LogAttrs returns cardinality-controlled attributes suitable for log-based
// metrics. LogAuditAttrs returns the full record including guest ids and the
// API user, for the audit trail.
type ToolInvocation struct {
	// ID uniquely identifies the invocation across logs and spans.
	ID string

	Tool string

	// Target of the call, when the tool addresses a single node or guest.
	Node    string
	VMID    int64
	Kind    string
	Storage string

	// User is the Proxmox user the API token belongs to.
	User string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts an invocation record for tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		ID:        uuid.NewString(),
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithUser sets the Proxmox API user.
func (ti *ToolInvocation) WithUser(user string) *ToolInvocation {
	ti.User = user
	return ti
}

// WithTarget sets the node and guest addressed by the call.
func (ti *ToolInvocation) WithTarget(node string, vmid int64, kind string) *ToolInvocation {
	ti.Node = node
	ti.VMID = vmid
	ti.Kind = kind
	return ti
}

// WithStorage sets the storage addressed by the call.
func (ti *ToolInvocation) WithStorage(storage string) *ToolInvocation {
	ti.Storage = storage
	return ti
}

// WithSpanContext copies trace and span ids from the active span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete records the outcome and duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// CompleteWithError marks the invocation as failed with err.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// Status returns "success" or "error".
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// UserRealm returns the realm of the API user.
func (ti *ToolInvocation) UserRealm() string {
	return ExtractRealm(ti.User)
}

// LogAttrs returns low-cardinality attributes.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("user_realm", ti.UserRealm()),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Kind != "" {
		attrs = append(attrs, slog.String("kind", ti.Kind))
	}
	return attrs
}

// LogAuditAttrs returns the full audit record.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("invocation_id", ti.ID),
		slog.String("tool", ti.Tool),
		slog.String("user", ti.User),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Node != "" {
		attrs = append(attrs, slog.String("node", ti.Node))
	}
	if ti.VMID > 0 {
		attrs = append(attrs, slog.Int64("vmid", ti.VMID))
	}
	if ti.Kind != "" {
		attrs = append(attrs, slog.String("kind", ti.Kind))
	}
	if ti.Storage != "" {
		attrs = append(attrs, slog.String("storage", ti.Storage))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	return attrs
}

// AuditLogger writes tool invocation records.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// LogToolInvocation writes ti at info level, or warn level when it failed.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || ti == nil {
		return
	}
	level := slog.LevelInfo
	if !ti.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "tool_invocation", ti.LogAuditAttrs()...)
}

// TraceIDFromContext returns the trace id of the active span, or "".
func TraceIDFromContext(ctx context.Context) string {
	return GetTraceID(ctx)
}
