package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/server"
)

// unknownToolLabel replaces unregistered names in metrics and spans.
const unknownToolLabel = "unknown"

// Caller resolves a tool call to a result envelope. Implementations never
// return a Go error or panic: every failure is folded into the Result.
type Caller interface {
	Call(ctx context.Context, name string, args map[string]any) Result
}

// Dispatcher looks tools up in a Registry, validates their arguments, applies
// the read-only gate and runs the handler against the backend.
type Dispatcher struct {
	registry  *Registry
	backend   *Backend
	readOnly  bool
	auditUser string

	logger   logging.Logger
	provider *instrumentation.Provider
}

var _ Caller = (*Dispatcher)(nil)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRegistry replaces the default tool catalogue.
func WithRegistry(r *Registry) DispatcherOption {
	return func(d *Dispatcher) {
		d.registry = r
	}
}

// WithAuditUser records user as the acting identity in audit records. This is
// the Proxmox user owning the API token.
func WithAuditUser(user string) DispatcherOption {
	return func(d *Dispatcher) {
		d.auditUser = user
	}
}

// NewDispatcher builds a dispatcher over the operations held by sc.
func NewDispatcher(sc *server.ServerContext, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: DefaultRegistry(),
		backend: &Backend{
			Operations: sc.Operations(),
			Cluster:    sc.Aggregator(),
		},
		readOnly: sc.Config().ReadOnly,
		logger:   sc.Logger(),
		provider: sc.InstrumentationProvider(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the catalogue the dispatcher serves.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Call dispatches one tool call.
func (d *Dispatcher) Call(ctx context.Context, name string, raw map[string]any) Result {
	start := time.Now()

	desc, known := d.registry.Lookup(name)
	label := name
	if !known {
		label = unknownToolLabel
	}

	ctx, span := instrumentation.StartToolSpan(ctx, label)
	defer span.End()

	args := Args(maps.Clone(raw))
	if args == nil {
		args = Args{}
	}

	invocation := instrumentation.NewToolInvocation(label).WithSpanContext(ctx)
	if d.auditUser != "" {
		invocation.WithUser(d.auditUser)
	}
	extractAuditInfoFromArgs(invocation, ToolName(name), args)
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithInvocationID(invocation.ID).
		WithNode(invocation.Node).
		WithGuest(invocation.VMID, invocation.Kind).
		WithStorage(invocation.Storage).
		Build()...)

	var result Result
	if known {
		result = d.run(ctx, desc, args)
	} else {
		result = Failure("Unknown tool: " + name)
	}

	duration := time.Since(start)
	status := instrumentation.StatusSuccess
	if result.IsError() {
		status = instrumentation.StatusError
		err := errors.New(result.Err)
		invocation.CompleteWithError(err)
		instrumentation.SetSpanError(span, err)
		d.logger.Warn("Tool call failed", logging.Tool(name), "error", result.Err, "duration", duration)
	} else {
		invocation.CompleteSuccess()
		instrumentation.SetSpanSuccess(span)
		d.logger.Info("Tool call completed", logging.Tool(name), "duration", duration)
	}

	if d.provider != nil {
		d.provider.Metrics().RecordToolCall(ctx, label, status, duration)
		d.provider.AuditLogger().LogToolInvocation(invocation)
	}

	return result
}

func (d *Dispatcher) run(ctx context.Context, desc Descriptor, args Args) Result {
	if err := args.Validate(desc.Args); err != nil {
		return Failure(err.Error())
	}

	if refused := CheckMutatingOperation(d.readOnly, desc); refused != nil {
		return *refused
	}

	value, err := d.invoke(ctx, desc, args)
	if err != nil {
		return Failure(err.Error())
	}
	return Success(value)
}

// invoke runs the handler, turning a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, desc Descriptor, args Args) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool handler panicked", logging.Tool(string(desc.Name)), "panic", r)
			value, err = nil, fmt.Errorf("internal error in %s: %v", desc.Name, r)
		}
	}()

	if d.backend == nil || d.backend.Operations == nil || d.backend.Cluster == nil {
		return nil, errors.New("proxmox client is not configured")
	}
	return desc.Handler(ctx, d.backend, args)
}
