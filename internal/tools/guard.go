package tools

import (
	"context"
	"errors"
	"time"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/server"
)

const degradedDetails = "Please check environment variables and server configuration"

// Guard answers every call with the captured startup failure while the server
// is degraded, and forwards to next otherwise. The startup outcome is fixed at
// construction; a degraded guard never retries and never reaches the network.
// Refusals are logged, counted and audited like any failed call.
type Guard struct {
	startup server.Startup
	next    Caller
	logger  logging.Logger

	provider  *instrumentation.Provider
	auditUser string
}

var _ Caller = (*Guard)(nil)

// NewGuard wraps next with the startup outcome. provider may be nil.
func NewGuard(startup server.Startup, next Caller, logger logging.Logger, provider *instrumentation.Provider) *Guard {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Guard{startup: startup, next: next, logger: logger, provider: provider}
}

// Call implements Caller.
func (g *Guard) Call(ctx context.Context, name string, args map[string]any) Result {
	if g.startup.Ready() && g.next != nil {
		return g.next.Call(ctx, name, args)
	}

	start := time.Now()
	label := name
	if _, known := DefaultRegistry().Lookup(name); !known {
		label = unknownToolLabel
	}

	result := Result{
		Err:     "Server initialization failed: " + g.startup.Reason,
		Details: degradedDetails,
	}
	g.logger.Info("Refusing tool call in degraded mode", logging.Tool(name), "reason", g.startup.Reason)

	if g.provider != nil {
		invocation := instrumentation.NewToolInvocation(label).WithSpanContext(ctx)
		if g.auditUser != "" {
			invocation.WithUser(g.auditUser)
		}
		extractAuditInfoFromArgs(invocation, ToolName(name), Args(args))
		invocation.CompleteWithError(errors.New(result.Err))

		g.provider.Metrics().RecordToolCall(ctx, label, instrumentation.StatusError, time.Since(start))
		g.provider.AuditLogger().LogToolInvocation(invocation)
	}
	return result
}

// NewCaller returns the Caller every transport should use: a Dispatcher over
// sc behind a Guard on sc's startup outcome.
func NewCaller(sc *server.ServerContext, opts ...DispatcherOption) Caller {
	startup := sc.Startup()
	if !startup.Ready() {
		settings := &Dispatcher{}
		for _, opt := range opts {
			opt(settings)
		}
		g := NewGuard(startup, nil, sc.Logger(), sc.InstrumentationProvider())
		g.auditUser = settings.auditUser
		return g
	}
	return NewGuard(startup, NewDispatcher(sc, opts...), sc.Logger(), sc.InstrumentationProvider())
}
