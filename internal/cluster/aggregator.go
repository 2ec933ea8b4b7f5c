package cluster

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-proxmox/internal/fanout"
	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// Aggregator fans queries out across every node of the cluster.
type Aggregator struct {
	client      proxmox.Client
	logger      logging.Logger
	metrics     *instrumentation.Metrics
	concurrency int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the diagnostic logger.
func WithLogger(logger logging.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMetrics records partial failures on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithConcurrency bounds the number of in-flight per-node requests.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		a.concurrency = n
	}
}

// New returns an Aggregator reading through client.
func New(client proxmox.Client, opts ...Option) *Aggregator {
	a := &Aggregator{
		client:      client,
		concurrency: fanout.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.DefaultLogger()
	}
	return a
}

// NodeNames returns the names of every cluster member, in API order.
func (a *Aggregator) NodeNames(ctx context.Context) ([]string, error) {
	nodes, err := proxmox.GetInto[[]proxmox.Node](ctx, a.client, "/nodes", nil)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Node != "" {
			names = append(names, n.Node)
		}
	}
	return names, nil
}

// Concurrency is the per-call fan-out limit.
func (a *Aggregator) Concurrency() int {
	return a.concurrency
}

// ReportFailure logs and counts a dropped fan-out key and returns its
// side-channel entry with Reason filled in.
func (a *Aggregator) ReportFailure(ctx context.Context, operation string, f fanout.Failure, err error) fanout.Failure {
	f.Reason = err.Error()
	a.logger.Warn("skipping node in cluster-wide listing",
		logging.Operation(operation),
		logging.Node(f.Node),
		logging.Kind(f.Kind),
		logging.SanitizedErr(err))
	a.metrics.RecordFanoutFailure(ctx, operation, failureKind(f))
	trace.SpanFromContext(ctx).AddEvent("partial_failure", trace.WithAttributes(
		attribute.String(instrumentation.SpanAttrNode, f.Node),
	))
	return f
}

func failureKind(f fanout.Failure) string {
	switch {
	case f.Storage != "":
		return "storage"
	case f.Kind != "":
		return "kind"
	default:
		return "node"
	}
}

func endFanoutSpan(span trace.Span, nodes, failures int) {
	span.SetAttributes(
		attribute.Int(instrumentation.SpanAttrNodesChecked, nodes),
		attribute.Int(instrumentation.SpanAttrPartialFailures, failures),
	)
	span.End()
}
