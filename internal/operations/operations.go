package operations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/giantswarm/mcp-proxmox/internal/cluster"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// Messages returned verbatim to tool callers when the upstream answers with an
// empty payload.
var (
	ErrNoStatusData     = errors.New("No status data returned")    //nolint:staticcheck // ST1005: caller-facing text
	ErrNoTaskStatus     = errors.New("No task status returned")    //nolint:staticcheck // ST1005: caller-facing text
	ErrNoVMAgentReply   = errors.New("No response from VM agent")  //nolint:staticcheck // ST1005: caller-facing text
	ErrNoContainerReply = errors.New("No response from container") //nolint:staticcheck // ST1005: caller-facing text
)

// ValidationError reports malformed caller input detected before any
// upstream request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Operations runs single-target requests and the fan-outs that are not
// plain guest listings.
type Operations struct {
	client     proxmox.Client
	aggregator *cluster.Aggregator
	logger     logging.Logger
}

// Option configures Operations.
type Option func(*Operations)

// WithLogger sets the diagnostic logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Operations) {
		o.logger = logger
	}
}

// New returns Operations reading and writing through client. The aggregator
// provides node discovery and partial-failure reporting for Backups.
func New(client proxmox.Client, aggregator *cluster.Aggregator, opts ...Option) *Operations {
	o := &Operations{client: client, aggregator: aggregator}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.DefaultLogger()
	}
	if o.aggregator == nil {
		o.aggregator = cluster.New(client, cluster.WithLogger(o.logger))
	}
	return o
}

// Accepted acknowledges an asynchronous upstream task. TaskID is the UPID the
// cluster assigned, passed through as received.
type Accepted struct {
	Success bool            `json:"success"`
	TaskID  json.RawMessage `json:"task_id"`
	Message string          `json:"message"`
}

func (o *Operations) post(ctx context.Context, path string, form url.Values, message string) (*Accepted, error) {
	raw, err := o.client.Post(ctx, path, form)
	if err != nil {
		return nil, err
	}
	if proxmox.IsNull(raw) {
		raw = json.RawMessage("null")
	}
	return &Accepted{Success: true, TaskID: raw, Message: message}, nil
}

// rawOr returns raw unless it is null or an empty object or list, in which
// case it returns empty.
func rawOr(raw json.RawMessage, empty error) (json.RawMessage, error) {
	if proxmox.IsNull(raw) {
		return nil, empty
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decoding upstream payload: %w", err)
	}
	switch v := decoded.(type) {
	case map[string]any:
		if len(v) == 0 {
			return nil, empty
		}
	case []any:
		if len(v) == 0 {
			return nil, empty
		}
	case string:
		if v == "" {
			return nil, empty
		}
	}
	return raw, nil
}

func guestPath(kind proxmox.Kind, node string, vmid int64, rest ...string) string {
	segments := append([]string{"nodes", node, string(kind), fmt.Sprint(vmid)}, rest...)
	return proxmox.Path(segments...)
}
