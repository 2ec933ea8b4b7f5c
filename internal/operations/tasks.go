package operations

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// TaskStatus returns the raw status of the task identified by upid. A UPID
// with fewer than three colon-separated fields is rejected without a request.
func (o *Operations) TaskStatus(ctx context.Context, node, upid string) (json.RawMessage, error) {
	if len(strings.Split(upid, ":")) < 3 {
		return nil, &ValidationError{Field: "upid", Message: "Invalid UPID format"}
	}
	raw, err := o.client.Get(ctx, proxmox.Path("nodes", node, "tasks", upid, "status"), nil)
	if err != nil {
		return nil, err
	}
	return rawOr(raw, ErrNoTaskStatus)
}
