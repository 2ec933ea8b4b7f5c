package operations

import (
	"context"
	"encoding/json"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// NodeList is the result of Nodes.
type NodeList struct {
	Nodes []proxmox.Node `json:"nodes"`
	Count int            `json:"count"`
}

// Nodes lists cluster members as reported by GET /nodes.
func (o *Operations) Nodes(ctx context.Context) (*NodeList, error) {
	nodes, err := proxmox.GetInto[[]proxmox.Node](ctx, o.client, "/nodes", nil)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []proxmox.Node{}
	}
	return &NodeList{Nodes: nodes, Count: len(nodes)}, nil
}

// NodeStatus returns the raw status payload of node.
func (o *Operations) NodeStatus(ctx context.Context, node string) (json.RawMessage, error) {
	raw, err := o.client.Get(ctx, proxmox.Path("nodes", node, "status"), nil)
	if err != nil {
		return nil, err
	}
	return rawOr(raw, ErrNoStatusData)
}
