package operations

import (
	"context"
	"fmt"
	"net/url"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// SnapshotList is the result of ListSnapshots.
type SnapshotList struct {
	Snapshots []proxmox.Snapshot `json:"snapshots"`
}

// CreateSnapshot asks the cluster to snapshot a guest. A nil description is
// left out of the request body entirely.
func (o *Operations) CreateSnapshot(ctx context.Context, kind proxmox.Kind, node string, vmid int64, name string, description *string) (*Accepted, error) {
	form := url.Values{"snapname": {name}}
	if description != nil {
		form.Set("description", *description)
	}
	msg := fmt.Sprintf("Snapshot '%s' creation initiated for %s %d", name, kind.Noun(), vmid)
	return o.post(ctx, guestPath(kind, node, vmid, "snapshot"), form, msg)
}

// ListSnapshots lists the snapshots of a guest, including the "current" pseudo-entry.
func (o *Operations) ListSnapshots(ctx context.Context, kind proxmox.Kind, node string, vmid int64) (*SnapshotList, error) {
	snaps, err := proxmox.GetInto[[]proxmox.Snapshot](ctx, o.client, guestPath(kind, node, vmid, "snapshot"), nil)
	if err != nil {
		return nil, err
	}
	if snaps == nil {
		snaps = []proxmox.Snapshot{}
	}
	return &SnapshotList{Snapshots: snaps}, nil
}
