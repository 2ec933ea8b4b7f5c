package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// PowerAction is a guest state transition.
type PowerAction string

const (
	ActionStart  PowerAction = "start"
	ActionStop   PowerAction = "stop"
	ActionReboot PowerAction = "reboot"
)

// endpoint is the status sub-resource that performs the action. Stop is a
// graceful guest shutdown, not a hard power-off.
func (a PowerAction) endpoint() (string, error) {
	switch a {
	case ActionStart:
		return "start", nil
	case ActionStop:
		return "shutdown", nil
	case ActionReboot:
		return "reboot", nil
	}
	return "", fmt.Errorf("unknown power action %q", string(a))
}

// UnitStatus returns the raw current status of a guest.
func (o *Operations) UnitStatus(ctx context.Context, kind proxmox.Kind, node string, vmid int64) (json.RawMessage, error) {
	raw, err := o.client.Get(ctx, guestPath(kind, node, vmid, "status", "current"), nil)
	if err != nil {
		return nil, err
	}
	return rawOr(raw, ErrNoStatusData)
}

// Power dispatches action to a guest and returns once the cluster has
// accepted the task.
func (o *Operations) Power(ctx context.Context, kind proxmox.Kind, node string, vmid int64, action PowerAction) (*Accepted, error) {
	endpoint, err := action.endpoint()
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("%s %d %s initiated on node %s", kind.Label(), vmid, action, node)
	return o.post(ctx, guestPath(kind, node, vmid, "status", endpoint), nil, msg)
}

// Start boots a guest.
func (o *Operations) Start(ctx context.Context, kind proxmox.Kind, node string, vmid int64) (*Accepted, error) {
	return o.Power(ctx, kind, node, vmid, ActionStart)
}

// Stop shuts a guest down gracefully.
func (o *Operations) Stop(ctx context.Context, kind proxmox.Kind, node string, vmid int64) (*Accepted, error) {
	return o.Power(ctx, kind, node, vmid, ActionStop)
}

// Reboot restarts a guest.
func (o *Operations) Reboot(ctx context.Context, kind proxmox.Kind, node string, vmid int64) (*Accepted, error) {
	return o.Power(ctx, kind, node, vmid, ActionReboot)
}

// ExecResult is the outcome of a command run inside a guest.
type ExecResult struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	ExitCode int64  `json:"exit_code"`
}

type execReply struct {
	OutData  string      `json:"out-data"`
	ExitCode proxmox.Int `json:"exitcode"`
}

// Execute runs command inside a guest. VMs go through the QEMU guest agent;
// an empty reply means no agent answered and is an error.
func (o *Operations) Execute(ctx context.Context, kind proxmox.Kind, node string, vmid int64, command string) (*ExecResult, error) {
	path, noReply := guestPath(kind, node, vmid, "exec"), ErrNoContainerReply
	if kind == proxmox.KindVM {
		path, noReply = guestPath(kind, node, vmid, "agent", "exec"), ErrNoVMAgentReply
	}

	raw, err := o.client.Post(ctx, path, url.Values{"command": {command}})
	if err != nil {
		return nil, err
	}
	if proxmox.IsNull(raw) {
		return nil, noReply
	}

	reply, err := proxmox.Decode[execReply](raw)
	if err != nil {
		return nil, err
	}
	return &ExecResult{Success: true, Output: reply.OutData, ExitCode: reply.ExitCode.Int64()}, nil
}
