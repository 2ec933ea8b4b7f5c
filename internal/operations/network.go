package operations

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// NetworkConfig is the network view of one guest. Interfaces are parsed from
// the netN configuration keys. AgentNetwork is only meaningful for VMs; it
// encodes as null when the guest agent gave no answer and is left out
// entirely for containers.
type NetworkConfig struct {
	VMID         int64
	Node         string
	Type         proxmox.Kind
	Interfaces   []map[string]any
	AgentNetwork json.RawMessage
}

// MarshalJSON implements json.Marshaler.
func (n NetworkConfig) MarshalJSON() ([]byte, error) {
	interfaces := n.Interfaces
	if interfaces == nil {
		interfaces = []map[string]any{}
	}
	out := map[string]any{
		"vmid":       n.VMID,
		"node":       n.Node,
		"type":       n.Type,
		"interfaces": interfaces,
	}
	if n.Type == proxmox.KindVM {
		var agent json.RawMessage
		if !proxmox.IsNull(n.AgentNetwork) {
			agent = n.AgentNetwork
		}
		out["agent_network"] = agent
	}
	return json.Marshal(out)
}

// NetworkConfig reads a guest's configuration and, for VMs, asks the guest
// agent for live interface addresses.
func (o *Operations) NetworkConfig(ctx context.Context, kind proxmox.Kind, node string, vmid int64) (*NetworkConfig, error) {
	config, err := proxmox.GetInto[map[string]json.RawMessage](ctx, o.client, guestPath(kind, node, vmid, "config"), nil)
	if err != nil {
		return nil, err
	}

	nc := &NetworkConfig{VMID: vmid, Node: node, Type: kind, Interfaces: parseInterfaces(config)}
	if kind == proxmox.KindVM {
		nc.AgentNetwork = o.agentInterfaces(ctx, node, vmid)
	}
	return nc, nil
}

func (o *Operations) agentInterfaces(ctx context.Context, node string, vmid int64) json.RawMessage {
	raw, err := o.client.Get(ctx, guestPath(proxmox.KindVM, node, vmid, "agent", "network-get-interfaces"), nil)
	if err != nil {
		o.logger.Debug("guest agent network query failed", logging.Node(node), logging.VMID(vmid), logging.SanitizedErr(err))
		return nil
	}
	if _, err := rawOr(raw, ErrNoStatusData); err != nil {
		return nil
	}

	var reply struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil
	}
	if proxmox.IsNull(reply.Result) {
		return json.RawMessage("[]")
	}
	return reply.Result
}

// parseInterfaces turns netN entries such as
// "virtio=BC:24:11:00:00:01,bridge=vmbr0,firewall=1" into maps holding the
// key, the raw string and every key=value pair. Keys are visited in sorted
// order so output is stable across calls.
func parseInterfaces(config map[string]json.RawMessage) []map[string]any {
	keys := make([]string, 0, len(config))
	for k := range config {
		if strings.HasPrefix(k, "net") {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	interfaces := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		iface := map[string]any{"name": k}

		var value string
		if err := json.Unmarshal(config[k], &value); err != nil {
			iface["config"] = config[k]
			interfaces = append(interfaces, iface)
			continue
		}
		iface["config"] = value
		for _, part := range strings.Split(value, ",") {
			if key, val, ok := strings.Cut(part, "="); ok {
				iface[key] = val
			}
		}
		interfaces = append(interfaces, iface)
	}
	return interfaces
}
