package tools

import (
	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// guestKinds maps tool names to the guest kind they target, for audit records.
var guestKinds = func() map[ToolName]proxmox.Kind {
	m := make(map[ToolName]proxmox.Kind)
	for _, n := range []guestNames{vmNames, containerNames} {
		for _, name := range []ToolName{n.status, n.start, n.stop, n.reboot, n.exec, n.snapshot, n.snapshots} {
			m[name] = n.kind
		}
	}
	m[GetFirewallStatus] = proxmox.KindVM
	return m
}()

// extractAuditInfoFromArgs copies the target of a call into the invocation
// record. Arguments are read loosely since this runs before validation.
func extractAuditInfoFromArgs(invocation *instrumentation.ToolInvocation, name ToolName, args Args) {
	node, _ := args["node"].(string)
	vmid, hasVMID := toInt64(args["vmid"])

	kind := ""
	if hasVMID {
		if k, ok := guestKinds[name]; ok {
			kind = string(k)
		}
		if name == GetVMNetwork {
			kind = string(proxmox.KindVM)
			if k, err := proxmox.ParseKind(args.String("vm_type")); err == nil {
				kind = string(k)
			}
		}
	}

	if node != "" || hasVMID {
		invocation.WithTarget(node, vmid, kind)
	}
	if storage, ok := args["storage"].(string); ok && storage != "" {
		invocation.WithStorage(storage)
	}
}
