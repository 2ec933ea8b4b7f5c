package operations

import (
	"context"
	"fmt"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// FirewallStatus is the firewall configuration of a node or VM.
type FirewallStatus struct {
	Target    string      `json:"target"`
	Enabled   int64       `json:"enabled"`
	PolicyIn  string      `json:"policy_in"`
	PolicyOut string      `json:"policy_out"`
	LogLevel  string      `json:"log_level"`
	Rules     []RuleEntry `json:"rules"`
}

// RuleEntry is one firewall rule with upstream omissions filled in.
type RuleEntry struct {
	Pos     int64  `json:"pos"`
	Type    string `json:"type"`
	Action  string `json:"action"`
	Enable  int64  `json:"enable"`
	Source  string `json:"source"`
	Dest    string `json:"dest"`
	Proto   string `json:"proto"`
	DPort   string `json:"dport"`
	SPort   string `json:"sport"`
	Comment string `json:"comment"`
}

// FirewallStatus reads firewall options and rules. A zero vmid targets the
// node firewall, anything else the VM's.
func (o *Operations) FirewallStatus(ctx context.Context, node string, vmid int64) (*FirewallStatus, error) {
	base := []string{"nodes", node}
	target := "Node " + node
	if vmid != 0 {
		base = append(base, string(proxmox.KindVM), fmt.Sprint(vmid))
		target = fmt.Sprintf("VM %d", vmid)
	}

	options, err := proxmox.GetInto[proxmox.FirewallOptions](ctx, o.client,
		proxmox.Path(append(base, "firewall", "options")...), nil)
	if err != nil {
		return nil, err
	}
	rules, err := proxmox.GetInto[[]proxmox.FirewallRule](ctx, o.client,
		proxmox.Path(append(base, "firewall", "rules")...), nil)
	if err != nil {
		return nil, err
	}

	fs := &FirewallStatus{
		Target:    target,
		PolicyIn:  orDefault(options.PolicyIn, "ACCEPT"),
		PolicyOut: orDefault(options.PolicyOut, "ACCEPT"),
		LogLevel:  orDefault(options.LogLevelIn, "nolog"),
		Rules:     make([]RuleEntry, 0, len(rules)),
	}
	if options.Enable != nil {
		fs.Enabled = options.Enable.Int64()
	}

	for _, r := range rules {
		entry := RuleEntry{
			Pos:     r.Pos.Int64(),
			Type:    r.Type,
			Action:  r.Action,
			Enable:  1,
			Source:  orDefault(r.Source, "any"),
			Dest:    orDefault(r.Dest, "any"),
			Proto:   orDefault(r.Proto, "any"),
			DPort:   r.DPort,
			SPort:   r.SPort,
			Comment: r.Comment,
		}
		if r.Enable != nil {
			entry.Enable = r.Enable.Int64()
		}
		fs.Rules = append(fs.Rules, entry)
	}
	return fs, nil
}
