package cluster

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// DefaultClusterName is reported when the status payload carries no name.
const DefaultClusterName = "Proxmox Cluster"

// Summary is the cluster health and capacity overview.
type Summary struct {
	Name            string         `json:"name"`
	Version         *int64         `json:"version"`
	Nodes           NodeTotals     `json:"nodes"`
	Resources       ResourceTotals `json:"resources"`
	VirtualMachines UnitCounts     `json:"virtual_machines"`
	Containers      UnitCounts     `json:"containers"`
	Quorate         bool           `json:"quorate"`
}

// NodeTotals counts cluster members.
type NodeTotals struct {
	Total   int          `json:"total"`
	Online  int          `json:"online"`
	Details []NodeDetail `json:"details"`
}

// NodeDetail is one member's live usage.
type NodeDetail struct {
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	CPUUsage  float64 `json:"cpu_usage"`
	Memory    int64   `json:"memory"`
	MaxMemory int64   `json:"max_memory"`
	Disk      int64   `json:"disk"`
	MaxDisk   int64   `json:"max_disk"`
	Uptime    int64   `json:"uptime"`
}

// ResourceTotals sums capacity over every node.
type ResourceTotals struct {
	CPU     CPUTotals   `json:"cpu"`
	Memory  UsageTotals `json:"memory"`
	Storage UsageTotals `json:"storage"`
}

// CPUTotals is the cluster core count.
type CPUTotals struct {
	TotalCores int64 `json:"total_cores"`
}

// UsageTotals is a used/max pair plus the derived free amount.
type UsageTotals struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

// UnitCounts splits guests by runtime state. Stopped is everything not running.
type UnitCounts struct {
	Total   int `json:"total"`
	Running int `json:"running"`
	Stopped int `json:"stopped"`
}

// Summary combines cluster status with node and guest resource listings. The
// three reads are independent and run concurrently; any failure fails the call.
func (a *Aggregator) Summary(ctx context.Context) (*Summary, error) {
	ctx, span := instrumentation.StartFanoutSpan(ctx, "cluster_status")
	defer span.End()

	var (
		status []proxmox.ClusterStatusEntry
		nodes  []proxmox.Resource
		guests []proxmox.Resource
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		status, err = proxmox.GetInto[[]proxmox.ClusterStatusEntry](gctx, a.client, "/cluster/status", nil)
		if err != nil {
			return fmt.Errorf("reading cluster status: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		nodes, err = proxmox.GetInto[[]proxmox.Resource](gctx, a.client, "/cluster/resources", url.Values{"type": {"node"}})
		if err != nil {
			return fmt.Errorf("listing node resources: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		guests, err = proxmox.GetInto[[]proxmox.Resource](gctx, a.client, "/cluster/resources", url.Values{"type": {"vm"}})
		if err != nil {
			return fmt.Errorf("listing guest resources: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	return summarize(status, nodes, guests), nil
}

func summarize(status []proxmox.ClusterStatusEntry, nodes, guests []proxmox.Resource) *Summary {
	s := &Summary{
		Name:    DefaultClusterName,
		Quorate: true,
		Nodes:   NodeTotals{Details: []NodeDetail{}},
	}

	if entry, ok := clusterEntry(status); ok {
		if entry.Name != "" {
			s.Name = entry.Name
		}
		if entry.Version != nil {
			v := entry.Version.Int64()
			s.Version = &v
		}
		if entry.Quorate != nil && *entry.Quorate == 0 {
			s.Quorate = false
		}
	}

	for _, n := range nodes {
		if n.Type != "node" {
			continue
		}
		s.Resources.CPU.TotalCores += n.MaxCPU.Int64()
		s.Resources.Memory.Total += n.MaxMem.Int64()
		s.Resources.Memory.Used += n.Mem.Int64()
		s.Resources.Storage.Total += n.MaxDisk.Int64()
		s.Resources.Storage.Used += n.Disk.Int64()
		if n.Status == "online" {
			s.Nodes.Online++
		}

		status := n.Status
		if status == "" {
			status = "unknown"
		}
		s.Nodes.Details = append(s.Nodes.Details, NodeDetail{
			Name:      n.Node,
			Status:    status,
			CPUUsage:  n.CPU,
			Memory:    n.Mem.Int64(),
			MaxMemory: n.MaxMem.Int64(),
			Disk:      n.Disk.Int64(),
			MaxDisk:   n.MaxDisk.Int64(),
			Uptime:    n.Uptime.Int64(),
		})
	}
	s.Nodes.Total = len(s.Nodes.Details)
	s.Resources.Memory.Free = s.Resources.Memory.Total - s.Resources.Memory.Used
	s.Resources.Storage.Free = s.Resources.Storage.Total - s.Resources.Storage.Used

	for _, g := range guests {
		var counts *UnitCounts
		switch proxmox.Kind(g.Type) {
		case proxmox.KindVM:
			counts = &s.VirtualMachines
		case proxmox.KindContainer:
			counts = &s.Containers
		default:
			continue
		}
		counts.Total++
		if g.Status == "running" {
			counts.Running++
		}
	}
	s.VirtualMachines.Stopped = s.VirtualMachines.Total - s.VirtualMachines.Running
	s.Containers.Stopped = s.Containers.Total - s.Containers.Running

	return s
}

// clusterEntry picks the entry describing the cluster itself, falling back
// to the first entry on standalone nodes where no such entry exists.
func clusterEntry(status []proxmox.ClusterStatusEntry) (proxmox.ClusterStatusEntry, bool) {
	for _, e := range status {
		if e.Type == "cluster" {
			return e, true
		}
	}
	if len(status) > 0 {
		return status[0], true
	}
	return proxmox.ClusterStatusEntry{}, false
}
