package cluster

import (
	"context"
	"encoding/json"

	"github.com/giantswarm/mcp-proxmox/internal/fanout"
	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// ComputeUnit is a VM or container annotated with its owning node.
type ComputeUnit struct {
	proxmox.ComputeUnit
	Node string       `json:"node"`
	Type proxmox.Kind `json:"type"`
}

// ComputeUnitList is the merged result of a cluster-wide guest listing. It
// encodes as {"vms"|"containers": [...], "total", "nodes_checked", "partial_failures"?}.
type ComputeUnitList struct {
	Kind            proxmox.Kind
	Units           []ComputeUnit
	NodesChecked    int
	PartialFailures []fanout.Failure
}

// MarshalJSON implements json.Marshaler.
func (l ComputeUnitList) MarshalJSON() ([]byte, error) {
	units := l.Units
	if units == nil {
		units = []ComputeUnit{}
	}
	out := map[string]any{
		l.Kind.Plural(): units,
		"total":         len(units),
		"nodes_checked": l.NodesChecked,
	}
	if len(l.PartialFailures) > 0 {
		out["partial_failures"] = l.PartialFailures
	}
	return json.Marshal(out)
}

// ListComputeUnits lists every guest of kind on every node.
func (a *Aggregator) ListComputeUnits(ctx context.Context, kind proxmox.Kind) (*ComputeUnitList, error) {
	operation := "list_" + kind.Plural()
	ctx, span := instrumentation.StartFanoutSpan(ctx, operation)

	nodes, err := a.NodeNames(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		span.End()
		return nil, err
	}

	results := fanout.Run(ctx, a.concurrency, nodes, func(ctx context.Context, node string) ([]proxmox.ComputeUnit, error) {
		return proxmox.GetInto[[]proxmox.ComputeUnit](ctx, a.client, proxmox.Path("nodes", node, string(kind)), nil)
	})

	list := &ComputeUnitList{Kind: kind, Units: []ComputeUnit{}, NodesChecked: len(nodes)}
	for i, res := range results {
		if res.Err != nil {
			list.PartialFailures = append(list.PartialFailures,
				a.ReportFailure(ctx, operation, fanout.Failure{Node: nodes[i]}, res.Err))
			continue
		}
		for _, u := range res.Value {
			list.Units = append(list.Units, ComputeUnit{ComputeUnit: u, Node: nodes[i], Type: kind})
		}
	}

	endFanoutSpan(span, len(nodes), len(list.PartialFailures))
	return list, nil
}

// Template is a VM or container marked as a template.
type Template struct {
	VMID     int64        `json:"vmid"`
	Name     string       `json:"name"`
	Node     string       `json:"node"`
	Type     proxmox.Kind `json:"type"`
	DiskSize int64        `json:"disk_size"`
	Memory   int64        `json:"memory"`
	CPUs     int64        `json:"cpus"`
}

// TemplateList is the result of ListTemplates.
type TemplateList struct {
	Templates       []Template       `json:"templates"`
	Count           int              `json:"count"`
	PartialFailures []fanout.Failure `json:"partial_failures,omitempty"`
}

type nodeKind struct {
	node string
	kind proxmox.Kind
}

// ListTemplates finds templates across every node and both guest kinds. A
// failing node/kind slice is omitted and reported.
func (a *Aggregator) ListTemplates(ctx context.Context) (*TemplateList, error) {
	const operation = "list_templates"
	ctx, span := instrumentation.StartFanoutSpan(ctx, operation)

	nodes, err := a.NodeNames(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		span.End()
		return nil, err
	}

	pairs := make([]nodeKind, 0, 2*len(nodes))
	for _, n := range nodes {
		pairs = append(pairs, nodeKind{n, proxmox.KindVM}, nodeKind{n, proxmox.KindContainer})
	}

	results := fanout.Run(ctx, a.concurrency, pairs, func(ctx context.Context, p nodeKind) ([]proxmox.ComputeUnit, error) {
		return proxmox.GetInto[[]proxmox.ComputeUnit](ctx, a.client, proxmox.Path("nodes", p.node, string(p.kind)), nil)
	})

	list := &TemplateList{Templates: []Template{}}
	for i, res := range results {
		p := pairs[i]
		if res.Err != nil {
			list.PartialFailures = append(list.PartialFailures,
				a.ReportFailure(ctx, operation, fanout.Failure{Node: p.node, Kind: string(p.kind)}, res.Err))
			continue
		}
		for _, u := range res.Value {
			if !u.IsTemplate() {
				continue
			}
			list.Templates = append(list.Templates, newTemplate(u, p.node, p.kind))
		}
	}
	list.Count = len(list.Templates)

	endFanoutSpan(span, len(nodes), len(list.PartialFailures))
	return list, nil
}

func newTemplate(u proxmox.ComputeUnit, node string, kind proxmox.Kind) Template {
	t := Template{
		VMID:     u.VMID.Int64(),
		Name:     u.Name,
		Node:     node,
		Type:     kind,
		DiskSize: u.MaxDisk.Int64(),
		Memory:   u.MaxMem.Int64(),
		CPUs:     u.CPUs.Int64(),
	}
	if t.Name == "" {
		t.Name = "unnamed"
	}
	if t.CPUs == 0 {
		t.CPUs = 1
	}
	return t
}
