package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/giantswarm/mcp-proxmox/internal/cluster"
	"github.com/giantswarm/mcp-proxmox/internal/operations"
)

// Backend is what handlers run against.
type Backend struct {
	Operations *operations.Operations
	Cluster    *cluster.Aggregator
}

// Handler executes one tool call with validated arguments.
type Handler func(ctx context.Context, b *Backend, args Args) (any, error)

// Descriptor is the static definition of a tool.
type Descriptor struct {
	Name        ToolName
	Description string
	Args        []ArgSpec

	// Action names the class of change a mutating tool makes ("power",
	// "exec", "snapshot"). Empty for read-only tools.
	Action string

	Handler Handler
}

// Mutating reports whether the tool changes cluster state.
func (d Descriptor) Mutating() bool {
	return d.Action != ""
}

// Registry is an immutable catalogue of descriptors.
type Registry struct {
	byName  map[ToolName]*Descriptor
	ordered []*Descriptor
}

// NewRegistry builds a registry, rejecting duplicate names and descriptors
// without a handler.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[ToolName]*Descriptor, len(descs))}
	for i := range descs {
		d := descs[i]
		if d.Handler == nil {
			return nil, fmt.Errorf("tool %s has no handler", d.Name)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("tool %s registered twice", d.Name)
		}
		r.byName[d.Name] = &d
		r.ordered = append(r.ordered, &d)
	}
	return r, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(catalog()...)
	if err != nil {
		panic(err)
	}
	return r
})

// DefaultRegistry returns the process-wide catalogue of Proxmox tools.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Lookup finds a descriptor by its wire name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[ToolName(name)]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Descriptors returns every descriptor in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.ordered))
	for _, d := range r.ordered {
		out = append(out, *d)
	}
	return out
}

// Len is the number of registered tools.
func (r *Registry) Len() int {
	return len(r.ordered)
}
