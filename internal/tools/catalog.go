package tools

import (
	"context"

	"github.com/giantswarm/mcp-proxmox/internal/cluster"
	"github.com/giantswarm/mcp-proxmox/internal/operations"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

const (
	actionPower    = "power"
	actionExec     = "exec"
	actionSnapshot = "snapshot"
)

func nodeArg(desc string) ArgSpec {
	return ArgSpec{Name: "node", Type: TypeString, Required: true, Description: desc}
}

func vmidArg(desc string) ArgSpec {
	return ArgSpec{Name: "vmid", Type: TypeInteger, Required: true, Description: desc}
}

// guestArgs are the node and vmid arguments shared by every single-guest tool.
func guestArgs(kind proxmox.Kind) []ArgSpec {
	if kind == proxmox.KindVM {
		return []ArgSpec{nodeArg("Node name where VM is located"), vmidArg("VM ID number")}
	}
	return []ArgSpec{nodeArg("Node name where container is located"), vmidArg("Container ID number")}
}

func catalog() []Descriptor {
	descs := []Descriptor{
		{
			Name:        GetNodes,
			Description: "List all nodes in the Proxmox cluster",
			Handler: func(ctx context.Context, b *Backend, _ Args) (any, error) {
				return b.Operations.Nodes(ctx)
			},
		},
		{
			Name:        GetNodeStatus,
			Description: "Get detailed status for a specific node",
			Args:        []ArgSpec{nodeArg("Node name (e.g., 'pve1')")},
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.NodeStatus(ctx, a.String("node"))
			},
		},
		{
			Name:        GetVMs,
			Description: "List all VMs across the cluster",
			Handler: func(ctx context.Context, b *Backend, _ Args) (any, error) {
				return b.Cluster.ListComputeUnits(ctx, proxmox.KindVM)
			},
		},
		{
			Name:        GetContainers,
			Description: "List all LXC containers across the cluster",
			Handler: func(ctx context.Context, b *Backend, _ Args) (any, error) {
				return b.Cluster.ListComputeUnits(ctx, proxmox.KindContainer)
			},
		},
	}

	descs = append(descs, guestTools(proxmox.KindVM)...)
	descs = append(descs, guestTools(proxmox.KindContainer)...)

	return append(descs,
		Descriptor{
			Name:        GetStorage,
			Description: "List storage pools in the cluster",
			Handler: func(ctx context.Context, b *Backend, _ Args) (any, error) {
				return b.Operations.Storage(ctx)
			},
		},
		Descriptor{
			Name:        GetStorageDetails,
			Description: "Get detailed information about a specific storage pool",
			Args:        []ArgSpec{{Name: "storage", Type: TypeString, Required: true, Description: "Storage pool name"}},
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.StorageDetails(ctx, a.String("storage"))
			},
		},
		Descriptor{
			Name:        GetBackups,
			Description: "List backup files in storage",
			Args: []ArgSpec{
				{Name: "storage", Type: TypeString, Description: "Optional: specific storage pool"},
				{Name: "node", Type: TypeString, Description: "Optional: specific node"},
			},
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.Backups(ctx, a.String("storage"), a.String("node"))
			},
		},
		Descriptor{
			Name:        GetClusterStatus,
			Description: "Get cluster status and health information",
			Handler: func(ctx context.Context, b *Backend, _ Args) (any, error) {
				return b.Cluster.Summary(ctx)
			},
		},
		Descriptor{
			Name:        GetTaskStatus,
			Description: "Get status of a Proxmox task",
			Args: []ArgSpec{
				nodeArg("Node where the task is running"),
				{Name: "upid", Type: TypeString, Required: true, Description: "Unique Process ID of the task"},
			},
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.TaskStatus(ctx, a.String("node"), a.String("upid"))
			},
		},
		Descriptor{
			Name:        GetRecentTasks,
			Description: "List recent tasks across the cluster",
			Args: []ArgSpec{
				{Name: "node", Type: TypeString, Description: "Optional: filter tasks by specific node"},
				{Name: "limit", Type: TypeInteger, Description: "Maximum number of tasks to return (default: 20)"},
			},
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				limit := cluster.DefaultTaskLimit
				if a.Has("limit") {
					limit = int(a.Int("limit"))
				}
				return b.Cluster.RecentTasks(ctx, a.String("node"), limit)
			},
		},
		Descriptor{
			Name:        GetUsers,
			Description: "List all users in the Proxmox cluster",
			Handler: func(ctx context.Context, b *Backend, _ Args) (any, error) {
				return b.Operations.Users(ctx)
			},
		},
		Descriptor{
			Name:        GetGroups,
			Description: "List all groups in the Proxmox cluster",
			Handler: func(ctx context.Context, b *Backend, _ Args) (any, error) {
				return b.Operations.Groups(ctx)
			},
		},
		Descriptor{
			Name:        GetRoles,
			Description: "List all roles available in the Proxmox cluster",
			Handler: func(ctx context.Context, b *Backend, _ Args) (any, error) {
				return b.Operations.Roles(ctx)
			},
		},
		Descriptor{
			Name:        GetClusterLog,
			Description: "Get recent cluster log entries",
			Args: []ArgSpec{
				{Name: "max_lines", Type: TypeInteger, Description: "Maximum number of log entries to return (default: 50)"},
			},
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.ClusterLog(ctx, int(a.Int("max_lines")))
			},
		},
		Descriptor{
			Name:        ListTemplates,
			Description: "List all VM and container templates available in the cluster",
			Handler: func(ctx context.Context, b *Backend, _ Args) (any, error) {
				return b.Cluster.ListTemplates(ctx)
			},
		},
		Descriptor{
			Name:        GetVMNetwork,
			Description: "Get network configuration for a VM or container",
			Args: []ArgSpec{
				nodeArg("Node name where VM/container is located"),
				vmidArg("VM or container ID"),
				{Name: "vm_type", Type: TypeString, Description: "Type: 'qemu' for VM, 'lxc' for container (default: qemu)"},
			},
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				kind := proxmox.KindVM
				if a.Has("vm_type") {
					k, err := proxmox.ParseKind(a.String("vm_type"))
					if err != nil {
						return nil, &operations.ValidationError{Field: "vm_type", Message: err.Error()}
					}
					kind = k
				}
				return b.Operations.NetworkConfig(ctx, kind, a.String("node"), a.Int("vmid"))
			},
		},
		Descriptor{
			Name:        GetFirewallStatus,
			Description: "Get firewall status and rules for a node or VM",
			Args: []ArgSpec{
				nodeArg("Node name"),
				{Name: "vmid", Type: TypeInteger, Description: "Optional: VM ID (if checking VM firewall)"},
			},
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.FirewallStatus(ctx, a.String("node"), a.Int("vmid"))
			},
		},
	)
}

// guestNames are the tool names and wording that differ between the VM and
// container flavours of the single-guest tools.
type guestNames struct {
	kind proxmox.Kind

	status, start, stop, reboot, exec, snapshot, snapshots ToolName

	noun    string // "VM" or "container"
	subject string // "a VM" or "a container"
	machine string // object of the power verbs
	execVia string
}

var (
	vmNames = guestNames{
		kind:   proxmox.KindVM,
		status: GetVMStatus, start: StartVM, stop: StopVM, reboot: RebootVM,
		exec: ExecuteVMCommand, snapshot: CreateVMSnapshot, snapshots: ListVMSnapshots,
		noun: "VM", subject: "a VM", machine: "a virtual machine",
		execVia: "Execute a command in a VM via QEMU guest agent",
	}
	containerNames = guestNames{
		kind:   proxmox.KindContainer,
		status: GetContainerStatus, start: StartContainer, stop: StopContainer, reboot: RebootContainer,
		exec: ExecuteContainerCommand, snapshot: CreateContainerSnapshot, snapshots: ListContainerSnapshots,
		noun: "container", subject: "a container", machine: "an LXC container",
		execVia: "Execute a command in a container",
	}
)

// guestTools declares the status, power, exec and snapshot tools for one
// guest kind.
func guestTools(kind proxmox.Kind) []Descriptor {
	n := vmNames
	if kind == proxmox.KindContainer {
		n = containerNames
	}

	args := guestArgs(kind)
	power := func(action operations.PowerAction) Handler {
		return func(ctx context.Context, b *Backend, a Args) (any, error) {
			return b.Operations.Power(ctx, kind, a.String("node"), a.Int("vmid"), action)
		}
	}
	with := func(extra ...ArgSpec) []ArgSpec {
		return append(append([]ArgSpec{}, args...), extra...)
	}

	return []Descriptor{
		{
			Name:        n.status,
			Description: "Get status and configuration for a specific " + n.noun,
			Args:        args,
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.UnitStatus(ctx, kind, a.String("node"), a.Int("vmid"))
			},
		},
		{Name: n.start, Description: "Start " + n.machine, Args: args, Action: actionPower, Handler: power(operations.ActionStart)},
		{Name: n.stop, Description: "Stop " + n.machine + " gracefully", Args: args, Action: actionPower, Handler: power(operations.ActionStop)},
		{Name: n.reboot, Description: "Reboot " + n.machine, Args: args, Action: actionPower, Handler: power(operations.ActionReboot)},
		{
			Name:        n.exec,
			Description: n.execVia,
			Args:        with(ArgSpec{Name: "command", Type: TypeString, Required: true, Description: "Command to execute in the " + n.noun}),
			Action:      actionExec,
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.Execute(ctx, kind, a.String("node"), a.Int("vmid"), a.String("command"))
			},
		},
		{
			Name:        n.snapshot,
			Description: "Create a snapshot of " + n.subject,
			Args: with(
				ArgSpec{Name: "name", Type: TypeString, Required: true, Description: "Snapshot name"},
				ArgSpec{Name: "description", Type: TypeString, Description: "Optional snapshot description"},
			),
			Action: actionSnapshot,
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.CreateSnapshot(ctx, kind, a.String("node"), a.Int("vmid"), a.String("name"), a.OptString("description"))
			},
		},
		{
			Name:        n.snapshots,
			Description: "List all snapshots for " + n.subject,
			Args:        args,
			Handler: func(ctx context.Context, b *Backend, a Args) (any, error) {
				return b.Operations.ListSnapshots(ctx, kind, a.String("node"), a.Int("vmid"))
			},
		},
	}
}
