package tools

// ToolName identifies one tool in the catalogue.
type ToolName string

const (
	GetNodes      ToolName = "get_nodes"
	GetNodeStatus ToolName = "get_node_status"

	GetVMs                  ToolName = "get_vms"
	GetContainers           ToolName = "get_containers"
	GetVMStatus             ToolName = "get_vm_status"
	GetContainerStatus      ToolName = "get_container_status"
	StartVM                 ToolName = "start_vm"
	StopVM                  ToolName = "stop_vm"
	RebootVM                ToolName = "reboot_vm"
	StartContainer          ToolName = "start_container"
	StopContainer           ToolName = "stop_container"
	RebootContainer         ToolName = "reboot_container"
	ExecuteVMCommand        ToolName = "execute_vm_command"
	ExecuteContainerCommand ToolName = "execute_container_command"
	CreateVMSnapshot        ToolName = "create_vm_snapshot"
	CreateContainerSnapshot ToolName = "create_container_snapshot"
	ListVMSnapshots         ToolName = "list_vm_snapshots"
	ListContainerSnapshots  ToolName = "list_container_snapshots"
	ListTemplates           ToolName = "list_templates"
	GetVMNetwork            ToolName = "get_vm_network"

	GetStorage        ToolName = "get_storage"
	GetStorageDetails ToolName = "get_storage_details"
	GetBackups        ToolName = "get_backups"

	GetClusterStatus ToolName = "get_cluster_status"
	GetTaskStatus    ToolName = "get_task_status"
	GetRecentTasks   ToolName = "get_recent_tasks"
	GetClusterLog    ToolName = "get_cluster_log"

	GetUsers  ToolName = "get_users"
	GetGroups ToolName = "get_groups"
	GetRoles  ToolName = "get_roles"

	GetFirewallStatus ToolName = "get_firewall_status"
)

// AllToolNames lists every tool the catalogue must provide.
var AllToolNames = []ToolName{
	GetNodes, GetNodeStatus,
	GetVMs, GetContainers, GetVMStatus, GetContainerStatus,
	StartVM, StopVM, RebootVM, StartContainer, StopContainer, RebootContainer,
	ExecuteVMCommand, ExecuteContainerCommand,
	CreateVMSnapshot, CreateContainerSnapshot, ListVMSnapshots, ListContainerSnapshots,
	GetStorage, GetStorageDetails, GetBackups,
	GetClusterStatus, GetTaskStatus, GetRecentTasks,
	GetUsers, GetGroups, GetRoles,
	GetClusterLog, ListTemplates, GetVMNetwork, GetFirewallStatus,
}

func (n ToolName) String() string {
	return string(n)
}
