package instrumentation

import (
	"strings"
)

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// Proxmox API paths embed node names, guest ids, storage ids and task UPIDs.
// Recording raw paths as labels creates one series per guest per node. Always
// use NormalizeEndpoint when recording Proxmox request metrics.

// placeholders maps a collection segment to the placeholder that replaces the
// identifier following it.
var placeholders = map[string]string{
	"nodes":    "{node}",
	"qemu":     "{vmid}",
	"lxc":      "{vmid}",
	"storage":  "{storage}",
	"snapshot": "{snapshot}",
	"tasks":    "{upid}",
	"users":    "{userid}",
	"groups":   "{groupid}",
	"roles":    "{roleid}",
	"rules":    "{pos}",
}

// NormalizeEndpoint replaces identifiers in a Proxmox API path with placeholders.
//
// Example:
//
//	NormalizeEndpoint("/nodes/pve1/qemu/100/status/start")  // "/nodes/{node}/qemu/{vmid}/status/start"
//	NormalizeEndpoint("/cluster/resources")                 // "/cluster/resources"
//	NormalizeEndpoint("/nodes/pve1/storage/local/content")  // "/nodes/{node}/storage/{storage}/content"
func NormalizeEndpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		return "/"
	}

	for i := 1; i < len(segments); i++ {
		placeholder, ok := placeholders[segments[i-1]]
		if !ok {
			continue
		}
		segments[i] = placeholder
		i++
	}

	return "/" + strings.Join(segments, "/")
}

// EndpointNode returns the node name embedded in a Proxmox API path, or "" for
// cluster-level paths.
//
// Example:
//
//	EndpointNode("/nodes/pve1/qemu")    // "pve1"
//	EndpointNode("/cluster/resources")  // ""
func EndpointNode(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) >= 2 && segments[0] == "nodes" {
		return segments[1]
	}
	return ""
}

// ExtractRealm extracts the authentication realm from a Proxmox user id.
// The realm is used in place of the full user id to keep cardinality low.
//
// Example:
//
//	ExtractRealm("root@pam")         // "pam"
//	ExtractRealm("ops@pve")          // "pve"
//	ExtractRealm("invalid")          // "unknown"
//	ExtractRealm("")                 // "unknown"
func ExtractRealm(userID string) string {
	if userID == "" {
		return "unknown"
	}

	parts := strings.Split(userID, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}
