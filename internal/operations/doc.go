// Package operations implements the single-target reads, state changes and
// derived views exposed as tools: node and guest status, power actions,
// in-guest command execution, snapshots, storage and backups, access control
// listings, the cluster log, guest network configuration and firewall state.
//
// Every method returns a JSON-encodable value or an error. Errors are either
// *proxmox.TransportError from the upstream API or *ValidationError for bad
// caller input; the tool dispatcher turns both into an error envelope.
//
// Power actions and snapshot creation are fire-and-forget: the returned
// Accepted carries the upstream task identifier and callers poll TaskStatus
// for the outcome.
package operations
