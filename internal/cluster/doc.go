// Package cluster implements the cluster-wide read operations: those whose
// unit of truth is every node rather than one.
//
// Each operation first discovers the node list. Only a failure of that
// discovery is returned as an error. Per-node (and per-node, per-kind)
// failures afterwards are logged, counted, and reported in the result's
// partial_failures list while the remaining nodes' data is still returned.
package cluster
