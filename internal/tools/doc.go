// Package tools maps named tool calls onto Proxmox operations.
//
// The Registry is a static catalogue of Descriptors keyed by ToolName, built
// once per process. A Dispatcher looks a call up in the registry, checks the
// arguments against the descriptor's schema, applies the read-only gate and
// invokes the handler. Every outcome, including panics, is converted to a
// Result envelope; nothing escapes as a Go error.
//
// Guard wraps a Dispatcher and short-circuits every call with the startup
// failure when the server came up Degraded. RegisterTools exposes the
// catalogue through an mcp-go server, so capability listing keeps working
// in that state.
package tools
