// Package logging provides structured logging utilities for the mcp-proxmox application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction with a level and a text or JSON format
//   - The Logger interface injected into every component as its diagnostic sink
//   - Host/URL sanitization so cluster addresses do not leak into logs
//   - Credential masking for API tokens
//
// # Usage Patterns
//
//	base, _ := logging.New(os.Stderr, slog.LevelInfo, logging.FormatText)
//	logger := logging.NewSlogAdapter(base)
//	logger.Info("dispatching tool call", logging.Tool("get_vms"))
//
// Logs always go to stderr. Stdout is reserved for the stdio MCP transport.
package logging
