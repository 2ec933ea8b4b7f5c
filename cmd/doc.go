// Package cmd provides the command-line interface for mcp-proxmox.
//
// This package implements a Cobra-based CLI with multiple subcommands:
//   - serve: Starts the MCP server (default behavior when no subcommand is provided)
//   - call: Dispatches a single tool locally and prints the result
//   - tools: Lists the tool catalogue
//   - shell: Interactive tool REPL with completion and history
//   - version: Displays the application version
//   - self-update: Updates the binary to the latest version from GitHub releases
//
// Command Structure:
//
//	mcp-proxmox [flags]                          # Starts the MCP server (default)
//	mcp-proxmox serve [flags]                    # Explicitly starts the MCP server
//	mcp-proxmox call get_vms -o table            # One-shot tool call
//	mcp-proxmox tools                            # Lists tools
//	mcp-proxmox shell                            # Interactive shell
//	mcp-proxmox version                          # Shows version information
//	mcp-proxmox self-update                      # Updates to latest release
//
// The serve command supports multiple transport options:
//   - stdio: Standard input/output (default) - for command-line integration
//   - sse: Server-Sent Events over HTTP - for web-based clients
//   - streamable-http: Streamable HTTP transport - for HTTP-based integration
//
// Connection settings are resolved per field with the precedence flag,
// PROXMOX_* environment variable, --config YAML file, built-in default.
// Missing connection settings start the server degraded rather than failing;
// an unknown transport, log level or unreadable config file is fatal.
package cmd
