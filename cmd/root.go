package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mcp-proxmox application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mcp-proxmox",
	Short: "MCP server for Proxmox VE cluster operations",
	Long: `mcp-proxmox is a Model Context Protocol (MCP) server that exposes a
Proxmox VE cluster to AI assistants. It offers node, VM and container
inspection, power and snapshot operations, guest command execution, storage,
backup, task, access-control, network and firewall queries.

When run without subcommands, it starts the MCP server (equivalent to 'mcp-proxmox serve').`,
	// SilenceUsage keeps runtime failures from dumping the usage text.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// It is called from main to inject the version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcp-proxmox version %s\n" .Version}}`)

	// No subcommand means serve.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newShellCmd())
}
