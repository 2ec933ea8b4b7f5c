package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-proxmox/internal/tools"
)

func newToolsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools this server exposes",
		Long: `List every tool with its arguments. Mutating tools show the action
class that read-only mode refuses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeToolList(cmd.OutOrStdout(), tools.DefaultRegistry(), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}

type toolListing struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Action      string       `json:"action,omitempty"`
	Args        []argListing `json:"args,omitempty"`
}

type argListing struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

func writeToolList(w io.Writer, reg *tools.Registry, output string) error {
	descs := reg.Descriptors()

	switch output {
	case outputJSON:
		listing := make([]toolListing, 0, len(descs))
		for _, d := range descs {
			entry := toolListing{Name: d.Name.String(), Description: d.Description, Action: d.Action}
			for _, a := range d.Args {
				entry.Args = append(entry.Args, argListing{
					Name:        a.Name,
					Type:        string(a.Type),
					Required:    a.Required,
					Description: a.Description,
				})
			}
			listing = append(listing, entry)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	case outputTable:
		t := newTable(w, "")
		t.AppendHeader(table.Row{"Tool", "Action", "Arguments", "Description"})
		for _, d := range descs {
			t.AppendRow(table.Row{d.Name.String(), d.Action, formatArgSpecs(d.Args), d.Description})
		}
		t.SetCaption("%d tools", len(descs))
		t.Render()
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (supported: %s, %s)", output, outputTable, outputJSON)
	}
}

// formatArgSpecs renders "node vmid [description]" style usage.
func formatArgSpecs(specs []tools.ArgSpec) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		p := s.Name + ":" + string(s.Type)
		if !s.Required {
			p = "[" + p + "]"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
