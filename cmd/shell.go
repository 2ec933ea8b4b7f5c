package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-proxmox/internal/tools"
)

const shellHelp = `Commands:
  <tool> [key=value ...]   call a tool
  tools                    list tools
  output json|yaml|table   switch the result format
  help                     show this help
  exit, quit               leave the shell`

func newShellCmd() *cobra.Command {
	config := ServeConfig{Transport: transportStdio}
	var output string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell for calling tools",
		Long: `Start an interactive shell that dispatches tool calls locally against
the configured cluster. Tool names complete with TAB; history is kept
between sessions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, &config); err != nil {
				return fatalConfig(err)
			}
			if err := config.Validate(); err != nil {
				return fatalConfig(err)
			}
			return runShell(cmd.Context(), config, output)
		},
	}

	addConnectionFlags(cmd, &config)
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Initial output format: json, yaml or table")

	return cmd
}

func runShell(ctx context.Context, config ServeConfig, output string) error {
	logger, err := newLogger(config, os.Stderr)
	if err != nil {
		return fatalConfig(err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	session, err := openLocalSession(ctx, config, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "proxmox> ",
		HistoryFile:       filepath.Join(os.TempDir(), ".mcp_proxmox_history"),
		AutoComplete:      newShellCompleter(tools.DefaultRegistry()),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer func() { _ = rl.Close() }()

	sh := &shell{caller: session.caller, registry: tools.DefaultRegistry(), out: rl.Stdout(), output: output}
	if !session.sc.Startup().Ready() {
		_, _ = fmt.Fprintf(sh.out, "Warning: %s\n", session.sc.Startup().Reason)
	}
	_, _ = fmt.Fprintln(sh.out, "Type 'help' for commands. Use TAB to complete tool names.")

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		if sh.eval(ctx, line) {
			return nil
		}
	}
}

func newShellCompleter(reg *tools.Registry) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("tools"),
		readline.PcItem("output",
			readline.PcItem(outputJSON),
			readline.PcItem(outputYAML),
			readline.PcItem(outputTable),
		),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	}
	for _, d := range reg.Descriptors() {
		items = append(items, readline.PcItem(d.Name.String()))
	}
	return readline.NewPrefixCompleter(items...)
}

// shell evaluates one input line at a time. It is separate from the
// readline loop so it can run against any writer.
type shell struct {
	caller   tools.Caller
	registry *tools.Registry
	out      io.Writer
	output   string
}

// eval runs one line and reports whether the shell should exit.
func (s *shell) eval(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "exit", "quit":
		return true
	case "help":
		_, _ = fmt.Fprintln(s.out, shellHelp)
	case "tools":
		if err := writeToolList(s.out, s.registry, outputTable); err != nil {
			_, _ = fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	case "output":
		if len(fields) != 2 {
			_, _ = fmt.Fprintf(s.out, "Current output format: %s\n", s.output)
			return false
		}
		switch fields[1] {
		case outputJSON, outputYAML, outputTable:
			s.output = fields[1]
		default:
			_, _ = fmt.Fprintf(s.out, "Error: unsupported output format %q\n", fields[1])
		}
	default:
		args, err := parseToolArgs(fields[0], fields[1:])
		if err != nil {
			_, _ = fmt.Fprintf(s.out, "Error: %v\n", err)
			return false
		}
		result := s.caller.Call(ctx, fields[0], args)
		if err := writeResult(s.out, result, s.output); err != nil {
			_, _ = fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
	return false
}
