package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/server"
	"github.com/giantswarm/mcp-proxmox/internal/tools"
)

// callOptions controls how a single call is presented.
type callOptions struct {
	Output string
	Quiet  bool
}

func newCallCmd() *cobra.Command {
	config := ServeConfig{Transport: transportStdio}
	opts := callOptions{}

	cmd := &cobra.Command{
		Use:   "call <tool> [key=value ...]",
		Short: "Call one tool against the cluster and print the result",
		Long: `Call dispatches a single tool locally, through the same validation,
read-only gate and degraded-mode handling the MCP server uses, and prints
the result.

Arguments are key=value pairs. Values for integer and boolean arguments are
converted; everything else is passed as a string.

Examples:
  mcp-proxmox call get_nodes
  mcp-proxmox call get_vm_status node=pve1 vmid=100 -o yaml
  mcp-proxmox call get_vms -o table`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, &config); err != nil {
				return fatalConfig(err)
			}
			if err := config.Validate(); err != nil {
				return fatalConfig(err)
			}
			return runCall(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), config, opts, args[0], args[1:])
		},
	}

	addConnectionFlags(cmd, &config)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", outputJSON, "Output format: json, yaml or table")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Suppress the progress spinner")

	return cmd
}

// runCall performs one dispatch. A tool error is printed like any result and
// then returned so the process exits non-zero.
func runCall(ctx context.Context, out, errOut io.Writer, config ServeConfig, opts callOptions, name string, pairs []string) error {
	switch opts.Output {
	case outputJSON, outputYAML, outputTable:
	default:
		return fmt.Errorf("unsupported output format %q (supported: %s, %s, %s)", opts.Output, outputJSON, outputYAML, outputTable)
	}

	args, err := parseToolArgs(name, pairs)
	if err != nil {
		return err
	}

	logger, err := newLogger(config, errOut)
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

	var s *spinner.Spinner
	if !opts.Quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriterFile(os.Stderr))
		s.Suffix = " Calling " + name + "..."
		s.Start()
	}
	result := session.caller.Call(ctx, name, args)
	if s != nil {
		s.Stop()
	}

	if err := writeResult(out, result, opts.Output); err != nil {
		return err
	}
	if result.IsError() {
		return fmt.Errorf("%s failed: %s", name, result.Err)
	}
	return nil
}

// localSession is an in-process dispatcher with its own server context, used
// by call and shell.
type localSession struct {
	caller   tools.Caller
	sc       *server.ServerContext
	provider *instrumentation.Provider
	logger   *slog.Logger
}

func openLocalSession(ctx context.Context, config ServeConfig, logger *slog.Logger) (*localSession, error) {
	provider, err := newInstrumentationProvider(ctx, logger)
	if err != nil {
		return nil, err
	}

	sc, err := newServerContext(ctx, config, logger, provider)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return &localSession{
		caller:   newCaller(sc, config),
		sc:       sc,
		provider: provider,
		logger:   logger,
	}, nil
}

func (s *localSession) Close() {
	if err := s.sc.Shutdown(); err != nil {
		s.logger.Error("error during server context shutdown", "error", err)
	}
	if err := s.provider.Shutdown(context.Background()); err != nil {
		s.logger.Error("error during instrumentation shutdown", "error", err)
	}
}

// parseToolArgs turns key=value pairs into a tool argument map. Values of
// declared integer and boolean arguments are converted when they parse; a
// value that does not parse stays a string so the dispatcher reports the
// type mismatch in its usual form.
func parseToolArgs(name string, pairs []string) (map[string]any, error) {
	types := map[string]tools.ArgType{}
	if desc, ok := tools.DefaultRegistry().Lookup(name); ok {
		for _, spec := range desc.Args {
			types[spec.Name] = spec.Type
		}
	}

	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", pair)
		}
		args[key] = convertArg(types[key], value)
	}
	return args, nil
}

func convertArg(t tools.ArgType, value string) any {
	switch t {
	case tools.TypeInteger:
		if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return n
		}
	case tools.TypeBoolean:
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return value
}
