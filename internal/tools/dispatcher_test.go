package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox/proxmoxtest"
	"github.com/giantswarm/mcp-proxmox/internal/server"
)

const (
	twoNodes = `[{"node":"pve1","status":"online"},{"node":"pve2","status":"online"}]`
	taskUPID = "UPID:pve1:00001234:0000ABCD:65A1B2C3:qmstart:100:root@pam:"
)

func newServerContext(t *testing.T, fake *proxmoxtest.Client, opts ...server.Option) *server.ServerContext {
	t.Helper()
	base := []server.Option{server.WithProxmoxClient(fake), server.WithLogger(logging.Discard())}
	sc, err := server.NewServerContext(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func newDispatcher(t *testing.T, fake *proxmoxtest.Client, opts ...server.Option) *Dispatcher {
	t.Helper()
	return NewDispatcher(newServerContext(t, fake, opts...))
}

// decode renders r the way clients see it and parses it back.
func decode(t *testing.T, r Result) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.Text()), &m))
	return m
}

func TestDispatch_GetNodes(t *testing.T) {
	fake := proxmoxtest.New().OnGet("/nodes", twoNodes)
	d := newDispatcher(t, fake)

	r := d.Call(context.Background(), "get_nodes", nil)

	require.False(t, r.IsError(), r.Err)
	out := decode(t, r)
	assert.Equal(t, float64(2), out["count"])
	assert.Len(t, out["nodes"], 2)
}

func TestDispatch_LogsCompletionAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	fake := proxmoxtest.New().OnGet("/nodes", twoNodes)
	d := newDispatcher(t, fake, server.WithLogger(logger))

	r := d.Call(context.Background(), "get_nodes", nil)

	require.False(t, r.IsError(), r.Err)
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "Tool call completed")
	assert.Contains(t, buf.String(), "tool=get_nodes")
}

func TestDispatch_StartVM(t *testing.T) {
	fake := proxmoxtest.New().OnPost("/nodes/pve1/qemu/100/status/start", `"`+taskUPID+`"`)
	d := newDispatcher(t, fake)

	r := d.Call(context.Background(), "start_vm", map[string]any{"node": "pve1", "vmid": float64(100)})

	require.False(t, r.IsError(), r.Err)
	out := decode(t, r)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, taskUPID, out["task_id"])
	assert.Equal(t, "VM 100 start initiated on node pve1", out["message"])
}

func TestDispatch_StopContainer(t *testing.T) {
	fake := proxmoxtest.New().OnPost("/nodes/pve2/lxc/200/status/shutdown", `"UPID:pve2:x"`)
	d := newDispatcher(t, fake)

	r := d.Call(context.Background(), "stop_container", map[string]any{"node": "pve2", "vmid": 200})

	require.False(t, r.IsError(), r.Err)
	assert.Equal(t, "Container 200 stop initiated on node pve2", decode(t, r)["message"])
}

func TestDispatch_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantErr string
	}{
		{
			name:    "missing node",
			tool:    "get_node_status",
			args:    map[string]any{},
			wantErr: "Missing required argument: node",
		},
		{
			name:    "empty required string",
			tool:    "get_node_status",
			args:    map[string]any{"node": ""},
			wantErr: "Missing required argument: node",
		},
		{
			name:    "vmid as string",
			tool:    "get_vm_status",
			args:    map[string]any{"node": "pve1", "vmid": "100"},
			wantErr: "Invalid argument 'vmid': expected integer",
		},
		{
			name:    "fractional vmid",
			tool:    "get_vm_status",
			args:    map[string]any{"node": "pve1", "vmid": 100.5},
			wantErr: "Invalid argument 'vmid': expected integer",
		},
		{
			name:    "node as number",
			tool:    "get_node_status",
			args:    map[string]any{"node": 1},
			wantErr: "Invalid argument 'node': expected string",
		},
		{
			name:    "bad UPID",
			tool:    "get_task_status",
			args:    map[string]any{"node": "pve1", "upid": "garbage"},
			wantErr: "Invalid UPID format",
		},
		{
			name:    "bad vm_type",
			tool:    "get_vm_network",
			args:    map[string]any{"node": "pve1", "vmid": 100, "vm_type": "docker"},
			wantErr: "docker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := proxmoxtest.New()
			d := newDispatcher(t, fake)

			r := d.Call(context.Background(), tt.tool, tt.args)

			require.True(t, r.IsError())
			assert.Contains(t, r.Err, tt.wantErr)
			assert.Zero(t, fake.CallCount(), "no request may be issued for invalid input")
		})
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	fake := proxmoxtest.New()
	d := newDispatcher(t, fake)

	r := d.Call(context.Background(), "delete_cluster", map[string]any{"force": true})

	require.True(t, r.IsError())
	assert.Equal(t, "Unknown tool: delete_cluster", r.Err)
	assert.Equal(t, map[string]any{"error": "Unknown tool: delete_cluster"}, decode(t, r))
	assert.Zero(t, fake.CallCount())
}

func TestDispatch_ReadOnly(t *testing.T) {
	fake := proxmoxtest.New().OnGet("/nodes", twoNodes)
	d := newDispatcher(t, fake, server.WithReadOnly(true))

	tests := []struct {
		tool    string
		args    map[string]any
		wantErr string
	}{
		{tool: "start_vm", args: map[string]any{"node": "pve1", "vmid": 100}, wantErr: "Power operations are not allowed in read-only mode"},
		{tool: "reboot_container", args: map[string]any{"node": "pve1", "vmid": 200}, wantErr: "Power operations are not allowed in read-only mode"},
		{tool: "execute_vm_command", args: map[string]any{"node": "pve1", "vmid": 100, "command": "uptime"}, wantErr: "Exec operations are not allowed in read-only mode"},
		{tool: "create_container_snapshot", args: map[string]any{"node": "pve1", "vmid": 200, "name": "pre"}, wantErr: "Snapshot operations are not allowed in read-only mode"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			r := d.Call(context.Background(), tt.tool, tt.args)
			require.True(t, r.IsError())
			assert.Equal(t, tt.wantErr, r.Err)
		})
	}
	assert.Zero(t, fake.CallCount())

	r := d.Call(context.Background(), "get_nodes", nil)
	assert.False(t, r.IsError(), "read tools stay available in read-only mode")
}

func TestDispatch_TransportErrorBecomesEnvelope(t *testing.T) {
	fake := proxmoxtest.New().FailGet("/nodes", http.StatusInternalServerError)
	d := newDispatcher(t, fake)

	r := d.Call(context.Background(), "get_nodes", nil)

	require.True(t, r.IsError())
	assert.Equal(t, "500 Internal Server Error", r.Err)
}

func TestDispatch_RecoversPanics(t *testing.T) {
	reg, err := NewRegistry(Descriptor{
		Name: "explode",
		Handler: func(context.Context, *Backend, Args) (any, error) {
			panic("boom")
		},
	})
	require.NoError(t, err)

	d := NewDispatcher(newServerContext(t, proxmoxtest.New()), WithRegistry(reg))

	var r Result
	require.NotPanics(t, func() {
		r = d.Call(context.Background(), "explode", nil)
	})
	require.True(t, r.IsError())
	assert.Contains(t, r.Err, "boom")
}

func TestDispatch_HandlerErrorText(t *testing.T) {
	reg, err := NewRegistry(Descriptor{
		Name: "fails",
		Handler: func(context.Context, *Backend, Args) (any, error) {
			return nil, errors.New("No status data returned")
		},
	})
	require.NoError(t, err)

	d := NewDispatcher(newServerContext(t, proxmoxtest.New()), WithRegistry(reg))
	r := d.Call(context.Background(), "fails", nil)

	assert.Equal(t, map[string]any{"error": "No status data returned"}, decode(t, r))
}

func TestDispatch_DoesNotMutateCallerArgs(t *testing.T) {
	fake := proxmoxtest.New().OnGet("/nodes/pve1/qemu/100/status/current", `{"status":"running"}`)
	d := newDispatcher(t, fake)

	args := map[string]any{"node": "pve1", "vmid": float64(100), "extra": nil}
	r := d.Call(context.Background(), "get_vm_status", args)

	require.False(t, r.IsError(), r.Err)
	assert.Equal(t, float64(100), args["vmid"])
	assert.Contains(t, args, "extra")
}

func TestDispatch_AuditRecord(t *testing.T) {
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{})
	require.NoError(t, err)

	var buf bytes.Buffer
	provider.SetAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	fake := proxmoxtest.New().OnPost("/nodes/pve1/qemu/100/status/start", `"`+taskUPID+`"`)
	sc := newServerContext(t, fake, server.WithInstrumentationProvider(provider))
	d := NewDispatcher(sc, WithAuditUser("root@pam"))

	r := d.Call(context.Background(), "start_vm", map[string]any{"node": "pve1", "vmid": 100})
	require.False(t, r.IsError(), r.Err)

	line := buf.String()
	assert.Contains(t, line, "msg=tool_invocation")
	assert.Contains(t, line, "tool=start_vm")
	assert.Contains(t, line, "user=root@pam")
	assert.Contains(t, line, "node=pve1")
	assert.Contains(t, line, "vmid=100")
	assert.Contains(t, line, "kind=qemu")
	assert.Contains(t, line, "success=true")
}

func TestDispatch_AuditRecordsUnknownToolLabel(t *testing.T) {
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{})
	require.NoError(t, err)

	var buf bytes.Buffer
	provider.SetAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	sc := newServerContext(t, proxmoxtest.New(), server.WithInstrumentationProvider(provider))
	NewDispatcher(sc).Call(context.Background(), "scan-me-please-1234", nil)

	assert.Contains(t, buf.String(), "tool=unknown")
	assert.Contains(t, buf.String(), "level=WARN")
}
