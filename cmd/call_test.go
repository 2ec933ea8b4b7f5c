package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServeConfig() ServeConfig {
	return ServeConfig{
		Transport:      transportStdio,
		LogLevel:       "info",
		LogFormat:      "text",
		MaxConcurrency: 8,
		Proxmox:        ProxmoxServeConfig{User: "root@pam"},
	}
}

func newFakeCluster(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api2/json/nodes":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"node":"pve1","status":"online"},{"node":"pve2","status":"offline"}]}`))
		default:
			http.Error(w, "no such route", http.StatusNotImplemented)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseToolArgs(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		pairs   []string
		want    map[string]any
		wantErr string
	}{
		{name: "no arguments", tool: "get_nodes", want: map[string]any{}},
		{
			name:  "integer converted",
			tool:  "get_vm_status",
			pairs: []string{"node=pve1", "vmid=100"},
			want:  map[string]any{"node": "pve1", "vmid": int64(100)},
		},
		{
			name:  "unparseable integer kept as text",
			tool:  "get_vm_status",
			pairs: []string{"node=pve1", "vmid=web"},
			want:  map[string]any{"node": "pve1", "vmid": "web"},
		},
		{
			name:  "value may contain equals signs",
			tool:  "execute_vm_command",
			pairs: []string{"node=pve1", "vmid=100", "command=env FOO=bar"},
			want:  map[string]any{"node": "pve1", "vmid": int64(100), "command": "env FOO=bar"},
		},
		{
			name:  "string arguments stay strings",
			tool:  "get_node_status",
			pairs: []string{"node=100"},
			want:  map[string]any{"node": "100"},
		},
		{
			name:  "unknown tool passes text through",
			tool:  "get_pods",
			pairs: []string{"namespace=default"},
			want:  map[string]any{"namespace": "default"},
		},
		{name: "missing equals", tool: "get_nodes", pairs: []string{"pve1"}, wantErr: "expected key=value"},
		{name: "empty key", tool: "get_nodes", pairs: []string{"=pve1"}, wantErr: "expected key=value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToolArgs(tt.tool, tt.pairs)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunCall_Degraded(t *testing.T) {
	clearProxmoxEnv(t)
	var out, errOut bytes.Buffer

	err := runCall(context.Background(), &out, &errOut, testServeConfig(),
		callOptions{Output: outputJSON, Quiet: true}, "get_nodes", nil)

	require.Error(t, err)
	assert.Contains(t, out.String(), "Server initialization failed: Missing required environment variables: PROXMOX_HOST, PROXMOX_TOKEN_ID, PROXMOX_TOKEN_SECRET")
	assert.Contains(t, out.String(), "Please check environment variables and server configuration")
	assert.Contains(t, errOut.String(), "degraded mode")
}

func TestRunCall_AgainstCluster(t *testing.T) {
	clearProxmoxEnv(t)
	srv := newFakeCluster(t)

	config := testServeConfig()
	config.Proxmox.Host = srv.URL
	config.Proxmox.TokenID = "mcp"
	config.Proxmox.TokenSecret = "secret"

	tests := []struct {
		output string
		want   []string
	}{
		{output: outputJSON, want: []string{`"count": 2`, `"node": "pve1"`}},
		{output: outputYAML, want: []string{"count: 2", "node: pve2"}},
		{output: outputTable, want: []string{"pve1", "pve2", "offline"}},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			var out, errOut bytes.Buffer
			err := runCall(context.Background(), &out, &errOut, config,
				callOptions{Output: tt.output, Quiet: true}, "get_nodes", nil)

			require.NoError(t, err, errOut.String())
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestRunCall_ToolErrorExitsNonZero(t *testing.T) {
	clearProxmoxEnv(t)
	srv := newFakeCluster(t)

	config := testServeConfig()
	config.Proxmox.Host = srv.URL
	config.Proxmox.TokenID = "mcp"
	config.Proxmox.TokenSecret = "secret"

	var out, errOut bytes.Buffer
	err := runCall(context.Background(), &out, &errOut, config,
		callOptions{Output: outputJSON, Quiet: true}, "get_vm_status", []string{"node=pve1"})

	assert.ErrorContains(t, err, "get_vm_status failed")
	assert.Contains(t, out.String(), "Missing required argument: vmid")
}

func TestRunCall_RejectsUnknownOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	err := runCall(context.Background(), &out, &errOut, testServeConfig(),
		callOptions{Output: "xml"}, "get_nodes", nil)

	assert.ErrorContains(t, err, "unsupported output format")
	assert.Empty(t, out.String())
}
