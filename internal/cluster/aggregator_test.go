package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox/proxmoxtest"
)

// recordingLogger captures warnings so tests can assert on the diagnostic sink.
type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}
func (l *recordingLogger) With(...any) logging.Logger { return l }

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warnings)
}

const twoNodes = `[{"node":"pve1","status":"online"},{"node":"pve2","status":"online"}]`

func TestListComputeUnits(t *testing.T) {
	fake := proxmoxtest.New().
		OnGet("/nodes", twoNodes).
		OnGet("/nodes/pve1/qemu", `[{"vmid":100,"name":"web","status":"running","cpus":2,"maxmem":2048}]`).
		OnGet("/nodes/pve2/qemu", `[{"vmid":101,"name":"db","status":"stopped"},{"vmid":"102","name":"cache","status":"running"}]`)

	list, err := New(fake, WithLogger(logging.Discard())).ListComputeUnits(context.Background(), proxmox.KindVM)
	require.NoError(t, err)

	assert.Equal(t, 2, list.NodesChecked)
	require.Len(t, list.Units, 3)
	assert.Empty(t, list.PartialFailures)

	owners := map[int64]string{}
	for _, u := range list.Units {
		owners[u.VMID.Int64()] = u.Node
		assert.Equal(t, proxmox.KindVM, u.Type)
	}
	assert.Equal(t, map[int64]string{100: "pve1", 101: "pve2", 102: "pve2"}, owners)

	raw, err := json.Marshal(list)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded["vms"], 3)
	assert.EqualValues(t, 3, decoded["total"])
	assert.EqualValues(t, 2, decoded["nodes_checked"])
	assert.NotContains(t, decoded, "partial_failures")
}

func TestListComputeUnitsPartialFailure(t *testing.T) {
	logger := &recordingLogger{}
	fake := proxmoxtest.New().
		OnGet("/nodes", twoNodes).
		FailGet("/nodes/pve1/lxc", http.StatusInternalServerError).
		OnGet("/nodes/pve2/lxc", `[{"vmid":200,"name":"proxy","status":"running"}]`)

	list, err := New(fake, WithLogger(logger)).ListComputeUnits(context.Background(), proxmox.KindContainer)
	require.NoError(t, err)

	require.Len(t, list.Units, 1)
	assert.Equal(t, "pve2", list.Units[0].Node)
	assert.Equal(t, 2, list.NodesChecked)
	require.Len(t, list.PartialFailures, 1)
	assert.Equal(t, "pve1", list.PartialFailures[0].Node)
	assert.Contains(t, list.PartialFailures[0].Reason, "500")
	assert.Equal(t, 1, logger.count())

	raw, err := json.Marshal(list)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"containers":[`)
	assert.Contains(t, string(raw), `"partial_failures":[{"node":"pve1"`)
}

func TestListComputeUnitsEveryNodeFails(t *testing.T) {
	fake := proxmoxtest.New().
		OnGet("/nodes", `[{"node":"a"},{"node":"b"},{"node":"c"}]`)

	list, err := New(fake, WithLogger(logging.Discard())).ListComputeUnits(context.Background(), proxmox.KindVM)
	require.NoError(t, err)

	assert.Empty(t, list.Units)
	assert.NotNil(t, list.Units)
	assert.Equal(t, 3, list.NodesChecked)
	assert.Len(t, list.PartialFailures, 3)

	raw, err := json.Marshal(list)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"vms":[]`)
}

func TestListComputeUnitsDiscoveryFailure(t *testing.T) {
	fake := proxmoxtest.New().FailGet("/nodes", http.StatusUnauthorized)

	_, err := New(fake, WithLogger(logging.Discard())).ListComputeUnits(context.Background(), proxmox.KindVM)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, proxmox.StatusCode(err))
	assert.Equal(t, 1, fake.CallCount())
}

func TestListComputeUnitsNullNodeList(t *testing.T) {
	fake := proxmoxtest.New().OnGet("/nodes", `null`)

	list, err := New(fake, WithLogger(logging.Discard())).ListComputeUnits(context.Background(), proxmox.KindVM)
	require.NoError(t, err)
	assert.Empty(t, list.Units)
	assert.Zero(t, list.NodesChecked)
}

func TestListTemplates(t *testing.T) {
	fake := proxmoxtest.New().
		OnGet("/nodes", twoNodes).
		OnGet("/nodes/pve1/qemu", `[
			{"vmid":9000,"name":"ubuntu-tmpl","template":1,"maxdisk":10737418240,"maxmem":2147483648,"cpus":2},
			{"vmid":100,"name":"web","template":0}
		]`).
		OnGet("/nodes/pve1/lxc", `[{"vmid":9100,"template":"1","maxdisk":8589934592,"maxmem":536870912}]`).
		OnGet("/nodes/pve2/qemu", `[]`).
		FailGet("/nodes/pve2/lxc", http.StatusBadGateway)

	list, err := New(fake, WithLogger(logging.Discard()), WithConcurrency(1)).ListTemplates(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, list.Count)
	require.Len(t, list.Templates, 2)
	assert.Equal(t, Template{
		VMID: 9000, Name: "ubuntu-tmpl", Node: "pve1", Type: proxmox.KindVM,
		DiskSize: 10737418240, Memory: 2147483648, CPUs: 2,
	}, list.Templates[0])
	assert.Equal(t, Template{
		VMID: 9100, Name: "unnamed", Node: "pve1", Type: proxmox.KindContainer,
		DiskSize: 8589934592, Memory: 536870912, CPUs: 1,
	}, list.Templates[1])

	require.Len(t, list.PartialFailures, 1)
	assert.Equal(t, "pve2", list.PartialFailures[0].Node)
	assert.Equal(t, "lxc", list.PartialFailures[0].Kind)
}
