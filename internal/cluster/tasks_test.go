package cluster

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox/proxmoxtest"
)

func TestRecentTasksAcrossNodes(t *testing.T) {
	fake := proxmoxtest.New().
		OnGet("/nodes", twoNodes).
		OnGet("/nodes/pve1/tasks", `[
			{"upid":"UPID:pve1:1","type":"qmstart","starttime":100,"status":"OK","user":"root@pam"},
			{"upid":"UPID:pve1:2","type":"vzdump","starttime":300}
		]`).
		OnGet("/nodes/pve2/tasks", `[
			{"upid":"UPID:pve2:1","node":"pve2","type":"qmstop","starttime":200,"endtime":210,"status":"OK"}
		]`)

	list, err := New(fake, WithLogger(logging.Discard())).RecentTasks(context.Background(), "", 2)
	require.NoError(t, err)

	require.Equal(t, 2, list.Count)
	assert.Equal(t, "UPID:pve1:2", list.Tasks[0].UPID)
	assert.Equal(t, "running", list.Tasks[0].Status)
	assert.Equal(t, "pve1", list.Tasks[0].Node)
	assert.Equal(t, "UPID:pve2:1", list.Tasks[1].UPID)
	assert.Empty(t, list.PartialFailures)

	call, ok := fake.LastCall(http.MethodGet, "/nodes/pve1/tasks")
	require.True(t, ok)
	assert.Equal(t, "1", call.Params.Get("limit"))
}

func TestRecentTasksPerNodeShareIsAtLeastOne(t *testing.T) {
	fake := proxmoxtest.New().
		OnGet("/nodes", `[{"node":"a"},{"node":"b"},{"node":"c"}]`).
		OnGet("/nodes/a/tasks", `[]`).
		OnGet("/nodes/b/tasks", `[]`).
		OnGet("/nodes/c/tasks", `[]`)

	list, err := New(fake, WithLogger(logging.Discard())).RecentTasks(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Empty(t, list.Tasks)
	assert.NotNil(t, list.Tasks)

	for _, n := range []string{"a", "b", "c"} {
		call, ok := fake.LastCall(http.MethodGet, "/nodes/"+n+"/tasks")
		require.True(t, ok)
		assert.Equal(t, "1", call.Params.Get("limit"))
	}
}

func TestRecentTasksSingleNode(t *testing.T) {
	fake := proxmoxtest.New().
		OnGet("/nodes/pve1/tasks", `[{"upid":"UPID:pve1:1","starttime":1},{"upid":"UPID:pve1:2","starttime":2}]`)

	list, err := New(fake, WithLogger(logging.Discard())).RecentTasks(context.Background(), "pve1", 0)
	require.NoError(t, err)

	require.Len(t, list.Tasks, 2)
	assert.Equal(t, "UPID:pve1:2", list.Tasks[0].UPID)

	call, ok := fake.LastCall(http.MethodGet, "/nodes/pve1/tasks")
	require.True(t, ok)
	assert.Equal(t, "20", call.Params.Get("limit"))

	_, queried := fake.LastCall(http.MethodGet, "/nodes")
	assert.False(t, queried)
}

func TestRecentTasksSingleNodeFailure(t *testing.T) {
	fake := proxmoxtest.New().FailGet("/nodes/pve9/tasks", http.StatusInternalServerError)

	_, err := New(fake, WithLogger(logging.Discard())).RecentTasks(context.Background(), "pve9", 5)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, proxmox.StatusCode(err))
}

func TestRecentTasksPartialFailure(t *testing.T) {
	logger := &recordingLogger{}
	fake := proxmoxtest.New().
		OnGet("/nodes", twoNodes).
		OnGet("/nodes/pve1/tasks", `[{"upid":"UPID:pve1:1","starttime":5}]`).
		FailGet("/nodes/pve2/tasks", http.StatusServiceUnavailable)

	list, err := New(fake, WithLogger(logger)).RecentTasks(context.Background(), "", 10)
	require.NoError(t, err)

	assert.Equal(t, 1, list.Count)
	require.Len(t, list.PartialFailures, 1)
	assert.Equal(t, "pve2", list.PartialFailures[0].Node)
	assert.Equal(t, 1, logger.count())
}
