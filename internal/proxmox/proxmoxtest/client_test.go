package proxmoxtest

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

func TestFakeRoutesAndRecords(t *testing.T) {
	fake := New().
		OnGet("/nodes", `[{"node":"pve1"}]`).
		OnPost("/nodes/pve1/qemu/100/status/start", `"UPID:pve1:1:2:3"`).
		FailGet("/nodes/pve2/qemu", http.StatusBadGateway)

	ctx := context.Background()

	raw, err := fake.Get(ctx, "/nodes", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"node":"pve1"}]`, string(raw))

	_, err = fake.Post(ctx, "/nodes/pve1/qemu/100/status/start", url.Values{"timeout": {"30"}})
	require.NoError(t, err)

	_, err = fake.Get(ctx, "/nodes/pve2/qemu", nil)
	assert.Equal(t, http.StatusBadGateway, proxmox.StatusCode(err))

	_, err = fake.Get(ctx, "/unrouted", nil)
	assert.True(t, proxmox.IsNotFound(err))

	assert.Equal(t, 4, fake.CallCount())
	call, ok := fake.LastCall(http.MethodPost, "/nodes/pve1/qemu/100/status/start")
	require.True(t, ok)
	assert.Equal(t, "30", call.Params.Get("timeout"))

	_, ok = fake.LastCall(http.MethodPost, "/nodes")
	assert.False(t, ok)
}

func TestFakeHonoursCancelledContext(t *testing.T) {
	fake := New().OnGet("/nodes", []any{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fake.Get(ctx, "/nodes", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
