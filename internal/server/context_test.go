package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-proxmox/internal/logging"
	"github.com/giantswarm/mcp-proxmox/internal/proxmox/proxmoxtest"
)

func TestNewServerContext_Ready(t *testing.T) {
	fake := proxmoxtest.New()

	sc, err := NewServerContext(context.Background(),
		WithProxmoxClient(fake),
		WithLogger(logging.Discard()),
		WithVersion("1.0.0"),
		WithReadOnly(true),
		WithMaxConcurrency(2),
	)
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	assert.Same(t, fake, sc.ProxmoxClient())
	require.NotNil(t, sc.Aggregator())
	require.NotNil(t, sc.Operations())
	assert.Equal(t, 2, sc.Aggregator().Concurrency())
	assert.True(t, sc.Startup().Ready())
	assert.Equal(t, "1.0.0", sc.Config().Version)
	assert.True(t, sc.Config().ReadOnly)
	assert.Equal(t, DefaultServerName, sc.Config().ServerName)
}

func TestNewServerContext_ReadyRequiresClient(t *testing.T) {
	_, err := NewServerContext(context.Background(), WithLogger(logging.Discard()))
	assert.ErrorIs(t, err, ErrMissingProxmoxClient)
}

func TestNewServerContext_Degraded(t *testing.T) {
	startup := Degraded(errors.New("dial tcp: connection refused"))

	sc, err := NewServerContext(context.Background(),
		WithStartup(startup),
		WithLogger(logging.Discard()),
	)
	require.NoError(t, err)

	assert.Nil(t, sc.ProxmoxClient())
	assert.Nil(t, sc.Aggregator())
	assert.Nil(t, sc.Operations())
	assert.Equal(t, StateDegraded, sc.Startup().State)
	assert.Equal(t, "dial tcp: connection refused", sc.Startup().Reason)
}

func TestOptions_RejectInvalid(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{name: "nil client", opt: WithProxmoxClient(nil), want: ErrMissingProxmoxClient},
		{name: "nil logger", opt: WithLogger(nil), want: ErrMissingLogger},
		{name: "nil config", opt: WithConfig(nil), want: ErrMissingConfig},
		{name: "zero concurrency", opt: WithMaxConcurrency(0), want: ErrInvalidConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServerContext(context.Background(), WithProxmoxClient(proxmoxtest.New()), tt.opt)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWithConfig_Clones(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ServerName = "custom"

	sc, err := NewServerContext(context.Background(),
		WithProxmoxClient(proxmoxtest.New()),
		WithLogger(logging.Discard()),
		WithConfig(cfg),
	)
	require.NoError(t, err)

	cfg.ServerName = "mutated"
	assert.Equal(t, "custom", sc.Config().ServerName)
}

func TestShutdown(t *testing.T) {
	sc, err := NewServerContext(context.Background(),
		WithProxmoxClient(proxmoxtest.New()),
		WithLogger(logging.Discard()),
	)
	require.NoError(t, err)

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())

	// A second call is a no-op.
	require.NoError(t, sc.Shutdown())
}

func TestConfigClone(t *testing.T) {
	var nilCfg *Config
	assert.Nil(t, nilCfg.Clone())

	cfg := NewDefaultConfig()
	clone := cfg.Clone()
	clone.LogLevel = "debug"
	assert.Equal(t, "info", cfg.LogLevel)
}
