package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
)

func TestNewHealthChecker(t *testing.T) {
	sc := &ServerContext{
		config: NewDefaultConfig(),
	}

	h := NewHealthChecker(sc)

	require.NotNil(t, h)
	assert.True(t, h.IsReady(), "HealthChecker should start ready")
	assert.NotNil(t, h.serverContext)
	assert.False(t, h.startTime.IsZero(), "startTime should be set")
}

func TestHealthChecker_SetReady(t *testing.T) {
	h := NewHealthChecker(&ServerContext{config: NewDefaultConfig()})

	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady())
}

func TestLivenessHandler(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Version = "1.2.3"
	h := NewHealthChecker(&ServerContext{config: cfg})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.LivenessHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "1.2.3", response.Version)
}

func TestLivenessHandler_Degraded(t *testing.T) {
	sc := &ServerContext{
		config:  NewDefaultConfig(),
		startup: Degraded(errors.New("boom")),
	}
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func readiness(t *testing.T, h *HealthChecker) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return rec.Code, response
}

func TestReadinessHandler_Ready(t *testing.T) {
	h := NewHealthChecker(&ServerContext{config: NewDefaultConfig()})

	code, response := readiness(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "ok", response.Checks["ready"])
	assert.Equal(t, "ok", response.Checks["shutdown"])
	assert.Equal(t, "ok", response.Checks["proxmox"])
}

func TestReadinessHandler_NotReady(t *testing.T) {
	h := NewHealthChecker(&ServerContext{config: NewDefaultConfig()})
	h.SetReady(false)

	code, response := readiness(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", response.Status)
	assert.Equal(t, "not ready", response.Checks["ready"])
}

func TestReadinessHandler_ShuttingDown(t *testing.T) {
	h := NewHealthChecker(&ServerContext{
		config:   NewDefaultConfig(),
		shutdown: true,
	})

	code, response := readiness(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", response.Status)
	assert.Equal(t, "shutting down", response.Checks["shutdown"])
}

func TestReadinessHandler_Degraded(t *testing.T) {
	h := NewHealthChecker(&ServerContext{
		config:  NewDefaultConfig(),
		startup: Degraded(errors.New("dial tcp: connection refused")),
	})

	code, response := readiness(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", response.Status)
	assert.Equal(t, "degraded", response.Checks["proxmox"])
}

func TestReadinessHandler_Instrumentation(t *testing.T) {
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{})
	require.NoError(t, err)

	h := NewHealthChecker(&ServerContext{
		config:                  NewDefaultConfig(),
		instrumentationProvider: provider,
	})

	_, response := readiness(t, h)
	assert.Equal(t, "disabled", response.Checks["instrumentation"])
}

func TestDetailedHealthHandler(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Version = "0.4.0"
	cfg.ReadOnly = true
	h := NewHealthChecker(&ServerContext{config: cfg})

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "ready", response.Startup)
	assert.Empty(t, response.Reason)
	assert.True(t, response.ReadOnly)
	assert.Equal(t, "0.4.0", response.Version)
	assert.NotEmpty(t, response.Uptime)
	require.NotNil(t, response.Instrumentation)
	assert.False(t, response.Instrumentation.Enabled)
}

func TestDetailedHealthHandler_DegradedReason(t *testing.T) {
	h := NewHealthChecker(&ServerContext{
		config:  NewDefaultConfig(),
		startup: Startup{State: StateDegraded, Reason: "Missing required environment variables: PROXMOX_HOST"},
	})

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "degraded", response.Status)
	assert.Equal(t, "degraded", response.Startup)
	assert.Equal(t, "Missing required environment variables: PROXMOX_HOST", response.Reason)
}

func TestDetailedHealthHandler_NotReady(t *testing.T) {
	h := NewHealthChecker(&ServerContext{config: NewDefaultConfig()})
	h.SetReady(false)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "not ready", response.Status)
}

func TestDetailedHealthHandler_ShuttingDown(t *testing.T) {
	h := NewHealthChecker(&ServerContext{config: NewDefaultConfig(), shutdown: true})

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "shutting down", response.Status)
}

func TestDetailedHealthHandler_NilServerContext(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Nil(t, response.Instrumentation)
}

func TestRegisterHealthEndpoints(t *testing.T) {
	h := NewHealthChecker(&ServerContext{config: NewDefaultConfig()})
	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}
