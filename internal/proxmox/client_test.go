package proxmox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a client at srv. The httptest server speaks plain
// HTTP, so the host carries an explicit http scheme.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...ClientOption) *HTTPClient {
	t.Helper()
	c, err := NewClient(ClientConfig{
		Host:        srv.URL,
		User:        "root@pam",
		TokenID:     "mcp",
		TokenSecret: "s3cr3t",
		Timeout:     2 * time.Second,
		QPSLimit:    1000,
		BurstLimit:  1000,
	}, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(ClientConfig{Host: "pve1:8006:8006", TokenID: "mcp", TokenSecret: "x"})
	require.NoError(t, err)
	assert.Equal(t, "https://pve1:8006/api2/json", c.BaseURL())
	assert.Equal(t, DefaultUser, c.Config().User)

	_, err = NewClient(ClientConfig{Host: "pve1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingTokenID)
}

func TestClientGet(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"data":[{"node":"pve1","status":"online"},{"node":"pve2","status":"online"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	raw, err := c.Get(context.Background(), "/nodes", url.Values{"type": {"node"}})
	require.NoError(t, err)

	assert.Equal(t, "PVEAPIToken=root@pam!mcp=s3cr3t", gotAuth)
	assert.Equal(t, "/api2/json/nodes", gotPath)
	assert.Equal(t, "type=node", gotQuery)

	nodes, err := Decode[[]Node](raw)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "pve2", nodes[1].Node)
}

func TestClientPostSendsForm(t *testing.T) {
	var gotMethod, gotContentType string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotForm = r.PostForm
		_, _ = io.WriteString(w, `{"data":"UPID:pve1:00001234:0000ABCD:65000000:qmsnapshot:100:root@pam:"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	raw, err := c.Post(context.Background(), "/nodes/pve1/qemu/100/snapshot", url.Values{"snapname": {"pre-upgrade"}})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "pre-upgrade", gotForm.Get("snapname"))
	_, hasDescription := gotForm["description"]
	assert.False(t, hasDescription)

	upid, err := Decode[string](raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upid, "UPID:pve1:"))
}

func TestClientUnwrapsEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "data key", body: `{"data":{"a":1}}`, want: `{"a":1}`},
		{name: "null data", body: `{"data":null}`, want: `null`},
		{name: "no data key falls back to raw body", body: `{"result":[1,2]}`, want: `{"result":[1,2]}`},
		{name: "bare array", body: `[1,2,3]`, want: `[1,2,3]`},
		{name: "empty body", body: ``, want: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			raw, err := newTestClient(t, srv).Get(context.Background(), "/x", nil)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestClientInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>proxy error</html>`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Get(context.Background(), "/nodes", nil)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestClientNon2xx(t *testing.T) {
	t.Run("status line carries the reason", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"data":null}`)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv).Post(context.Background(), "/nodes/pve1/qemu/100/status/start", nil)
		require.Error(t, err)

		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
		assert.Equal(t, http.MethodPost, te.Method)
		assert.Equal(t, "/nodes/pve1/qemu/100/status/start", te.Path)
		assert.Equal(t, "500 Internal Server Error", err.Error())
	})

	t.Run("parameter errors are appended", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"data":null,"errors":{"vmid":"invalid format","node":"unknown node"}}`)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv).Get(context.Background(), "/nodes/x/qemu/abc/status/current", nil)
		require.Error(t, err)
		assert.Equal(t, "400 Bad Request (node: unknown node; vmid: invalid format)", err.Error())
	})

	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := newTestClient(t, srv).Get(context.Background(), "/storage/missing", nil)
		assert.True(t, IsNotFound(err))
		assert.Equal(t, http.StatusNotFound, StatusCode(err))
	})
}

func TestClientNeverRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Get(context.Background(), "/nodes", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(ClientConfig{
		Host:        srv.URL,
		TokenID:     "mcp",
		TokenSecret: "s3cr3t",
		Timeout:     50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/nodes", nil)
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
	assert.NotNil(t, te.Err)
}

func TestClientContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv).Get(ctx, "/nodes", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClientUnsupportedMethod(t *testing.T) {
	c, err := NewClient(ClientConfig{Host: "pve1", TokenID: "mcp", TokenSecret: "x"})
	require.NoError(t, err)

	_, err = c.Call(context.Background(), http.MethodDelete, "/nodes/pve1/qemu/100", nil)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestClientPathWithoutLeadingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Get(context.Background(), "cluster/resources", nil)
	require.NoError(t, err)
	assert.Equal(t, "/api2/json/cluster/resources", gotPath)
}

func TestPath(t *testing.T) {
	assert.Equal(t, "/", Path())
	assert.Equal(t, "/nodes/pve1/qemu/100/status/start", Path("nodes", "pve1", "qemu", "100", "status", "start"))
	assert.Equal(t, "/nodes/pve1/tasks/UPID:pve1:0001:x/status", Path("nodes", "pve1", "tasks", "UPID:pve1:0001:x", "status"))
	assert.Equal(t, "/nodes/a%2Fb", Path("nodes", "a/b"))
}
