// Package proxmoxtest provides an in-memory proxmox.Client for tests.
package proxmoxtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// Call records one request made against the fake.
type Call struct {
	Method string
	Path   string
	Params url.Values
}

// Client answers requests from a route table keyed by "METHOD /path".
// Unrouted requests fail with a 404 TransportError. Safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	routes map[string]func(params url.Values) (json.RawMessage, error)
	calls  []Call
}

var _ proxmox.Client = (*Client)(nil)

// New returns an empty fake.
func New() *Client {
	return &Client{routes: make(map[string]func(url.Values) (json.RawMessage, error))}
}

func key(method, path string) string {
	return method + " " + path
}

// Handle routes method and path to fn.
func (c *Client) Handle(method, path string, fn func(params url.Values) (json.RawMessage, error)) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[key(method, path)] = fn
	return c
}

// OnGet answers GET path with v encoded as JSON. v may be a string holding raw JSON.
func (c *Client) OnGet(path string, v any) *Client {
	raw := mustJSON(v)
	return c.Handle(http.MethodGet, path, func(url.Values) (json.RawMessage, error) { return raw, nil })
}

// OnPost answers POST path with v encoded as JSON.
func (c *Client) OnPost(path string, v any) *Client {
	raw := mustJSON(v)
	return c.Handle(http.MethodPost, path, func(url.Values) (json.RawMessage, error) { return raw, nil })
}

// FailGet makes GET path fail with the given status code.
func (c *Client) FailGet(path string, statusCode int) *Client {
	return c.Handle(http.MethodGet, path, func(url.Values) (json.RawMessage, error) {
		return nil, statusError(http.MethodGet, path, statusCode)
	})
}

// FailPost makes POST path fail with the given status code.
func (c *Client) FailPost(path string, statusCode int) *Client {
	return c.Handle(http.MethodPost, path, func(url.Values) (json.RawMessage, error) {
		return nil, statusError(http.MethodPost, path, statusCode)
	})
}

// Get implements proxmox.Client.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, path, query)
}

// Post implements proxmox.Client.
func (c *Client) Post(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	return c.call(ctx, http.MethodPost, path, form)
}

func (c *Client) call(ctx context.Context, method, path string, params url.Values) (json.RawMessage, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: method, Path: path, Params: params})
	fn, ok := c.routes[key(method, path)]
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &proxmox.TransportError{Method: method, Path: path, Err: err}
	}
	if !ok {
		return nil, statusError(method, path, http.StatusNotFound)
	}
	return fn(params)
}

// Calls returns a copy of every request made so far, in order.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns the number of requests made so far.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// LastCall returns the most recent request to method and path.
func (c *Client) LastCall(method, path string) (Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.calls) - 1; i >= 0; i-- {
		if c.calls[i].Method == method && c.calls[i].Path == path {
			return c.calls[i], true
		}
	}
	return Call{}, false
}

func statusError(method, path string, statusCode int) error {
	return &proxmox.TransportError{
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
	}
}

func mustJSON(v any) json.RawMessage {
	if s, ok := v.(string); ok {
		return json.RawMessage(s)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("proxmoxtest: cannot encode %T: %v", v, err))
	}
	return raw
}
