package proxmox

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/time/rate"

	"github.com/giantswarm/mcp-proxmox/internal/instrumentation"
	"github.com/giantswarm/mcp-proxmox/internal/logging"
)

// maxErrorBody bounds how much of a failed response is read for the error message.
const maxErrorBody = 64 << 10

// Client is the subset of the Proxmox REST API used by the aggregation and
// operation layers. Paths are relative to /api2/json and start with "/".
type Client interface {
	// Get issues a GET request and returns the unwrapped payload.
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)

	// Post issues a form-encoded POST request and returns the unwrapped payload.
	Post(ctx context.Context, path string, form url.Values) (json.RawMessage, error)
}

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	config     ClientConfig
	baseURL    string
	authHeader string

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logging.Logger
	metrics    *instrumentation.Metrics
}

var _ Client = (*HTTPClient)(nil)

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithLogger sets the diagnostic logger.
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithMetrics records every request on m.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// NewClient validates cfg and builds a client. No request is made.
func NewClient(cfg ClientConfig, opts ...ClientOption) (*HTTPClient, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := BaseURL(cfg.Host)
	if err != nil {
		return nil, err
	}

	c := &HTTPClient{
		config:     cfg,
		baseURL:    baseURL,
		authHeader: cfg.AuthHeader(),
		limiter:    rate.NewLimiter(rate.Limit(cfg.QPSLimit), cfg.BurstLimit),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		transport := cleanhttp.DefaultPooledTransport()
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec // self-signed cluster certificates are the norm
			MinVersion:         tls.VersionTLS12,
		}
		c.httpClient = &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		}
	}
	if c.logger == nil {
		c.logger = logging.DefaultLogger()
	}

	return c, nil
}

// BaseURL returns the canonical API base address, e.g. "https://pve1:8006/api2/json".
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Config returns the effective configuration, defaults applied.
func (c *HTTPClient) Config() ClientConfig {
	return c.config
}

// Get implements Client.
func (c *HTTPClient) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodGet, path, query)
}

// Post implements Client.
func (c *HTTPClient) Post(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodPost, path, form)
}

// Call performs exactly one request. For GET, params become the query string;
// for POST they are sent as a form body. Every failure is a *TransportError.
func (c *HTTPClient) Call(ctx context.Context, method, path string, params url.Values) (json.RawMessage, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("unsupported method %s", method)}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	ctx, span := instrumentation.StartProxmoxSpan(ctx, method, path)
	defer span.End()

	start := time.Now()
	data, err := c.do(ctx, method, path, params)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		c.logger.Debug("proxmox request failed",
			"method", method,
			logging.Operation(path),
			logging.SanitizedErr(err),
			logging.KeyDuration, duration)
	} else {
		instrumentation.SetSpanSuccess(span)
		c.logger.Debug("proxmox request",
			"method", method,
			logging.Operation(path),
			logging.KeyDuration, duration)
	}
	c.metrics.RecordProxmoxRequest(ctx, method, path, status, duration)

	return data, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values) (json.RawMessage, error) {
	fail := func(statusCode int, msg string, err error) error {
		return &TransportError{Method: method, Path: path, StatusCode: statusCode, Message: msg, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fail(0, "", fmt.Errorf("rate limiter: %w", err))
	}

	target := c.baseURL + path
	var body io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			target += "?" + params.Encode()
		}
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fail(0, "", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, "", err)
	}
	defer func() { _ = resp.Body.Close() }()
	instrumentation.SetSpanStatusCode(ctx, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fail(resp.StatusCode, errorMessage(resp, raw), nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, "", fmt.Errorf("reading response body: %w", err))
	}

	data, err := unwrapData(raw)
	if err != nil {
		return nil, fail(resp.StatusCode, "", err)
	}
	return data, nil
}

// unwrapData returns the value under the "data" key, or the whole body when
// the key is absent. An empty body decodes to null.
func unwrapData(raw []byte) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage("null"), nil
	}

	if raw[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decoding response body: %w", err)
		}
		if data, ok := envelope["data"]; ok {
			return data, nil
		}
		return json.RawMessage(raw), nil
	}

	if !json.Valid(raw) {
		return nil, errors.New("decoding response body: invalid JSON")
	}
	return json.RawMessage(raw), nil
}

// errorMessage builds the upstream message for a non-2xx response. Proxmox
// puts the reason in the status line and per-parameter problems in an
// "errors" object.
func errorMessage(resp *http.Response, raw []byte) string {
	msg := resp.Status
	if msg == "" {
		msg = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var body struct {
		Errors  map[string]string `json:"errors"`
		Message string            `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return msg
	}
	if body.Message != "" {
		msg += ": " + strings.TrimSpace(body.Message)
	}
	if len(body.Errors) > 0 {
		keys := make([]string, 0, len(body.Errors))
		for k := range body.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, strings.TrimSpace(body.Errors[k])))
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}
