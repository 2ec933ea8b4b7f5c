package proxmox

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by ClientConfig.WithDefaults.
const (
	DefaultUser       = "root@pam"
	DefaultPort       = "8006"
	DefaultTimeout    = 30 * time.Second
	DefaultQPSLimit   = 20.0
	DefaultBurstLimit = 30

	apiBasePath = "/api2/json"
)

var (
	// ErrInvalidHost is returned when the configured host cannot be turned into a base URL.
	ErrInvalidHost = errors.New("invalid proxmox host")

	ErrMissingHost        = errors.New("proxmox host is required")
	ErrMissingUser        = errors.New("proxmox user is required")
	ErrMissingTokenID     = errors.New("proxmox token id is required")
	ErrMissingTokenSecret = errors.New("proxmox token secret is required")
)

var missingFieldErrors = map[string]error{
	"Host":        ErrMissingHost,
	"User":        ErrMissingUser,
	"TokenID":     ErrMissingTokenID,
	"TokenSecret": ErrMissingTokenSecret,
}

var validate = validator.New()

// ClientConfig holds the connection parameters for a Client. It is built once
// at startup and never mutated afterwards.
type ClientConfig struct {
	// Host is the cluster address: "pve1", "pve1:8006", "https://10.0.0.5:8443", ...
	Host string `validate:"required"`

	// User is the Proxmox user owning the API token, e.g. "root@pam".
	User string `validate:"required,contains=@"`

	// TokenID is the API token id (the part after "!").
	TokenID string `validate:"required"`

	// TokenSecret is the API token UUID secret.
	TokenSecret string `validate:"required"`

	// VerifyTLS enables certificate verification. Off by default because
	// clusters commonly run with self-signed certificates.
	VerifyTLS bool

	Timeout    time.Duration `validate:"gte=0"`
	QPSLimit   float64       `validate:"gte=0"`
	BurstLimit int           `validate:"gte=0"`
}

// WithDefaults returns a copy of c with zero values replaced by package defaults.
func (c ClientConfig) WithDefaults() ClientConfig {
	c.Host = strings.TrimSpace(c.Host)
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.QPSLimit == 0 {
		c.QPSLimit = DefaultQPSLimit
	}
	if c.BurstLimit == 0 {
		c.BurstLimit = DefaultBurstLimit
	}
	return c
}

// ConfigError lists every ClientConfig field that failed validation.
type ConfigError struct {
	// Missing holds the names of required fields that were empty.
	Missing []string
	// Invalid holds "Field: reason" descriptions for malformed values.
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, "; "))
	}
	return "proxmox client config: " + strings.Join(parts, "; ")
}

// Unwrap exposes the sentinel errors of missing fields, so callers can test
// with errors.Is(err, ErrMissingHost).
func (e *ConfigError) Unwrap() []error {
	var errs []error
	for _, field := range e.Missing {
		if sentinel, ok := missingFieldErrors[field]; ok {
			errs = append(errs, sentinel)
		}
	}
	for _, invalid := range e.Invalid {
		if strings.HasPrefix(invalid, "Host:") {
			errs = append(errs, ErrInvalidHost)
			break
		}
	}
	return errs
}

// Validate checks c and returns a *ConfigError describing every problem found.
func (c ClientConfig) Validate() error {
	cfgErr := &ConfigError{}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating proxmox client config: %w", err)
		}
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				cfgErr.Missing = append(cfgErr.Missing, fe.Field())
				continue
			}
			cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("%s: failed %q check", fe.Field(), fe.Tag()))
		}
	}

	if c.Host != "" {
		if _, err := BaseURL(c.Host); err != nil {
			cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("Host: %v", err))
		}
	}

	if len(cfgErr.Missing) == 0 && len(cfgErr.Invalid) == 0 {
		return nil
	}
	return cfgErr
}

// BaseURL derives the API base address from a configured host.
//
// The scheme defaults to https and the port to 8006. An explicit port wins over
// the default, and a port repeated several times ("pve:8006:8006") collapses to
// the last one, so the default is never appended twice. Any path, query or
// fragment on the host is dropped.
func BaseURL(host string) (string, error) {
	h := strings.TrimSpace(host)
	if h == "" {
		return "", fmt.Errorf("%w: empty host", ErrInvalidHost)
	}

	scheme := "https"
	if i := strings.Index(h, "://"); i >= 0 {
		scheme = strings.ToLower(h[:i])
		h = h[i+3:]
	}
	if scheme != "https" && scheme != "http" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidHost, scheme)
	}

	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}

	hostname, port, err := splitHostPort(h)
	if err != nil {
		return "", err
	}

	return scheme + "://" + net.JoinHostPort(hostname, port) + apiBasePath, nil
}

func splitHostPort(h string) (string, string, error) {
	if h == "" {
		return "", "", fmt.Errorf("%w: empty host", ErrInvalidHost)
	}

	hostname, port := h, ""
	switch {
	case strings.HasPrefix(h, "["):
		end := strings.Index(h, "]")
		if end < 0 {
			return "", "", fmt.Errorf("%w: unterminated IPv6 literal %q", ErrInvalidHost, h)
		}
		hostname = h[1:end]
		port = lastPort(h[end+1:])
	case net.ParseIP(h) != nil:
		// bare IPv4 or IPv6 literal without a port
	default:
		if i := strings.Index(h, ":"); i >= 0 {
			hostname = h[:i]
			port = lastPort(h[i:])
		}
	}

	if hostname == "" {
		return "", "", fmt.Errorf("%w: missing hostname in %q", ErrInvalidHost, h)
	}
	if port == "" {
		port = DefaultPort
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", "", fmt.Errorf("%w: invalid port %q", ErrInvalidHost, port)
	}
	return hostname, port, nil
}

// lastPort returns the final ":port" segment of s, or "" when there is none.
func lastPort(s string) string {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return ""
	}
	return s[i+1:]
}

// AuthHeader returns the Authorization header value for the configured token.
func (c ClientConfig) AuthHeader() string {
	return fmt.Sprintf("PVEAPIToken=%s!%s=%s", c.User, c.TokenID, c.TokenSecret)
}
