package server

import (
	"errors"
	"strings"

	"github.com/giantswarm/mcp-proxmox/internal/proxmox"
)

// State is the outcome of building the Proxmox client at startup.
type State int

const (
	// StateReady means the client was built and tool calls reach the cluster.
	StateReady State = iota

	// StateDegraded means connection parameters were missing or unusable. The
	// process keeps serving capability listings and answers every tool call
	// with the captured reason.
	StateDegraded

	// StateFatalConfigError means a server-level setting is invalid and the
	// process must exit non-zero.
	StateFatalConfigError
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateFatalConfigError:
		return "fatal"
	default:
		return "unknown"
	}
}

// Startup captures the startup state together with the reason, once.
type Startup struct {
	State  State
	Reason string
	Err    error
}

// Ready reports whether tool calls should reach the cluster.
func (s Startup) Ready() bool {
	return s.State == StateReady
}

// Degraded returns a degraded outcome for err.
func Degraded(err error) Startup {
	return Startup{State: StateDegraded, Reason: degradedReason(err), Err: err}
}

// Fatal returns a fatal configuration outcome for err.
func Fatal(err error) Startup {
	return Startup{State: StateFatalConfigError, Reason: err.Error(), Err: err}
}

// envNames maps ClientConfig field names to the environment variables that feed them.
var envNames = map[string]string{
	"Host":        "PROXMOX_HOST",
	"User":        "PROXMOX_USER",
	"TokenID":     "PROXMOX_TOKEN_ID",
	"TokenSecret": "PROXMOX_TOKEN_SECRET",
}

// Connect builds the Proxmox client for cfg. It never fails hard: a bad
// connection configuration yields a nil client and a Degraded outcome.
func Connect(cfg proxmox.ClientConfig, opts ...proxmox.ClientOption) (*proxmox.HTTPClient, Startup) {
	client, err := proxmox.NewClient(cfg, opts...)
	if err != nil {
		return nil, Degraded(err)
	}
	return client, Startup{State: StateReady}
}

func degradedReason(err error) string {
	var cfgErr *proxmox.ConfigError
	if errors.As(err, &cfgErr) && len(cfgErr.Missing) > 0 {
		names := make([]string, 0, len(cfgErr.Missing))
		for _, field := range cfgErr.Missing {
			if env, ok := envNames[field]; ok {
				names = append(names, env)
				continue
			}
			names = append(names, field)
		}
		return "Missing required environment variables: " + strings.Join(names, ", ")
	}
	return err.Error()
}
