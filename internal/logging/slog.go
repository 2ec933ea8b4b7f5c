package logging

import (
	"fmt"
	"log/slog"
	"regexp"
)

// Attribute keys shared by every component that logs.
const (
	KeyOperation = "operation"
	KeyTool      = "tool"
	KeyNode      = "node"
	KeyVMID      = "vmid"
	KeyKind      = "kind"
	KeyStorage   = "storage"
	KeyDuration  = "duration"
	KeyError     = "error"
	KeyHost      = "host"
	KeyToken     = "token"
)

const redactedIP = "<redacted-ip>"

var (
	ipv4Pattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

	// Full, compressed and bracketed IPv6 forms.
	ipv6Pattern = regexp.MustCompile(`\[?([0-9a-fA-F]{0,4}:){2,7}[0-9a-fA-F]{0,4}\]?`)
)

// Operation is the aggregator or operation name.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Tool is the MCP tool name.
func Tool(name string) slog.Attr { return slog.String(KeyTool, name) }

// Node is a cluster node name.
func Node(name string) slog.Attr { return slog.String(KeyNode, name) }

// VMID is a VM or container id.
func VMID(id int64) slog.Attr { return slog.Int64(KeyVMID, id) }

// Kind is a compute unit kind (qemu or lxc) or a fan-out dimension.
func Kind(kind string) slog.Attr { return slog.String(KeyKind, kind) }

// Storage is a storage id.
func Storage(id string) slog.Attr { return slog.String(KeyStorage, id) }

// Err records err verbatim. Use SanitizedErr for anything that may carry
// the cluster address.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizedErr records err with IP addresses redacted.
func SanitizedErr(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, SanitizeHost(err.Error()))
}

// Host records a host or URL with IP addresses redacted.
func Host(host string) slog.Attr { return slog.String(KeyHost, SanitizeHost(host)) }

// Token records a credential as its length only.
func Token(token string) slog.Attr { return slog.String(KeyToken, SanitizeToken(token)) }

// SanitizeHost redacts IPv4 and IPv6 addresses anywhere in s. Hostnames,
// schemes and ports survive:
//
//	https://192.168.1.100:8006   -> https://<redacted-ip>:8006
//	https://[2001:db8::1]:8006   -> https://<redacted-ip>:8006
//	https://pve.example.com:8006 -> unchanged
func SanitizeHost(s string) string {
	if s == "" {
		return "<empty>"
	}
	s = ipv4Pattern.ReplaceAllString(s, redactedIP)
	return ipv6Pattern.ReplaceAllString(s, redactedIP)
}

// SanitizeToken describes a token without exposing any of its content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
