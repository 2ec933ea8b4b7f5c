package proxmox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// IsNull reports whether raw is empty or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Decode unmarshals raw into a T. A null payload yields the zero T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if IsNull(raw) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding %T: %w", out, err)
	}
	return out, nil
}

// GetInto performs a GET and decodes the payload into a T.
func GetInto[T any](ctx context.Context, c Client, path string, query url.Values) (T, error) {
	raw, err := c.Get(ctx, path, query)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](raw)
}

// Path joins segments into an API path, escaping each one.
//
//	Path("nodes", "pve1", "qemu", "100", "status", "start") // "/nodes/pve1/qemu/100/status/start"
func Path(segments ...string) string {
	var b bytes.Buffer
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
