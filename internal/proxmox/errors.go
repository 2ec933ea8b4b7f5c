package proxmox

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError reports a failed Proxmox API request: a network error, a
// timeout, an undecodable body or a non-2xx status.
type TransportError struct {
	Method string
	Path   string

	// StatusCode is zero when no HTTP response was received.
	StatusCode int

	// Message is the upstream status line, extended with per-field errors
	// from the Proxmox response body when present.
	Message string

	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return e.Message
	case e.StatusCode != 0:
		return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s %s failed", e.Method, e.Path)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
