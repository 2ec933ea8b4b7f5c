package tools

import (
	"encoding/json"
	"fmt"
)

// Result is the envelope every dispatched call resolves to: a success payload
// or an error message. It encodes as the payload itself, or as
// {"error": "...", "details"?: "..."}.
type Result struct {
	Value   any
	Err     string
	Details string
}

// Success wraps a payload.
func Success(v any) Result {
	return Result{Value: v}
}

// Failure builds an error envelope.
func Failure(msg string) Result {
	return Result{Err: msg}
}

// IsError reports whether r is an error envelope.
func (r Result) IsError() bool {
	return r.Err != ""
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.IsError() {
		return json.Marshal(struct {
			Error   string `json:"error"`
			Details string `json:"details,omitempty"`
		}{r.Err, r.Details})
	}
	return json.Marshal(r.Value)
}

// Text renders r as indented JSON, the form returned to MCP clients.
func (r Result) Text() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		b, _ = json.MarshalIndent(Failure(fmt.Sprintf("encoding result: %v", err)), "", "  ")
	}
	return string(b)
}
