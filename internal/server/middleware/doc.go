// Package middleware holds the HTTP middleware wrapped around the SSE and
// streamable-HTTP transports: request metrics, security headers and CORS.
package middleware
