// Package errors defines domain-level errors used throughout the application.
// These errors represent connection pool failures and are mapped to appropriate HTTP status codes at the API boundary.
//
// NOTE: Important for developers
// When adding a new error here, you MUST consider how it should be handled when returned from API endpoints.
//
// Unmapped errors will default to HTTP 500 Internal Server Error.
//
// Don't forget to:
// 1. Add your error to mapError (internal/daemon/api_server.go)
// 2. Add a test case to TestMapError (internal/daemon/api_server_test.go)
// 3. Consider if existing handler tests need updates
package errors

import (
	"errors"
)

var (
	// ErrBadRequest indicates that the client provided invalid input or made a malformed request.
	// Recommended to map to HTTP 400 Bad Request.
	ErrBadRequest = errors.New("bad request")

	// ErrServerNotFound indicates that the requested MCP server is not configured.
	// Recommended to map to HTTP 404 Not Found.
	ErrServerNotFound = errors.New("server not found")

	// ErrHealthNotTracked indicates that no health record exists for the specified server.
	// Health records only exist while the pool holds a connection for the server.
	// Recommended to map to HTTP 404 Not Found.
	ErrHealthNotTracked = errors.New("server health is not being tracked")

	// ErrInvalidServerURL indicates that a server URL failed validation (scheme, host or blocked address).
	// No connection attempt is made when this error is returned.
	// Recommended to map to HTTP 400 Bad Request.
	ErrInvalidServerURL = errors.New("invalid server url")

	// ErrCapacityExceeded indicates that the pool is at its connection ceiling, even after evicting
	// unhealthy and stale connections.
	// Recommended to map to HTTP 503 Service Unavailable.
	ErrCapacityExceeded = errors.New("connection pool capacity exceeded")

	// ErrPoolClosed indicates that the pool has been shut down and no longer accepts requests.
	// Recommended to map to HTTP 503 Service Unavailable.
	ErrPoolClosed = errors.New("connection pool is shut down")

	// ErrConnectFailed indicates that a client connection to an MCP server could not be established.
	// It is usually joined with a more specific cause (ErrDNS, ErrConnectionRefused, ErrTimeout etc.).
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrConnectFailed = errors.New("failed to connect to server")

	// ErrTimeout indicates that a call to an MCP server exceeded its time budget.
	// Recommended to map to HTTP 504 Gateway Timeout.
	ErrTimeout = errors.New("server request timed out")

	// ErrDNS indicates that the MCP server host name could not be resolved.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrDNS = errors.New("server host could not be resolved")

	// ErrConnectionRefused indicates that the MCP server refused the connection.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrConnectionRefused = errors.New("server refused connection")

	// ErrNetwork indicates a transport level failure talking to the MCP server.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrNetwork = errors.New("network error")

	// ErrUpstream indicates any other failure surfaced by the MCP server or client library.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrUpstream = errors.New("upstream server error")
)
