package contracts

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpool/internal/domain"
)

// ToolClient is a live client handle to a single MCP server.
type ToolClient interface {
	// ListTools returns the tools currently exposed by the server.
	ListTools(ctx context.Context) ([]mcp.Tool, error)

	// Close disconnects from the server.
	Close() error
}

// ClientOptions configures a ToolClient when it is constructed.
type ClientOptions struct {
	// Timeout bounds every request made by the client, including the initial handshake.
	Timeout time.Duration

	// Retries is the number of additional attempts the client may make on transient failures.
	Retries int

	// MaxBackoff caps the wait before each retry. Zero leaves the choice to the client.
	MaxBackoff time.Duration
}

// ClientFactory connects to the server described by the config and returns a ready to use client.
type ClientFactory func(ctx context.Context, server domain.ServerConfig, opts ClientOptions) (ToolClient, error)

// ToolProvider provides pooled access to the tools of MCP servers.
type ToolProvider interface {
	// GetTools returns the tools for the server, using a cached result when one is available.
	GetTools(ctx context.Context, server domain.ServerConfig) ([]mcp.Tool, error)

	// ForceReconnect drops any pooled connection and cached tools for the server.
	ForceReconnect(serverID string)
}

// PoolHealthMonitor provides read access to the health of pooled connections.
type PoolHealthMonitor interface {
	// Status returns the health record for a single pooled server.
	Status(serverID string) (domain.HealthRecord, error)

	// List returns a copy of all health records.
	List() []domain.HealthRecord
}

// PoolMetricsProvider provides the pool wide metrics aggregate.
type PoolMetricsProvider interface {
	Metrics() domain.Metrics
}

// ServerLookup resolves configured MCP servers.
type ServerLookup interface {
	// Server returns the configured server with the given ID.
	Server(id string) (domain.ServerConfig, bool)

	// Servers returns all configured servers.
	Servers() []domain.ServerConfig
}
