package domain

import "time"

// HealthRecord tracks the liveness of a pooled connection to an MCP server.
// A HealthRecord only exists while the pool holds a connection for the same server.
type HealthRecord struct {
	ServerID            string
	IsHealthy           bool
	LastCheckedAt       time.Time
	ConsecutiveFailures uint
	LastResponseTime    time.Duration
}
