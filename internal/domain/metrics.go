package domain

import "time"

// Metrics is a point-in-time copy of the process-wide connection pool aggregate.
type Metrics struct {
	TotalConnectionsCreated uint64
	ActiveConnections       int
	FailedConnections       uint64
	AverageResponseTime     time.Duration
	LastUpdatedAt           time.Time
}
