package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/domain"
)

// DomainMetrics wraps domain.Metrics for conversion to PoolMetrics.
type DomainMetrics domain.Metrics

// PoolMetrics is the API view of the pool wide metrics aggregate.
type PoolMetrics struct {
	TotalConnectionsCreated uint64     `json:"totalConnectionsCreated"`
	ActiveConnections       int        `json:"activeConnections"`
	FailedConnections       uint64     `json:"failedConnections"`
	AverageResponseTime     string     `json:"averageResponseTime"`
	AverageResponseTimeMS   float64    `json:"averageResponseTimeMs"`
	LastUpdatedAt           *time.Time `json:"lastUpdatedAt,omitempty"`
}

// PoolMetricsResponse is the response for GET /pool/metrics.
type PoolMetricsResponse struct {
	Body PoolMetrics
}

// ToAPIType converts the aggregate to its API form.
func (d DomainMetrics) ToAPIType() (PoolMetrics, error) {
	var updated *time.Time
	if !d.LastUpdatedAt.IsZero() {
		t := d.LastUpdatedAt
		updated = &t
	}

	return PoolMetrics{
		TotalConnectionsCreated: d.TotalConnectionsCreated,
		ActiveConnections:       d.ActiveConnections,
		FailedConnections:       d.FailedConnections,
		AverageResponseTime:     d.AverageResponseTime.String(),
		AverageResponseTimeMS:   float64(d.AverageResponseTime) / float64(time.Millisecond),
		LastUpdatedAt:           updated,
	}, nil
}

// RegisterPoolRoutes sets up the pool metrics endpoint.
func RegisterPoolRoutes(routerAPI huma.API, provider contracts.PoolMetricsProvider, apiPathPrefix string) {
	poolAPI := huma.NewGroup(routerAPI, apiPathPrefix)

	huma.Register(
		poolAPI,
		huma.Operation{
			OperationID: "getPoolMetrics",
			Method:      http.MethodGet,
			Path:        "/metrics",
			Summary:     "Get the connection pool metrics aggregate",
			Tags:        []string{"Pool"},
		},
		func(ctx context.Context, _ *struct{}) (*PoolMetricsResponse, error) {
			data, err := DomainMetrics(provider.Metrics()).ToAPIType()
			if err != nil {
				return nil, err
			}
			return &PoolMetricsResponse{Body: data}, nil
		},
	)
}
