package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/domain"
)

// DomainHealthRecord is a wrapper that allows receivers to be declared in the API package that deal with domain types.
type DomainHealthRecord domain.HealthRecord

// ServerHealth is the API view of a pooled connection's health.
type ServerHealth struct {
	ServerID            string     `json:"serverId"`
	Healthy             bool       `json:"healthy"`
	ConsecutiveFailures uint       `json:"consecutiveFailures"`
	LastCheckedAt       *time.Time `json:"lastCheckedAt,omitempty"`
	LastResponseTime    *string    `json:"lastResponseTime,omitempty"`
}

// ServersHealthResponse is the response for GET /health/servers.
type ServersHealthResponse struct {
	Body struct {
		Servers []ServerHealth `doc:"Health of pooled server connections" json:"servers"`
	}
}

// ServerHealthRequest represents the incoming request for obtaining ServerHealth.
type ServerHealthRequest struct {
	ID string `doc:"ID of the server to check" example:"search" path:"id"`
}

// ServerHealthResponse represents the wrapped API response for a ServerHealth.
type ServerHealthResponse struct {
	Body ServerHealth
}

// ToAPIType can be used to convert a wrapped domain type to an API-safe type.
func (d DomainHealthRecord) ToAPIType() (ServerHealth, error) {
	var lastChecked *time.Time
	if !d.LastCheckedAt.IsZero() {
		t := d.LastCheckedAt
		lastChecked = &t
	}

	var latency *string
	if d.LastResponseTime > 0 {
		s := d.LastResponseTime.String()
		latency = &s
	}

	return ServerHealth{
		ServerID:            d.ServerID,
		Healthy:             d.IsHealthy,
		ConsecutiveFailures: d.ConsecutiveFailures,
		LastCheckedAt:       lastChecked,
		LastResponseTime:    latency,
	}, nil
}

// RegisterHealthRoutes sets up health-related API endpoint routes.
func RegisterHealthRoutes(routerAPI huma.API, monitor contracts.PoolHealthMonitor, apiPathPrefix string) {
	healthAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Health"}

	huma.Register(
		healthAPI,
		huma.Operation{
			OperationID: "listServersHealth",
			Method:      http.MethodGet,
			Path:        "/servers",
			Summary:     "List the health of all pooled server connections",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*ServersHealthResponse, error) {
			return handleHealthServers(monitor)
		},
	)

	huma.Register(
		healthAPI,
		huma.Operation{
			OperationID: "getServerHealth",
			Method:      http.MethodGet,
			Path:        "/servers/{id}",
			Summary:     "Get the health of a pooled server connection",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServerHealthRequest) (*ServerHealthResponse, error) {
			return handleHealthServer(monitor, input.ID)
		},
	)
}

// handleHealthServers returns the health of every pooled connection, sorted by server ID.
func handleHealthServers(monitor contracts.PoolHealthMonitor) (*ServersHealthResponse, error) {
	records := monitor.List()
	slices.SortFunc(records, func(a, b domain.HealthRecord) int {
		return strings.Compare(a.ServerID, b.ServerID)
	})

	wrapped := make([]DomainHealthRecord, len(records))
	for i, r := range records {
		wrapped[i] = DomainHealthRecord(r)
	}

	apiServers, err := convertAll[ServerHealth](wrapped)
	if err != nil {
		return nil, err
	}

	resp := &ServersHealthResponse{}
	resp.Body.Servers = apiServers

	return resp, nil
}

// handleHealthServer returns the health of the pooled connection for the specified server.
func handleHealthServer(monitor contracts.PoolHealthMonitor, id string) (*ServerHealthResponse, error) {
	record, err := monitor.Status(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	data, err := DomainHealthRecord(record).ToAPIType()
	if err != nil {
		return nil, err
	}

	return &ServerHealthResponse{Body: data}, nil
}
