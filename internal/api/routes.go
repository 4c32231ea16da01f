package api

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/mcpool/internal/contracts"
)

// APIVersion is the version used in URL paths.
const APIVersion = "v1"

// RegisterRoutes registers all API routes on the provided Huma router.
// This is the single source of truth for the API route structure.
// Returns the API path prefix (e.g., "/api/v1") under which the routes are created.
func RegisterRoutes(
	router huma.API,
	servers contracts.ServerLookup,
	tools contracts.ToolProvider,
	health contracts.PoolHealthMonitor,
	metrics contracts.PoolMetricsProvider,
) (string, error) {
	if router == nil || reflect.ValueOf(router).IsNil() {
		return "", fmt.Errorf("router cannot be nil")
	}
	if servers == nil || reflect.ValueOf(servers).IsNil() {
		return "", fmt.Errorf("server lookup cannot be nil")
	}
	if tools == nil || reflect.ValueOf(tools).IsNil() {
		return "", fmt.Errorf("tool provider cannot be nil")
	}
	if health == nil || reflect.ValueOf(health).IsNil() {
		return "", fmt.Errorf("health monitor cannot be nil")
	}
	if metrics == nil || reflect.ValueOf(metrics).IsNil() {
		return "", fmt.Errorf("metrics provider cannot be nil")
	}

	apiPathPrefix, err := url.JoinPath("/api", APIVersion)
	if err != nil {
		return "", fmt.Errorf("failed to construct API path prefix: %w", err)
	}

	versionedGroup := huma.NewGroup(router, apiPathPrefix)
	RegisterToolRoutes(versionedGroup, servers, tools, "/tools")
	RegisterServerRoutes(versionedGroup, servers, tools, "/servers")
	RegisterHealthRoutes(versionedGroup, health, "/health")
	RegisterPoolRoutes(versionedGroup, metrics, "/pool")

	return apiPathPrefix, nil
}
