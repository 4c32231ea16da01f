package daemon

import (
	"fmt"
	"net"
	"reflect"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mozilla-ai/mcpool/internal/contracts"
)

// APIDependencies contains the required external dependencies for the API server.
// NewAPIDependencies should be used to create instances of APIDependencies.
type APIDependencies struct {
	// Addr specifies the network address to bind (e.g., "0.0.0.0:8090").
	Addr string

	// Logger for API server operations.
	Logger hclog.Logger

	// Servers resolves configured server IDs.
	Servers contracts.ServerLookup

	// Tools provides pooled access to server tools.
	Tools contracts.ToolProvider

	// Health exposes the health of pooled connections.
	Health contracts.PoolHealthMonitor

	// Metrics exposes the pool metrics aggregate.
	Metrics contracts.PoolMetricsProvider

	// Gatherer is served on the Prometheus metrics endpoint.
	Gatherer prometheus.Gatherer
}

// NewAPIDependencies creates and validates APIDependencies.
func NewAPIDependencies(
	logger hclog.Logger,
	addr string,
	servers contracts.ServerLookup,
	tools contracts.ToolProvider,
	health contracts.PoolHealthMonitor,
	metrics contracts.PoolMetricsProvider,
	gatherer prometheus.Gatherer,
) (APIDependencies, error) {
	deps := APIDependencies{
		Addr:     addr,
		Logger:   logger,
		Servers:  servers,
		Tools:    tools,
		Health:   health,
		Metrics:  metrics,
		Gatherer: gatherer,
	}

	if err := deps.Validate(); err != nil {
		return APIDependencies{}, err
	}

	return deps, nil
}

// Validate ensures all required dependencies are provided and valid.
func (d APIDependencies) Validate() error {
	if err := validateAddr(d.Addr); err != nil {
		return fmt.Errorf("invalid API address '%s': %w", d.Addr, err)
	}
	if isNil(d.Logger) {
		return fmt.Errorf("logger cannot be nil")
	}
	if isNil(d.Servers) {
		return fmt.Errorf("server lookup cannot be nil")
	}
	if isNil(d.Tools) {
		return fmt.Errorf("tool provider cannot be nil")
	}
	if isNil(d.Health) {
		return fmt.Errorf("health monitor cannot be nil")
	}
	if isNil(d.Metrics) {
		return fmt.Errorf("metrics provider cannot be nil")
	}
	if isNil(d.Gatherer) {
		return fmt.Errorf("metrics gatherer cannot be nil")
	}
	return nil
}

// isNil reports whether v is nil or an interface holding a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// validateAddr checks addr is a "host:port" pair whose port is numeric or a known TCP service name.
func validateAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}
	if port == "" {
		return fmt.Errorf("address missing port")
	}
	if _, err := strconv.Atoi(port); err == nil {
		return nil
	}
	if _, err := net.LookupPort("tcp", port); err != nil {
		return fmt.Errorf("invalid address port: %s", port)
	}
	return nil
}
