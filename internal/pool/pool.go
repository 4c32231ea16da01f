package pool

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpool/internal/cache"
	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/domain"
	"github.com/mozilla-ai/mcpool/internal/errors"
)

var (
	_ contracts.ToolProvider        = (*Pool)(nil)
	_ contracts.PoolHealthMonitor   = (*Pool)(nil)
	_ contracts.PoolMetricsProvider = (*Pool)(nil)
)

// Pool is the entry point for fetching the tools of MCP servers through pooled connections.
// It coordinates the tool cache, the connection registry, the health monitor and the metrics aggregate,
// and owns no state of its own beyond its lifecycle.
//
// A process is expected to construct a single Pool, start it once, and share it with every caller.
// NewPool should be used to create instances of Pool.
type Pool struct {
	logger   hclog.Logger
	cache    *cache.Cache
	registry *Registry
	monitor  *HealthMonitor
	metrics  *Metrics
	cacheTTL time.Duration

	shutdownOnce sync.Once
}

// NewPool creates a Pool which connects to servers using the given factory.
// Start must be called to begin periodic health sweeps.
func NewPool(logger hclog.Logger, factory contracts.ClientFactory, opt ...Option) (*Pool, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if factory == nil {
		return nil, fmt.Errorf("client factory cannot be nil")
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid pool options: %w", err)
	}

	logger = logger.Named("pool")

	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}

	toolCache, err := cache.NewCache(logger, cache.WithCapacity(opts.CacheCapacity))
	if err != nil {
		return nil, fmt.Errorf("failed to create tool cache: %w", err)
	}

	monitor := NewHealthMonitor(logger, opts.HealthCheckInterval, opts.MaxConsecutiveFailures, metrics)
	registry := newRegistry(logger, registryConfig{
		factory: factory,
		clientOpts: contracts.ClientOptions{
			Timeout:    opts.ClientTimeout,
			Retries:    opts.ClientRetries,
			MaxBackoff: opts.ClientMaxBackoff,
		},
		maxConnections:  opts.MaxConnections,
		shutdownTimeout: opts.ClientShutdownTimeout,
		urlPolicy:       opts.URLPolicy,
	}, monitor, metrics)

	return &Pool{
		logger:   logger,
		cache:    toolCache,
		registry: registry,
		monitor:  monitor,
		metrics:  metrics,
		cacheTTL: opts.CacheTTL,
	}, nil
}

// Start begins periodic health sweeps. Calling it more than once has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.monitor.Start(ctx)
}

// GetTools returns the tools exposed by the server.
//
// A fresh cached result is returned without contacting the server. Otherwise a pooled connection is
// acquired (or created) and the server asked for its tools, with the outcome recorded against the
// connection that served the call and the pool metrics. Failures are returned as typed errors and never
// retried here. A single failed call does not drop the connection; eviction is left to the health monitor.
//
// Cancellation or expiry of ctx is scoped to the call and is not held against the server.
// Tools fetched across a ForceReconnect are returned but not cached, and a call overtaken by Shutdown
// fails with ErrPoolClosed.
func (p *Pool) GetTools(ctx context.Context, server domain.ServerConfig) ([]mcp.Tool, error) {
	id := strings.TrimSpace(server.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: server id cannot be empty", errors.ErrBadRequest)
	}
	server.ID = id

	if tools, ok := p.cache.Get(id, p.cacheTTL); ok {
		p.metrics.CacheLookup(true)
		p.logger.Trace("Tool cache hit", "server", id)
		return tools, nil
	}
	p.metrics.CacheLookup(false)

	token := p.cache.Token(id)

	conn, err := p.registry.acquire(ctx, server)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.metrics.ConnectionFailed()
		p.logger.Error("Failed to acquire server connection", "server", id, "error", err)
		return nil, err
	}

	start := time.Now()
	tools, err := conn.client.ListTools(ctx)
	latency := time.Since(start)

	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	p.metrics.ObserveResponse(latency, err == nil)
	current := p.registry.recordResult(conn, err == nil, latency)

	if err != nil {
		p.metrics.ConnectionFailed()

		err = Classify(err)
		p.logger.Warn("Tool list failed", "server", id, "latency", latency, "error", err)

		return nil, fmt.Errorf("failed to list tools for server '%s': %w", id, err)
	}

	if current {
		p.cache.PutIfCurrent(id, token, tools)
	}
	if p.registry.Closed() {
		return nil, errors.ErrPoolClosed
	}
	p.logger.Debug("Fetched tools", "server", id, "count", len(tools), "latency", latency)

	return slices.Clone(tools), nil
}

// ForceReconnect drops the pooled connection and cached tools for the server.
// The next GetTools call for the server connects again from scratch.
func (p *Pool) ForceReconnect(serverID string) {
	p.logger.Info("Forcing reconnect", "server", serverID)

	if err := p.registry.Release(serverID); err != nil {
		p.logger.Warn("Error releasing connection during reconnect", "server", serverID, "error", err)
	}
	p.cache.Invalidate(serverID)
}

// Shutdown stops health sweeps, disconnects every client and clears the cache.
// It is safe to call more than once; later calls have no effect.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.logger.Info("Shutting down connection pool")

		p.monitor.Stop()
		if err := p.registry.ReleaseAll(); err != nil {
			p.logger.Warn("Errors releasing connections during shutdown", "error", err)
		}
		p.cache.Close()

		p.logger.Info("Connection pool shut down")
	})
}

// Status returns the health record for a single pooled server.
func (p *Pool) Status(serverID string) (domain.HealthRecord, error) {
	return p.monitor.Status(serverID)
}

// List returns the health records of all pooled servers.
func (p *Pool) List() []domain.HealthRecord {
	return p.monitor.List()
}

// Metrics returns a copy of the pool metrics aggregate.
func (p *Pool) Metrics() domain.Metrics {
	return p.metrics.Snapshot()
}
