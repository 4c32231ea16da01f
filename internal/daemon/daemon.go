package daemon

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mozilla-ai/mcpool/internal/pool"
)

// Daemon serves pooled MCP server tools over the HTTP API until its context is cancelled.
// NewDaemon should be used to create instances of Daemon.
type Daemon struct {
	logger    hclog.Logger
	pool      *pool.Pool
	apiServer *APIServer
}

// NewDaemon creates a Daemon with its own connection pool, metrics registry and API server.
func NewDaemon(deps Dependencies, opt ...Option) (*Daemon, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid daemon dependencies: %w", err)
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid daemon options: %w", err)
	}

	registry := prometheus.NewRegistry()
	if opts.RuntimeMetrics {
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("failed to register Go collector: %w", err)
		}
		if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("failed to register process collector: %w", err)
		}
	}

	poolOpts := append(slices.Clone(opts.PoolOptions), pool.WithRegisterer(registry))
	p, err := pool.NewPool(deps.Logger, deps.ClientFactory, poolOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	apiDeps, err := NewAPIDependencies(deps.Logger, deps.APIAddr, deps.Servers, p, p, p, registry)
	if err != nil {
		return nil, err
	}

	apiServer, err := NewAPIServer(apiDeps, opts.APIOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon API server: %w", err)
	}

	return &Daemon{
		logger:    deps.Logger.Named("daemon"),
		pool:      p,
		apiServer: apiServer,
	}, nil
}

// Handler returns the daemon's HTTP handler without binding a listener.
func (d *Daemon) Handler() (http.Handler, error) {
	h, _, err := d.apiServer.Handler()
	return h, err
}

// StartAndManage starts periodic health sweeps and serves the API, blocking until ctx is cancelled or the
// API server fails. The pool is shut down before returning in either case.
func (d *Daemon) StartAndManage(ctx context.Context) error {
	d.pool.Start(ctx)
	defer d.pool.Shutdown()

	d.logger.Info("Daemon started")

	err := d.apiServer.Start(ctx)
	if err != nil && !stdErrors.Is(err, context.Canceled) {
		d.logger.Error("API server failed", "error", err)
	}

	return err
}
