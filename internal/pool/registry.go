package pool

import (
	"context"
	stdErrors "errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"

	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/domain"
	"github.com/mozilla-ai/mcpool/internal/errors"
)

// connectionEntry is a live client for one server.
type connectionEntry struct {
	serverID     string
	connectionID string
	client       contracts.ToolClient
	createdAt    time.Time
}

// Registry holds at most one live client per server, creating clients on demand and reusing them while
// they are healthy. The number of live clients is capped.
// It is safe for concurrent use by multiple goroutines.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*connectionEntry

	// pending counts connections being established, which count towards the ceiling.
	pending int
	closed  bool

	group singleflight.Group

	factory         contracts.ClientFactory
	clientOpts      contracts.ClientOptions
	maxConnections  int
	shutdownTimeout time.Duration
	urlPolicy       URLPolicy

	monitor *HealthMonitor
	metrics *Metrics
	logger  hclog.Logger
	now     func() time.Time
}

// registryConfig holds the Registry settings taken from Options.
type registryConfig struct {
	factory         contracts.ClientFactory
	clientOpts      contracts.ClientOptions
	maxConnections  int
	shutdownTimeout time.Duration
	urlPolicy       URLPolicy
}

// newRegistry creates an empty Registry and installs it as the monitor's evictor.
func newRegistry(logger hclog.Logger, cfg registryConfig, monitor *HealthMonitor, metrics *Metrics) *Registry {
	r := &Registry{
		entries:         make(map[string]*connectionEntry),
		factory:         cfg.factory,
		clientOpts:      cfg.clientOpts,
		maxConnections:  cfg.maxConnections,
		shutdownTimeout: cfg.shutdownTimeout,
		urlPolicy:       cfg.urlPolicy,
		monitor:         monitor,
		metrics:         metrics,
		logger:          logger.Named("registry"),
		now:             time.Now,
	}
	monitor.setEvictor(r)

	return r
}

// Acquire returns the live client for the server, connecting when there is no healthy client.
// Concurrent calls for the same server share a single connection attempt. Cancelling ctx abandons
// the wait for this caller only; the attempt itself is bounded by the client timeout.
func (r *Registry) Acquire(ctx context.Context, server domain.ServerConfig) (contracts.ToolClient, error) {
	e, err := r.acquire(ctx, server)
	if err != nil {
		return nil, err
	}
	return e.client, nil
}

// acquire is Acquire returning the connection entry, so results can be recorded against it.
func (r *Registry) acquire(ctx context.Context, server domain.ServerConfig) (*connectionEntry, error) {
	id := strings.TrimSpace(server.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: server id cannot be empty", errors.ErrBadRequest)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.ErrPoolClosed
	}
	if e, ok := r.entries[id]; ok && r.monitor.IsConsideredHealthy(id) {
		r.mu.Unlock()
		return e, nil
	}
	r.mu.Unlock()

	connectCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(id, func() (any, error) {
		return r.connect(connectCtx, id, server)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*connectionEntry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// recordResult records a call outcome against the connection that served it.
// Outcomes for a connection that has since been released or replaced are dropped.
// It reports whether the connection is still the server's current one.
func (r *Registry) recordResult(e *connectionEntry, success bool, latency time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.entries[e.serverID]; !ok || current.connectionID != e.connectionID {
		r.logger.Debug("Ignoring result for replaced connection", "server", e.serverID, "connection", e.connectionID)
		return false
	}
	r.monitor.RecordResult(e.serverID, success, latency)

	return true
}

// Closed reports whether ReleaseAll has been called.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// connectBudget bounds a connection attempt: every permitted attempt gets the full client timeout,
// and every retry may first wait up to the client's maximum backoff.
func (r *Registry) connectBudget() time.Duration {
	retries := time.Duration(r.clientOpts.Retries)
	return r.clientOpts.Timeout*(retries+1) + r.clientOpts.MaxBackoff*retries
}

// connect establishes a new client for the server, replacing an unhealthy one.
// Only one connect runs per server at a time.
func (r *Registry) connect(ctx context.Context, id string, server domain.ServerConfig) (*connectionEntry, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.ErrPoolClosed
	}
	var replaced *connectionEntry
	if e, ok := r.entries[id]; ok {
		if r.monitor.IsConsideredHealthy(id) {
			r.mu.Unlock()
			return e, nil
		}
		replaced = r.removeLocked(id)
	}
	active := len(r.entries)
	r.mu.Unlock()

	if replaced != nil {
		r.logger.Info("Replacing unhealthy connection", "server", id, "connection", replaced.connectionID)
		r.metrics.ConnectionReleased(active)
		_ = r.disconnect(replaced)
	}

	if err := r.urlPolicy.Validate(server.URL); err != nil {
		return nil, err
	}

	if err := r.reserve(ctx); err != nil {
		return nil, err
	}

	r.logger.Debug("Connecting to server", "server", id, "name", server.Name, "url", server.URL)

	factoryCtx, cancel := context.WithTimeout(ctx, r.connectBudget())
	defer cancel()

	c, err := r.factory(factoryCtx, server, r.clientOpts)

	r.mu.Lock()
	r.pending--
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrConnectFailed, id, Classify(err))
	}
	if r.closed {
		r.mu.Unlock()
		_ = r.disconnect(&connectionEntry{serverID: id, client: c})
		return nil, errors.ErrPoolClosed
	}

	e := &connectionEntry{
		serverID:     id,
		connectionID: uuid.NewString(),
		client:       c,
		createdAt:    r.now(),
	}
	r.entries[id] = e
	r.monitor.track(id)
	active = len(r.entries)
	r.mu.Unlock()

	r.metrics.ConnectionCreated(active)
	r.logger.Info("Connected to server", "server", id, "connection", e.connectionID, "active", active)

	return e, nil
}

// reserve claims a connection slot, sweeping unhealthy connections when the pool is full.
func (r *Registry) reserve(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.ErrPoolClosed
	}
	if len(r.entries)+r.pending < r.maxConnections {
		r.pending++
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	r.logger.Debug("Connection pool full, sweeping unhealthy connections", "max", r.maxConnections)
	r.monitor.Sweep(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.ErrPoolClosed
	}
	if inUse := len(r.entries) + r.pending; inUse >= r.maxConnections {
		return fmt.Errorf("%w: %d of %d connections in use", errors.ErrCapacityExceeded, inUse, r.maxConnections)
	}
	r.pending++

	return nil
}

// Release disconnects and removes the client for the server along with its health record.
// The entry is always removed; a disconnect error is logged and returned for information only.
func (r *Registry) Release(serverID string) error {
	r.mu.Lock()
	e := r.removeLocked(serverID)
	active := len(r.entries)
	r.mu.Unlock()

	if e == nil {
		return nil
	}

	r.metrics.ConnectionReleased(active)

	return r.disconnect(e)
}

// evictUnhealthy releases the client for the server only if it is still not considered healthy.
func (r *Registry) evictUnhealthy(serverID string) (bool, error) {
	r.mu.Lock()
	if _, ok := r.entries[serverID]; !ok || r.monitor.IsConsideredHealthy(serverID) {
		r.mu.Unlock()
		return false, nil
	}
	e := r.removeLocked(serverID)
	active := len(r.entries)
	r.mu.Unlock()

	r.metrics.ConnectionReleased(active)

	return true, r.disconnect(e)
}

// ReleaseAll disconnects and removes every client and stops new clients being created.
// Every client is released even when others fail to disconnect; the failures are returned joined.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	r.closed = true
	entries := make([]*connectionEntry, 0, len(r.entries))
	for id := range r.entries {
		entries = append(entries, r.removeLocked(id))
	}
	r.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	r.logger.Info("Releasing all server connections", "count", len(entries))
	r.metrics.ConnectionReleased(0)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, e := range entries {
		wg.Add(1)
		go func(e *connectionEntry) {
			defer wg.Done()
			if err := r.disconnect(e); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(e)
	}
	wg.Wait()

	return stdErrors.Join(errs...)
}

// Has reports whether the registry holds a client for the server.
func (r *Registry) Has(serverID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[serverID]
	return ok
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// IDs returns the sorted IDs of servers with live clients.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// removeLocked removes the entry and its health record as a unit.
// Callers must hold r.mu.
func (r *Registry) removeLocked(serverID string) *connectionEntry {
	e, ok := r.entries[serverID]
	if !ok {
		return nil
	}
	delete(r.entries, serverID)
	r.monitor.untrack(serverID)

	return e
}

// disconnect closes the client, giving up after the shutdown timeout.
func (r *Registry) disconnect(e *connectionEntry) error {
	r.logger.Debug("Closing client", "server", e.serverID, "connection", e.connectionID)

	done := make(chan error, 1)
	go func() {
		done <- e.client.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			r.logger.Warn("Error closing client", "server", e.serverID, "error", err)
			return fmt.Errorf("failed to close client for server '%s': %w", e.serverID, err)
		}
		r.logger.Debug("Closed client", "server", e.serverID)
		return nil
	case <-time.After(r.shutdownTimeout):
		r.logger.Warn("Timeout closing client", "server", e.serverID, "timeout", r.shutdownTimeout)
		return fmt.Errorf("timed out closing client for server '%s' after %s", e.serverID, r.shutdownTimeout)
	}
}
