package pool

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpool/internal/domain"
	"github.com/mozilla-ai/mcpool/internal/errors"
)

// evictor removes connections the HealthMonitor has found unhealthy.
type evictor interface {
	// evictUnhealthy releases the connection for the server if it is still not considered healthy.
	// It reports whether a connection was released.
	evictUnhealthy(serverID string) (bool, error)
}

// HealthMonitor tracks the health of pooled connections and periodically evicts unhealthy or stale ones.
// Records are only created and removed by the Registry, together with the connection they describe.
// It is safe for concurrent use by multiple goroutines.
type HealthMonitor struct {
	mu      sync.RWMutex
	records map[string]domain.HealthRecord

	interval    time.Duration
	maxFailures uint
	evictor     evictor
	metrics     *Metrics
	logger      hclog.Logger
	now         func() time.Time

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewHealthMonitor creates a monitor with no tracked servers.
// The evictor must be set with setEvictor before sweeping.
func NewHealthMonitor(logger hclog.Logger, interval time.Duration, maxFailures uint, metrics *Metrics) *HealthMonitor {
	return &HealthMonitor{
		records:     make(map[string]domain.HealthRecord),
		interval:    interval,
		maxFailures: maxFailures,
		metrics:     metrics,
		logger:      logger.Named("health"),
		now:         time.Now,
	}
}

func (h *HealthMonitor) setEvictor(e evictor) {
	h.evictor = e
}

// track starts tracking a server in the healthy state with no failures.
// Called by the Registry while it holds its lock.
func (h *HealthMonitor) track(serverID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records[serverID] = domain.HealthRecord{
		ServerID:      serverID,
		IsHealthy:     true,
		LastCheckedAt: h.now(),
	}
}

// untrack stops tracking a server.
// Called by the Registry while it holds its lock.
func (h *HealthMonitor) untrack(serverID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.records, serverID)
}

// RecordResult updates the health of a server after a call attempt.
// Success marks the server healthy and resets its failures. Failure increments the failure count and
// marks the server unhealthy once the count reaches the configured maximum.
// Results for servers that are not tracked are ignored.
func (h *HealthMonitor) RecordResult(serverID string, success bool, latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.records[serverID]
	if !ok {
		return
	}

	rec.LastCheckedAt = h.now()
	rec.LastResponseTime = latency

	if success {
		rec.IsHealthy = true
		rec.ConsecutiveFailures = 0
	} else {
		rec.ConsecutiveFailures++
		if rec.ConsecutiveFailures >= h.maxFailures {
			if rec.IsHealthy {
				h.logger.Warn("Server marked unhealthy", "server", serverID, "failures", rec.ConsecutiveFailures)
			}
			rec.IsHealthy = false
		}
	}

	h.records[serverID] = rec
}

// IsConsideredHealthy reports whether the server is tracked, flagged healthy, and was checked recently.
// A record not updated within twice the sweep interval is stale and treated as unhealthy.
func (h *HealthMonitor) IsConsideredHealthy(serverID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.records[serverID]
	if !ok {
		return false
	}

	return h.healthy(rec, h.now())
}

func (h *HealthMonitor) healthy(rec domain.HealthRecord, now time.Time) bool {
	return rec.IsHealthy && now.Sub(rec.LastCheckedAt) <= 2*h.interval
}

// Status returns the health record for a single tracked server.
func (h *HealthMonitor) Status(serverID string) (domain.HealthRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rec, ok := h.records[serverID]; ok {
		return rec, nil
	}

	return domain.HealthRecord{}, fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, serverID)
}

// List returns a copy of all health records.
func (h *HealthMonitor) List() []domain.HealthRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Collect(maps.Values(h.records))
}

// Len returns the number of tracked servers.
func (h *HealthMonitor) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.records)
}

// Sweep evicts every tracked server that is unhealthy or stale, and returns how many were evicted.
// A failure evicting one server does not stop the others being evicted.
func (h *HealthMonitor) Sweep(ctx context.Context) int {
	h.mu.RLock()
	now := h.now()
	var candidates []string
	for id, rec := range h.records {
		if !h.healthy(rec, now) {
			candidates = append(candidates, id)
		}
	}
	h.mu.RUnlock()

	if len(candidates) == 0 || h.evictor == nil {
		return 0
	}

	evicted := 0
	for _, id := range candidates {
		if ctx.Err() != nil {
			h.logger.Debug("Sweep cancelled", "remaining", len(candidates)-evicted)
			break
		}

		ok, err := h.evictor.evictUnhealthy(id)
		if err != nil {
			h.logger.Warn("Error evicting unhealthy server", "server", id, "error", err)
		}
		if ok {
			evicted++
			if h.metrics != nil {
				h.metrics.ConnectionEvicted()
			}
			h.logger.Info("Evicted unhealthy server connection", "server", id)
		}
	}

	return evicted
}

// Start begins periodic sweeps until Stop is called or ctx is cancelled.
// Calling Start more than once, or after Stop, has no effect.
func (h *HealthMonitor) Start(ctx context.Context) {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	if h.started || h.stopped {
		return
	}
	h.started = true

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})

	go h.loop(ctx)
}

// Stop cancels periodic sweeps and waits for any sweep in progress to finish.
// It is safe to call more than once.
func (h *HealthMonitor) Stop() {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true

	if h.cancel != nil {
		h.cancel()
		<-h.done
	}
}

func (h *HealthMonitor) loop(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Debug("Starting health sweeps", "interval", h.interval)

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Stopping health sweeps")
			return
		case <-ticker.C:
			if n := h.Sweep(ctx); n > 0 {
				h.logger.Info("Health sweep complete", "evicted", n)
			}
		}
	}
}
