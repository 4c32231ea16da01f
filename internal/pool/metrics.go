package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mozilla-ai/mcpool/internal/domain"
)

const metricsNamespace = "mcpool"

// Metrics aggregates connection and response statistics for the whole pool.
// It is safe for concurrent use by multiple goroutines.
type Metrics struct {
	mu sync.Mutex

	totalCreated uint64
	active       int
	failed       uint64
	avgResponse  time.Duration
	samples      uint64
	lastUpdated  time.Time

	now        func() time.Time
	collectors *collectors
}

// collectors mirror the aggregate as Prometheus metrics.
type collectors struct {
	created      prometheus.Counter
	active       prometheus.Gauge
	failed       prometheus.Counter
	responseTime *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	evictions    prometheus.Counter
}

// NewMetrics creates an empty aggregate.
// When reg is non-nil the Prometheus collectors are registered with it.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		now:        time.Now,
		collectors: newCollectors(),
	}

	if reg != nil {
		if err := m.collectors.register(reg); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return m, nil
}

func newCollectors() *collectors {
	return &collectors{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_created_total",
			Help:      "Total number of MCP server connections created",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections_active",
			Help:      "Number of live MCP server connections",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_failed_total",
			Help:      "Total number of failed connection attempts and tool list calls",
		}),
		responseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "tool_list_duration_milliseconds",
			Help:      "Duration of tool list calls in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of tool list cache lookups",
		}, []string{"result"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_evicted_total",
			Help:      "Total number of connections evicted by health sweeps",
		}),
	}
}

func (c *collectors) register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{
		c.created,
		c.active,
		c.failed,
		c.responseTime,
		c.cacheLookups,
		c.evictions,
	} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// ConnectionCreated records a new connection and the resulting number of live connections.
func (m *Metrics) ConnectionCreated(active int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCreated++
	m.active = active
	m.lastUpdated = m.now()

	m.collectors.created.Inc()
	m.collectors.active.Set(float64(active))
}

// ConnectionReleased records the number of live connections after one or more were released.
func (m *Metrics) ConnectionReleased(active int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = active
	m.lastUpdated = m.now()

	m.collectors.active.Set(float64(active))
}

// ConnectionFailed records a failed connection attempt or call.
func (m *Metrics) ConnectionFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed++
	m.lastUpdated = m.now()

	m.collectors.failed.Inc()
}

// ObserveResponse folds a call latency into the running average.
func (m *Metrics) ObserveResponse(latency time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples++
	m.avgResponse += (latency - m.avgResponse) / time.Duration(m.samples)
	m.lastUpdated = m.now()

	status := "success"
	if !success {
		status = "failure"
	}
	m.collectors.responseTime.WithLabelValues(status).Observe(float64(latency) / float64(time.Millisecond))
}

// CacheLookup records a tool list cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.collectors.cacheLookups.WithLabelValues(result).Inc()
}

// ConnectionEvicted records a connection removed by a health sweep.
func (m *Metrics) ConnectionEvicted() {
	m.collectors.evictions.Inc()
}

// Snapshot returns a copy of the current aggregate.
func (m *Metrics) Snapshot() domain.Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return domain.Metrics{
		TotalConnectionsCreated: m.totalCreated,
		ActiveConnections:       m.active,
		FailedConnections:       m.failed,
		AverageResponseTime:     m.avgResponse,
		LastUpdatedAt:           m.lastUpdated,
	}
}
