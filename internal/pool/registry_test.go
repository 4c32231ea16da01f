package pool

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/errors"
)

func newTestRegistry(t *testing.T, f *fakeFactory, maxConnections int) (*Registry, *HealthMonitor, *Metrics) {
	t.Helper()

	logger := hclog.NewNullLogger()
	metrics, err := NewMetrics(nil)
	require.NoError(t, err)

	monitor := NewHealthMonitor(logger, time.Minute, 3, metrics)
	r := newRegistry(logger, registryConfig{
		factory:         f.factory(),
		clientOpts:      contracts.ClientOptions{Timeout: time.Second, Retries: 1},
		maxConnections:  maxConnections,
		shutdownTimeout: time.Second,
		urlPolicy:       URLPolicy{AllowedSchemes: DefaultAllowedSchemes()},
	}, monitor, metrics)

	return r, monitor, metrics
}

// requirePaired asserts every connection has a health record and vice versa.
func requirePaired(t *testing.T, r *Registry, h *HealthMonitor) {
	t.Helper()

	ids := r.IDs()
	require.Equal(t, len(ids), h.Len())
	for _, id := range ids {
		_, err := h.Status(id)
		require.NoError(t, err, "missing health record for %s", id)
	}
}

func TestRegistry_AcquireCreatesAndReuses(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	r, h, m := newTestRegistry(t, f, 5)

	c1, err := r.Acquire(context.Background(), server("s1"))
	require.NoError(t, err)
	c2, err := r.Acquire(context.Background(), server("s1"))
	require.NoError(t, err)

	require.Same(t, c1, c2)
	require.Equal(t, 1, f.count())
	require.Equal(t, []contracts.ClientOptions{{Timeout: time.Second, Retries: 1}}, f.received)
	requirePaired(t, r, h)

	rec, err := h.Status("s1")
	require.NoError(t, err)
	require.True(t, rec.IsHealthy)
	require.Equal(t, uint(0), rec.ConsecutiveFailures)

	require.Equal(t, 1, m.Snapshot().ActiveConnections)
}

func TestRegistry_ConcurrentAcquireSameServer(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	f.delay = 30 * time.Millisecond
	r, h, _ := newTestRegistry(t, f, 5)

	var wg sync.WaitGroup
	clients := make([]contracts.ToolClient, 25)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.Acquire(context.Background(), server("s1"))
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, f.count())
	require.Equal(t, 1, r.Len())
	for _, c := range clients {
		require.Same(t, clients[0], c)
	}
	requirePaired(t, r, h)
}

func TestRegistry_AcquireAtCapacityAllHealthy(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	r, h, _ := newTestRegistry(t, f, 2)

	for _, id := range []string{"s1", "s2"} {
		_, err := r.Acquire(context.Background(), server(id))
		require.NoError(t, err)
	}

	_, err := r.Acquire(context.Background(), server("s3"))
	require.ErrorIs(t, err, errors.ErrCapacityExceeded)
	require.Equal(t, 2, r.Len())
	require.Equal(t, 2, f.count())
	require.False(t, r.Has("s3"))
	requirePaired(t, r, h)
}

func TestRegistry_AcquireAtCapacitySweepsUnhealthy(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	r, h, _ := newTestRegistry(t, f, 2)

	for _, id := range []string{"s1", "s2"} {
		_, err := r.Acquire(context.Background(), server(id))
		require.NoError(t, err)
	}
	for range 3 {
		h.RecordResult("s1", false, time.Millisecond)
	}

	_, err := r.Acquire(context.Background(), server("s3"))
	require.NoError(t, err)
	require.Equal(t, []string{"s2", "s3"}, r.IDs())
	require.True(t, f.latest("s1").wasClosed())
	requirePaired(t, r, h)
}

func TestRegistry_AcquireReplacesStaleEntry(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	r, h, _ := newTestRegistry(t, f, 2)

	_, err := r.Acquire(context.Background(), server("s1"))
	require.NoError(t, err)
	first := f.latest("s1")

	// Not checked for longer than twice the interval.
	h.now = func() time.Time { return time.Now().Add(3 * time.Minute) }

	_, err = r.Acquire(context.Background(), server("s1"))
	require.NoError(t, err)
	require.Equal(t, 2, f.count())
	require.True(t, first.wasClosed())
	require.Equal(t, 1, r.Len())
}

func TestRegistry_AcquireInvalidURLFailsFast(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	r, _, _ := newTestRegistry(t, f, 2)

	tests := []string{
		"",
		"ftp://example.com",
		"http://127.0.0.1:8080/mcp",
		"http://169.254.169.254/latest/meta-data",
		"https://localhost/mcp",
	}

	for _, u := range tests {
		s := server("s1")
		s.URL = u
		_, err := r.Acquire(context.Background(), s)
		require.ErrorIs(t, err, errors.ErrInvalidServerURL, "url %q", u)
	}

	require.Equal(t, 0, f.count())
	require.Equal(t, 0, r.Len())
}

func TestRegistry_AcquireConnectError(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	f.err = fmt.Errorf("dial tcp: %w", context.DeadlineExceeded)
	r, h, _ := newTestRegistry(t, f, 1)

	_, err := r.Acquire(context.Background(), server("s1"))
	require.ErrorIs(t, err, errors.ErrConnectFailed)
	require.ErrorIs(t, err, errors.ErrTimeout)
	require.Equal(t, 0, r.Len())
	require.Equal(t, 0, h.Len())

	// The failed attempt must not hold on to the only slot.
	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
	_, err = r.Acquire(context.Background(), server("s1"))
	require.NoError(t, err)
}

func TestRegistry_AcquireWaiterCancellation(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	f.delay = 200 * time.Millisecond
	r, _, _ := newTestRegistry(t, f, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Acquire(ctx, server("s1"))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The connection attempt continues and completes for later callers.
	require.Eventually(t, func() bool { return r.Has("s1") }, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, f.count())
}

func TestRegistry_Release(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	f.prepare = func(_ string, c *fakeClient) {
		c.closeErr = stdErrors.New("close failed")
	}
	r, h, m := newTestRegistry(t, f, 2)

	_, err := r.Acquire(context.Background(), server("s1"))
	require.NoError(t, err)

	err = r.Release("s1")
	require.ErrorContains(t, err, "close failed")
	require.False(t, r.Has("s1"))
	require.Equal(t, 0, h.Len())
	require.Equal(t, 0, m.Snapshot().ActiveConnections)

	// Releasing an unknown server is a no-op.
	require.NoError(t, r.Release("s1"))
}

func TestRegistry_ReleaseTimesOutSlowClose(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	f.prepare = func(_ string, c *fakeClient) {
		c.closeDelay = 2 * time.Second
	}
	r, _, _ := newTestRegistry(t, f, 2)
	r.shutdownTimeout = 50 * time.Millisecond

	_, err := r.Acquire(context.Background(), server("s1"))
	require.NoError(t, err)

	start := time.Now()
	err = r.Release("s1")
	require.ErrorContains(t, err, "timed out")
	require.Less(t, time.Since(start), time.Second)
	require.False(t, r.Has("s1"))
}

func TestRegistry_ReleaseAll(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	f.prepare = func(id string, c *fakeClient) {
		if id == "s2" {
			c.closeErr = stdErrors.New("close failed")
		}
		c.closeDelay = 100 * time.Millisecond
	}
	r, h, _ := newTestRegistry(t, f, 5)

	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := r.Acquire(context.Background(), server(id))
		require.NoError(t, err)
	}

	start := time.Now()
	err := r.ReleaseAll()
	require.ErrorContains(t, err, "close failed")
	require.Less(t, time.Since(start), 250*time.Millisecond, "clients should be closed in parallel")

	require.Equal(t, 0, r.Len())
	require.Equal(t, 0, h.Len())
	for _, id := range []string{"s1", "s2", "s3"} {
		require.True(t, f.latest(id).wasClosed())
	}

	require.NoError(t, r.ReleaseAll())

	_, err = r.Acquire(context.Background(), server("s4"))
	require.ErrorIs(t, err, errors.ErrPoolClosed)
}

func TestRegistry_ReleaseAllDuringConnect(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	f.delay = 50 * time.Millisecond
	r, h, _ := newTestRegistry(t, f, 2)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Acquire(context.Background(), server("s1"))
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.ReleaseAll())

	require.ErrorIs(t, <-errCh, errors.ErrPoolClosed)
	require.Equal(t, 0, r.Len())
	require.Equal(t, 0, h.Len())
	require.True(t, f.latest("s1").wasClosed())
}

func TestRegistry_EvictUnhealthySkipsHealthy(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	r, _, _ := newTestRegistry(t, f, 2)

	_, err := r.Acquire(context.Background(), server("s1"))
	require.NoError(t, err)

	ok, err := r.evictUnhealthy("s1")
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, r.Has("s1"))

	ok, err = r.evictUnhealthy("unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegistry_AtMostOneEntryUnderChurn(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	r, h, _ := newTestRegistry(t, f, 3)

	var wg sync.WaitGroup
	for i := range 60 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%3)
			switch i % 4 {
			case 0:
				_ = r.Release(id)
			case 1:
				h.RecordResult(id, false, time.Millisecond)
			default:
				_, _ = r.Acquire(context.Background(), server(id))
			}
		}(i)
	}
	wg.Wait()

	require.LessOrEqual(t, r.Len(), 3)
	requirePaired(t, r, h)
}

func TestRegistry_ConnectBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts contracts.ClientOptions
		want time.Duration
	}{
		{
			name: "no retries",
			opts: contracts.ClientOptions{Timeout: time.Second, MaxBackoff: 2 * time.Second},
			want: time.Second,
		},
		{
			name: "each retry adds a timeout and a backoff",
			opts: contracts.ClientOptions{Timeout: time.Second, Retries: 2, MaxBackoff: 2 * time.Second},
			want: 3*time.Second + 4*time.Second,
		},
		{
			name: "no backoff configured",
			opts: contracts.ClientOptions{Timeout: time.Second, Retries: 1},
			want: 2 * time.Second,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := &Registry{clientOpts: tc.opts}
			require.Equal(t, tc.want, r.connectBudget())
		})
	}
}

func TestRegistry_RecordResultFollowsConnection(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	r, h, _ := newTestRegistry(t, f, 5)

	old, err := r.acquire(context.Background(), server("s1"))
	require.NoError(t, err)
	require.True(t, r.recordResult(old, false, time.Millisecond))

	rec, err := h.Status("s1")
	require.NoError(t, err)
	require.Equal(t, uint(1), rec.ConsecutiveFailures)

	require.NoError(t, r.Release("s1"))
	current, err := r.acquire(context.Background(), server("s1"))
	require.NoError(t, err)
	require.NotEqual(t, old.connectionID, current.connectionID)

	// A late failure from the released connection leaves the new record untouched.
	require.False(t, r.recordResult(old, false, time.Millisecond))
	rec, err = h.Status("s1")
	require.NoError(t, err)
	require.Zero(t, rec.ConsecutiveFailures)
	require.True(t, rec.IsHealthy)

	require.NoError(t, r.Release("s1"))
	require.False(t, r.recordResult(current, true, time.Millisecond))
	require.False(t, r.Closed())

	require.NoError(t, r.ReleaseAll())
	require.True(t, r.Closed())
}
