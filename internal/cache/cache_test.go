package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, opts ...Option) (*Cache, *fakeClock) {
	t.Helper()

	c, err := NewCache(hclog.NewNullLogger(), opts...)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.Now

	return c, clock
}

func tools(names ...string) []mcp.Tool {
	out := make([]mcp.Tool, 0, len(names))
	for _, n := range names {
		out = append(out, mcp.Tool{Name: n})
	}
	return out
}

func TestCache_New(t *testing.T) {
	t.Parallel()

	tc := []struct {
		name        string
		opts        []Option
		wantCap     int
		expectError bool
	}{
		{
			name:    "defaults",
			wantCap: DefaultCapacity(),
		},
		{
			name:    "custom capacity",
			opts:    []Option{WithCapacity(3)},
			wantCap: 3,
		},
		{
			name:    "nil option ignored",
			opts:    []Option{nil},
			wantCap: DefaultCapacity(),
		},
		{
			name:        "zero capacity",
			opts:        []Option{WithCapacity(0)},
			expectError: true,
		},
		{
			name:        "negative capacity",
			opts:        []Option{WithCapacity(-1)},
			expectError: true,
		},
	}

	for _, testCase := range tc {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewCache(hclog.NewNullLogger(), testCase.opts...)
			if testCase.expectError {
				require.Error(t, err)
				require.Nil(t, c)
				return
			}

			require.NoError(t, err)
			require.Equal(t, testCase.wantCap, c.capacity)
			require.Equal(t, 0, c.Len())
		})
	}
}

func TestCache_GetBeforeExpiry(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache(t)

	c.Put("a", tools("search", "fetch"))
	clock.Advance(30 * time.Second)

	got, ok := c.Get("a", time.Minute)
	require.True(t, ok)
	require.Equal(t, tools("search", "fetch"), got)
}

func TestCache_GetAfterExpiryRemovesEntry(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache(t)

	c.Put("a", tools("search"))
	clock.Advance(time.Minute + time.Millisecond)

	got, ok := c.Get("a", time.Minute)
	require.False(t, ok)
	require.Nil(t, got)
	require.Equal(t, 0, c.Len())
}

func TestCache_GetMiss(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)

	_, ok := c.Get("missing", time.Minute)
	require.False(t, ok)
}

func TestCache_PutOverwrites(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache(t)

	c.Put("a", tools("old"))
	clock.Advance(50 * time.Second)
	c.Put("a", tools("new"))
	clock.Advance(50 * time.Second)

	// Overwrite resets storedAt, so the entry is still fresh.
	got, ok := c.Get("a", time.Minute)
	require.True(t, ok)
	require.Equal(t, tools("new"), got)
	require.Equal(t, 1, c.Len())
}

func TestCache_EvictsLeastRecentlyAccessed(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache(t, WithCapacity(3))

	c.Put("a", tools("a"))
	clock.Advance(time.Second)
	c.Put("b", tools("b"))
	clock.Advance(time.Second)
	c.Put("c", tools("c"))
	clock.Advance(time.Second)

	// Reading "a" makes "b" the least recently accessed even though "a" was stored first.
	_, ok := c.Get("a", time.Hour)
	require.True(t, ok)
	clock.Advance(time.Second)

	c.Put("d", tools("d"))

	require.Equal(t, 3, c.Len())
	_, ok = c.Get("b", time.Hour)
	require.False(t, ok, "b should have been evicted")

	for _, id := range []string{"a", "c", "d"} {
		_, ok := c.Get(id, time.Hour)
		require.True(t, ok, "expected %s to remain cached", id)
	}
}

func TestCache_PutExistingAtCapacityDoesNotEvict(t *testing.T) {
	t.Parallel()

	c, clock := newTestCache(t, WithCapacity(2))

	c.Put("a", tools("a"))
	clock.Advance(time.Second)
	c.Put("b", tools("b"))
	clock.Advance(time.Second)
	c.Put("a", tools("a2"))

	require.Equal(t, 2, c.Len())
	_, ok := c.Get("b", time.Hour)
	require.True(t, ok)
}

func TestCache_InvalidateAndClear(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)

	c.Put("a", tools("a"))
	c.Put("b", tools("b"))

	c.Invalidate("a")
	_, ok := c.Get("a", time.Hour)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())

	// Invalidating an unknown server is a no-op.
	c.Invalidate("unknown")

	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestCache_ReturnsCopies(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)

	in := tools("a")
	c.Put("a", in)
	in[0].Name = "mutated"

	got, ok := c.Get("a", time.Hour)
	require.True(t, ok)
	require.Equal(t, "a", got[0].Name)

	got[0].Name = "mutated again"
	again, _ := c.Get("a", time.Hour)
	require.Equal(t, "a", again[0].Name)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t, WithCapacity(10))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("server-%d", i%20)
			c.Put(id, tools(id))
			_, _ = c.Get(id, time.Hour)
			if i%7 == 0 {
				c.Invalidate(id)
			}
		}(i)
	}
	wg.Wait()

	require.LessOrEqual(t, c.Len(), 10)
}

func TestCache_PutIfCurrent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		afterToken func(c *Cache)
		wantStored bool
	}{
		{
			name:       "nothing changed",
			afterToken: func(*Cache) {},
			wantStored: true,
		},
		{
			name:       "another server invalidated",
			afterToken: func(c *Cache) { c.Invalidate("weather") },
			wantStored: true,
		},
		{
			name:       "server invalidated mid-fetch",
			afterToken: func(c *Cache) { c.Invalidate("time") },
		},
		{
			name:       "cache cleared mid-fetch",
			afterToken: func(c *Cache) { c.Clear() },
		},
		{
			name:       "cache closed mid-fetch",
			afterToken: func(c *Cache) { c.Close() },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newTestCache(t)
			token := c.Token("time")
			tc.afterToken(c)

			require.Equal(t, tc.wantStored, c.PutIfCurrent("time", token, tools("get_current_time")))

			_, ok := c.Get("time", time.Hour)
			require.Equal(t, tc.wantStored, ok)
		})
	}
}

func TestCache_TokenAfterInvalidateIsCurrent(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)

	c.Invalidate("time")
	c.Clear()

	require.True(t, c.PutIfCurrent("time", c.Token("time"), tools("get_current_time")))
	require.Equal(t, 1, c.Len())
}

func TestCache_CloseRejectsPut(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	c.Put("time", tools("get_current_time"))

	c.Close()
	require.Equal(t, 0, c.Len())

	c.Put("time", tools("get_current_time"))
	require.False(t, c.PutIfCurrent("time", c.Token("time"), tools("get_current_time")))
	require.Equal(t, 0, c.Len())
}
