package cache

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mark3labs/mcp-go/mcp"
)

// Cache holds the most recently fetched tool list for each MCP server.
// Entries expire lazily when read after their TTL and the least recently used entry is evicted
// when the cache is full.
// It is safe for concurrent use by multiple goroutines.
// NewCache should be used to create instances of Cache.
type Cache struct {
	mu sync.Mutex

	// entries holds tool lists by server ID in recency order.
	entries *lru.Cache[string, *entry]

	// generations counts invalidations per server ID, epoch counts Clear calls.
	generations map[string]uint64
	epoch       uint64
	closed      bool

	capacity int
	now      func() time.Time
	logger   hclog.Logger
}

type entry struct {
	tools    []mcp.Tool
	storedAt time.Time
}

// Token records the state of a server's entry before a fetch starts.
// PutIfCurrent rejects the fetched tools if the entry was invalidated or cleared since.
type Token struct {
	epoch      uint64
	generation uint64
}

// NewCache creates a new, empty tool list cache.
func NewCache(logger hclog.Logger, opts ...Option) (*Cache, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	entries, err := lru.New[string, *entry](options.capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Cache{
		entries:     entries,
		generations: make(map[string]uint64),
		capacity:    options.capacity,
		now:         time.Now,
		logger:      logger.Named("cache"),
	}, nil
}

// Get returns the cached tools for the server when present and not older than ttl.
// An expired entry is removed and reported as a miss.
func (c *Cache) Get(serverID string, ttl time.Duration) ([]mcp.Tool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(serverID)
	if !ok {
		return nil, false
	}

	if age := c.now().Sub(e.storedAt); age > ttl {
		c.entries.Remove(serverID)
		c.logger.Debug("Cache entry expired", "server", serverID, "age", age)
		return nil, false
	}

	return slices.Clone(e.tools), true
}

// Token returns the current state of the server's entry, to be passed to PutIfCurrent.
func (c *Cache) Token(serverID string) Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Token{epoch: c.epoch, generation: c.generations[serverID]}
}

// Put stores the tools for the server, replacing any existing entry.
// It has no effect once the cache is closed.
func (c *Cache) Put(serverID string, tools []mcp.Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.putLocked(serverID, tools)
}

// PutIfCurrent stores the tools only if the cache is open and the server's entry has not been
// invalidated or cleared since token was taken. It reports whether the tools were stored.
func (c *Cache) PutIfCurrent(serverID string, token Token, tools []mcp.Tool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token.epoch != c.epoch || token.generation != c.generations[serverID] {
		c.logger.Debug("Discarding tools fetched before invalidation", "server", serverID)
		return false
	}

	return c.putLocked(serverID, tools)
}

func (c *Cache) putLocked(serverID string, tools []mcp.Tool) bool {
	if c.closed {
		return false
	}

	if evicted := c.entries.Add(serverID, &entry{tools: slices.Clone(tools), storedAt: c.now()}); evicted {
		c.logger.Debug("Evicted least recently used cache entry", "capacity", c.capacity)
	}

	return true
}

// Invalidate removes the cached tools for the server, if any, and rejects fetches already in flight.
func (c *Cache) Invalidate(serverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(serverID)
	c.generations[serverID]++
}

// Clear removes all entries and rejects fetches already in flight.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
	c.epoch++
}

// Close clears the cache and rejects every later Put.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
	c.epoch++
	c.closed = true
}

// Len returns the number of entries currently held, including any that have expired but not been read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries.Len()
}
