package pool

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Options contains optional configuration for the Pool.
// NewOptions should be used to create instances of Options.
type Options struct {
	// MaxConnections is the ceiling on live server connections held by the pool.
	MaxConnections int

	// MaxConsecutiveFailures is the number of failed calls in a row after which a connection is unhealthy.
	MaxConsecutiveFailures uint

	// HealthCheckInterval is how often unhealthy and stale connections are swept.
	// A connection not checked within twice this interval is treated as stale.
	HealthCheckInterval time.Duration

	// ClientTimeout bounds each request a client makes, including the connection handshake.
	ClientTimeout time.Duration

	// ClientRetries is the retry budget given to each client for transient failures.
	ClientRetries int

	// ClientMaxBackoff caps the wait before each client retry.
	ClientMaxBackoff time.Duration

	// ClientShutdownTimeout is how long to wait for a client to disconnect before giving up on it.
	ClientShutdownTimeout time.Duration

	// CacheTTL is the maximum age of a cached tool list.
	CacheTTL time.Duration

	// CacheCapacity is the maximum number of cached tool lists.
	CacheCapacity int

	// URLPolicy controls which server URLs may be connected to.
	URLPolicy URLPolicy

	// Registerer receives the pool's Prometheus collectors, when set.
	Registerer prometheus.Registerer
}

// Option defines a functional option for configuring Options.
// Options are applied in order, with later options overriding earlier ones.
type Option func(*Options) error

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	options := defaultOptions()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

// WithMaxConnections configures the ceiling on live connections.
func WithMaxConnections(n int) Option {
	return func(o *Options) error {
		if n <= 0 {
			return fmt.Errorf("max connections must be positive, got %d", n)
		}
		o.MaxConnections = n
		return nil
	}
}

// WithMaxConsecutiveFailures configures how many failed calls in a row mark a connection unhealthy.
func WithMaxConsecutiveFailures(n uint) Option {
	return func(o *Options) error {
		if n == 0 {
			return fmt.Errorf("max consecutive failures must be positive")
		}
		o.MaxConsecutiveFailures = n
		return nil
	}
}

// WithHealthCheckInterval configures how often connections are swept.
func WithHealthCheckInterval(interval time.Duration) Option {
	return func(o *Options) error {
		if interval <= 0 {
			return fmt.Errorf("health check interval must be positive, got %v", interval)
		}
		o.HealthCheckInterval = interval
		return nil
	}
}

// WithClientTimeout configures the per-request timeout of each client.
func WithClientTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("client timeout must be positive, got %v", timeout)
		}
		o.ClientTimeout = timeout
		return nil
	}
}

// WithClientRetries configures the retry budget of each client.
func WithClientRetries(retries int) Option {
	return func(o *Options) error {
		if retries < 0 {
			return fmt.Errorf("client retries cannot be negative, got %d", retries)
		}
		o.ClientRetries = retries
		return nil
	}
}

// WithClientMaxBackoff caps how long a client waits before retrying a transient failure.
func WithClientMaxBackoff(wait time.Duration) Option {
	return func(o *Options) error {
		if wait <= 0 {
			return fmt.Errorf("client max backoff must be positive, got %v", wait)
		}
		o.ClientMaxBackoff = wait
		return nil
	}
}

// WithClientShutdownTimeout configures how long to wait for a client to disconnect.
func WithClientShutdownTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("client shutdown timeout must be positive, got %v", timeout)
		}
		o.ClientShutdownTimeout = timeout
		return nil
	}
}

// WithCacheTTL configures the maximum age of cached tool lists.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) error {
		if ttl <= 0 {
			return fmt.Errorf("cache TTL must be positive, got %v", ttl)
		}
		o.CacheTTL = ttl
		return nil
	}
}

// WithCacheCapacity configures the maximum number of cached tool lists.
func WithCacheCapacity(capacity int) Option {
	return func(o *Options) error {
		if capacity <= 0 {
			return fmt.Errorf("cache capacity must be positive, got %d", capacity)
		}
		o.CacheCapacity = capacity
		return nil
	}
}

// WithAllowedSchemes replaces the URL schemes servers may use.
func WithAllowedSchemes(schemes ...string) Option {
	return func(o *Options) error {
		if len(schemes) == 0 {
			return fmt.Errorf("at least one allowed scheme is required")
		}
		normalized := make([]string, 0, len(schemes))
		for _, s := range schemes {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				return fmt.Errorf("allowed scheme cannot be empty")
			}
			if !slices.Contains(normalized, s) {
				normalized = append(normalized, s)
			}
		}
		o.URLPolicy.AllowedSchemes = normalized
		return nil
	}
}

// WithAllowLoopback configures whether loopback addresses (e.g. localhost) may be connected to.
// Cloud metadata and other link-local addresses remain blocked regardless.
func WithAllowLoopback(allow bool) Option {
	return func(o *Options) error {
		o.URLPolicy.AllowLoopback = allow
		return nil
	}
}

// WithRegisterer configures where the pool's Prometheus collectors are registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) error {
		o.Registerer = reg
		return nil
	}
}

// DefaultMaxConnections is the default ceiling on live connections.
func DefaultMaxConnections() int {
	return 10
}

// DefaultMaxConsecutiveFailures is the default number of failed calls that mark a connection unhealthy.
func DefaultMaxConsecutiveFailures() uint {
	return 3
}

// DefaultHealthCheckInterval is the default interval between health sweeps.
func DefaultHealthCheckInterval() time.Duration {
	return 30 * time.Second
}

// DefaultClientTimeout is the default per-request client timeout.
func DefaultClientTimeout() time.Duration {
	return 30 * time.Second
}

// DefaultClientRetries is the default client retry budget.
func DefaultClientRetries() int {
	return 2
}

// DefaultClientMaxBackoff is the default cap on the wait before a client retry.
func DefaultClientMaxBackoff() time.Duration {
	return 2 * time.Second
}

// DefaultClientShutdownTimeout is the default time to wait for a client to disconnect.
func DefaultClientShutdownTimeout() time.Duration {
	return 5 * time.Second
}

// DefaultCacheTTL is the default maximum age of a cached tool list.
func DefaultCacheTTL() time.Duration {
	return 5 * time.Minute
}

// DefaultCacheCapacity is the default maximum number of cached tool lists.
func DefaultCacheCapacity() int {
	return 50
}

// DefaultAllowedSchemes are the URL schemes servers may use by default.
func DefaultAllowedSchemes() []string {
	return []string{"https", "http"}
}

// defaultOptions returns Options with default values.
func defaultOptions() Options {
	return Options{
		MaxConnections:         DefaultMaxConnections(),
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures(),
		HealthCheckInterval:    DefaultHealthCheckInterval(),
		ClientTimeout:          DefaultClientTimeout(),
		ClientRetries:          DefaultClientRetries(),
		ClientMaxBackoff:       DefaultClientMaxBackoff(),
		ClientShutdownTimeout:  DefaultClientShutdownTimeout(),
		CacheTTL:               DefaultCacheTTL(),
		CacheCapacity:          DefaultCacheCapacity(),
		URLPolicy: URLPolicy{
			AllowedSchemes: DefaultAllowedSchemes(),
		},
	}
}
