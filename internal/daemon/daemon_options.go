package daemon

import (
	"github.com/mozilla-ai/mcpool/internal/pool"
)

// Options contains optional configuration for the daemon.
// NewOptions should be used to create instances of Options.
type Options struct {
	// APIOptions are handed to the API server, which applies its own defaults first.
	APIOptions []APIOption

	// PoolOptions are handed to the connection pool.
	// The daemon always appends its own metrics registerer.
	PoolOptions []pool.Option

	// RuntimeMetrics adds the Go runtime and process collectors to the daemon's metrics registry.
	RuntimeMetrics bool
}

// Option configures Options.
type Option func(*Options) error

// NewOptions returns the default Options with opts applied in order. Nil options are ignored.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		RuntimeMetrics: DefaultRuntimeMetrics(),
	}

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

// WithAPIOptions replaces any previously supplied API server options.
func WithAPIOptions(apiOpts ...APIOption) Option {
	return func(o *Options) error {
		o.APIOptions = apiOpts
		return nil
	}
}

// WithPoolOptions replaces any previously supplied connection pool options.
func WithPoolOptions(poolOpts ...pool.Option) Option {
	return func(o *Options) error {
		o.PoolOptions = poolOpts
		return nil
	}
}

// WithRuntimeMetrics toggles export of Go runtime and process metrics alongside the pool's own.
func WithRuntimeMetrics(enabled bool) Option {
	return func(o *Options) error {
		o.RuntimeMetrics = enabled
		return nil
	}
}

// DefaultRuntimeMetrics reports whether runtime metrics are exported unless configured otherwise.
func DefaultRuntimeMetrics() bool {
	return true
}
