package cache

import (
	"fmt"
)

// Option defines a functional option for configuring Cache.
type Option func(*Options) error

// Options contains optional configuration for the cache.
type Options struct {
	// capacity is the maximum number of server tool lists held at once.
	capacity int
}

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	o := Options{
		capacity: DefaultCapacity(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&o); err != nil {
			return Options{}, err
		}
	}

	return o, nil
}

// WithCapacity sets the maximum number of entries the cache holds.
func WithCapacity(capacity int) Option {
	return func(o *Options) error {
		if capacity <= 0 {
			return fmt.Errorf("capacity must be positive, got %d", capacity)
		}
		o.capacity = capacity
		return nil
	}
}

// DefaultCapacity is the default maximum number of cached tool lists.
func DefaultCapacity() int {
	return 50
}
