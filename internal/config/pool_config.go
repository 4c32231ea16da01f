package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mozilla-ai/mcpool/internal/pool"
)

// PoolSection contains connection pool settings. Unset fields fall back to the pool defaults.
//
// NOTE: if you add/remove fields you must review Validate and Options, along with the skeleton written by Init.
type PoolSection struct {
	// Ceiling on live server connections.
	// Maps to CLI flag --max-connections
	MaxConnections *int `json:"maxConnections,omitempty" toml:"max_connections,omitempty" yaml:"max_connections,omitempty"`

	// Failed calls in a row after which a connection is unhealthy.
	// Maps to CLI flag --max-consecutive-failures
	MaxConsecutiveFailures *uint `json:"maxConsecutiveFailures,omitempty" toml:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`

	// Interval between health sweeps.
	// Maps to CLI flag --interval-health
	HealthCheckInterval *Duration `json:"healthCheckInterval,omitempty" toml:"health_check_interval,omitempty" yaml:"health_check_interval,omitempty"`

	// Per-request timeout for server clients.
	// Maps to CLI flag --timeout-client
	ClientTimeout *Duration `json:"clientTimeout,omitempty" toml:"client_timeout,omitempty" yaml:"client_timeout,omitempty"`

	// Retry budget for transient client failures.
	// Maps to CLI flag --client-retries
	ClientRetries *int `json:"clientRetries,omitempty" toml:"client_retries,omitempty" yaml:"client_retries,omitempty"`

	// Longest wait before a client retry.
	// Maps to CLI flag --client-max-backoff
	ClientMaxBackoff *Duration `json:"clientMaxBackoff,omitempty" toml:"client_max_backoff,omitempty" yaml:"client_max_backoff,omitempty"`

	// Time allowed for a client to disconnect.
	// Maps to CLI flag --timeout-client-shutdown
	ClientShutdownTimeout *Duration `json:"clientShutdownTimeout,omitempty" toml:"client_shutdown_timeout,omitempty" yaml:"client_shutdown_timeout,omitempty"`

	// Maximum age of a cached tool list.
	// Maps to CLI flag --cache-ttl
	CacheTTL *Duration `json:"cacheTTL,omitempty" toml:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`

	// Maximum number of cached tool lists.
	// Maps to CLI flag --cache-capacity
	CacheCapacity *int `json:"cacheCapacity,omitempty" toml:"cache_capacity,omitempty" yaml:"cache_capacity,omitempty"`

	// URL schemes servers may use.
	// Maps to CLI flag --allowed-schemes
	AllowedSchemes []string `json:"allowedSchemes,omitempty" toml:"allowed_schemes,omitempty" yaml:"allowed_schemes,omitempty"`

	// Permit loopback server addresses such as localhost.
	// Maps to CLI flag --allow-loopback
	AllowLoopback *bool `json:"allowLoopback,omitempty" toml:"allow_loopback,omitempty" yaml:"allow_loopback,omitempty"`
}

// Validate checks every set field, reporting all problems together.
func (p *PoolSection) Validate() error {
	var errs []error

	if p.MaxConnections != nil && *p.MaxConnections <= 0 {
		errs = append(errs, NewErrInvalidValue("max_connections", strconv.Itoa(*p.MaxConnections)))
	}
	if p.MaxConsecutiveFailures != nil && *p.MaxConsecutiveFailures == 0 {
		errs = append(errs, NewErrInvalidValue("max_consecutive_failures", "0"))
	}
	if p.ClientRetries != nil && *p.ClientRetries < 0 {
		errs = append(errs, NewErrInvalidValue("client_retries", strconv.Itoa(*p.ClientRetries)))
	}
	if p.CacheCapacity != nil && *p.CacheCapacity <= 0 {
		errs = append(errs, NewErrInvalidValue("cache_capacity", strconv.Itoa(*p.CacheCapacity)))
	}

	durations := []struct {
		key   string
		value *Duration
	}{
		{"health_check_interval", p.HealthCheckInterval},
		{"client_timeout", p.ClientTimeout},
		{"client_max_backoff", p.ClientMaxBackoff},
		{"client_shutdown_timeout", p.ClientShutdownTimeout},
		{"cache_ttl", p.CacheTTL},
	}
	for _, d := range durations {
		if d.value != nil && *d.value <= 0 {
			errs = append(errs, NewErrInvalidValue(d.key, d.value.String()))
		}
	}

	for _, s := range p.AllowedSchemes {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, NewErrInvalidValue("allowed_schemes", s))
		}
	}

	return errors.Join(errs...)
}

// Options converts the set fields to pool options.
func (p *PoolSection) Options() []pool.Option {
	if p == nil {
		return nil
	}

	var opts []pool.Option

	if p.MaxConnections != nil {
		opts = append(opts, pool.WithMaxConnections(*p.MaxConnections))
	}
	if p.MaxConsecutiveFailures != nil {
		opts = append(opts, pool.WithMaxConsecutiveFailures(*p.MaxConsecutiveFailures))
	}
	if p.HealthCheckInterval != nil {
		opts = append(opts, pool.WithHealthCheckInterval(time.Duration(*p.HealthCheckInterval)))
	}
	if p.ClientTimeout != nil {
		opts = append(opts, pool.WithClientTimeout(time.Duration(*p.ClientTimeout)))
	}
	if p.ClientRetries != nil {
		opts = append(opts, pool.WithClientRetries(*p.ClientRetries))
	}
	if p.ClientMaxBackoff != nil {
		opts = append(opts, pool.WithClientMaxBackoff(time.Duration(*p.ClientMaxBackoff)))
	}
	if p.ClientShutdownTimeout != nil {
		opts = append(opts, pool.WithClientShutdownTimeout(time.Duration(*p.ClientShutdownTimeout)))
	}
	if p.CacheTTL != nil {
		opts = append(opts, pool.WithCacheTTL(time.Duration(*p.CacheTTL)))
	}
	if p.CacheCapacity != nil {
		opts = append(opts, pool.WithCacheCapacity(*p.CacheCapacity))
	}
	if len(p.AllowedSchemes) > 0 {
		opts = append(opts, pool.WithAllowedSchemes(p.AllowedSchemes...))
	}
	if p.AllowLoopback != nil {
		opts = append(opts, pool.WithAllowLoopback(*p.AllowLoopback))
	}

	return opts
}

// APISection contains API server settings.
type APISection struct {
	// Address to bind the API server (e.g., "0.0.0.0:8090")
	// Maps to CLI flag --addr
	Addr *string `json:"addr,omitempty" toml:"addr,omitempty" yaml:"addr,omitempty"`

	// Shutdown timeout for graceful API server shutdown
	// Maps to CLI flag --timeout-api-shutdown
	Shutdown *Duration `json:"shutdown,omitempty" toml:"shutdown,omitempty" yaml:"shutdown,omitempty"`

	// Path serving Prometheus metrics, outside the versioned API (e.g., "/metrics")
	// Maps to CLI flag --metrics-path
	MetricsPath *string `json:"metricsPath,omitempty" toml:"metrics_path,omitempty" yaml:"metrics_path,omitempty"`

	// Nested CORS configuration for cross-origin requests
	CORS *CORSSection `json:"cors,omitempty" toml:"cors,omitempty" yaml:"cors,omitempty"`
}

// CORSSection contains Cross-Origin Resource Sharing (CORS) configuration.
type CORSSection struct {
	// Enable CORS support
	// Maps to CLI flag --cors-enable
	Enable *bool `json:"enable,omitempty" toml:"enable,omitempty" yaml:"enable,omitempty"`

	// Allowed origins for CORS requests
	// Maps to CLI flag --cors-origins
	Origins []string `json:"allowOrigins,omitempty" toml:"allow_origins,omitempty" yaml:"allow_origins,omitempty"`

	// Whether browsers may send credentials, not allowed with a "*" origin
	AllowCredentials *bool `json:"allowCredentials,omitempty" toml:"allow_credentials,omitempty" yaml:"allow_credentials,omitempty"`

	// How long browsers may cache preflight responses
	MaxAge *Duration `json:"maxAge,omitempty" toml:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// Validate checks the address and timeouts.
func (a *APISection) Validate() error {
	var errs []error

	if a.Addr != nil {
		if _, _, err := net.SplitHostPort(*a.Addr); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", NewErrInvalidValue("addr", *a.Addr), err))
		}
	}
	if a.Shutdown != nil && *a.Shutdown <= 0 {
		errs = append(errs, NewErrInvalidValue("shutdown", a.Shutdown.String()))
	}
	if a.MetricsPath != nil && !strings.HasPrefix(*a.MetricsPath, "/") {
		errs = append(errs, NewErrInvalidValue("metrics_path", *a.MetricsPath))
	}
	if a.CORS != nil && a.CORS.Enable != nil && *a.CORS.Enable && len(a.CORS.Origins) == 0 {
		errs = append(errs, fmt.Errorf("%w: cors enabled without allow_origins", ErrInvalidValue))
	}
	if a.CORS != nil && a.CORS.MaxAge != nil && *a.CORS.MaxAge < 0 {
		errs = append(errs, NewErrInvalidValue("cors.max_age", a.CORS.MaxAge.String()))
	}

	return errors.Join(errs...)
}
