package daemon

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mozilla-ai/mcpool/internal/api"
)

// APIOptions contains optional configuration for the API server.
// NewAPIOptions should be used to create instances of APIOptions.
type APIOptions struct {
	// CORS configures cross-origin access to the API.
	CORS CORSConfig

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration

	// MetricsPath serves the Prometheus exposition, outside the versioned API prefix.
	MetricsPath string

	// Version is reported in the OpenAPI document.
	Version string
}

// CORSConfig holds the settings handed to the go-chi/cors middleware.
type CORSConfig struct {
	Enabled bool

	// AllowCredentials is ignored when AllowOrigins contains "*".
	AllowCredentials bool

	AllowedHeaders []string
	AllowMethods   []string

	// AllowOrigins lists origins permitted to call the API, ["*"] permits any.
	AllowOrigins []string

	// ExposedHeaders lists response headers readable by browser clients.
	ExposedHeaders []string

	// MaxAge is how long browsers may cache a preflight response.
	MaxAge time.Duration
}

// APIOption configures APIOptions.
type APIOption func(*APIOptions) error

// NewAPIOptions returns the default APIOptions with opts applied in order. Nil options are ignored.
func NewAPIOptions(opts ...APIOption) (APIOptions, error) {
	options := defaultAPIOptions()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return APIOptions{}, err
		}
	}

	return options, nil
}

func defaultAPIOptions() APIOptions {
	return APIOptions{
		CORS: CORSConfig{
			AllowCredentials: DefaultCORSAllowCredentials(),
			AllowedHeaders:   DefaultCORSAllowHeaders(),
			AllowMethods:     DefaultCORSAllowMethods(),
			ExposedHeaders:   []string{api.HeaderErrorType},
			MaxAge:           DefaultCORSMaxAge(),
		},
		ShutdownTimeout: DefaultAPIShutdownTimeout(),
		MetricsPath:     DefaultMetricsPath(),
		Version:         "dev",
	}
}

// WithCORSEnabled turns the CORS middleware on or off.
func WithCORSEnabled(enabled bool) APIOption {
	return func(o *APIOptions) error {
		o.CORS.Enabled = enabled
		return nil
	}
}

func WithCORSAllowHeaders(headers []string) APIOption {
	return func(o *APIOptions) error {
		o.CORS.AllowedHeaders = headers
		return nil
	}
}

func WithCORSAllowOrigins(origins []string) APIOption {
	return func(o *APIOptions) error {
		o.CORS.AllowOrigins = origins
		return nil
	}
}

func WithCORSAllowMethods(methods []string) APIOption {
	return func(o *APIOptions) error {
		o.CORS.AllowMethods = methods
		return nil
	}
}

func WithCORSAllowCredentials(allowed bool) APIOption {
	return func(o *APIOptions) error {
		o.CORS.AllowCredentials = allowed
		return nil
	}
}

// WithCORSExposeHeaders replaces the exposed response headers, including the default error type header.
func WithCORSExposeHeaders(headers []string) APIOption {
	return func(o *APIOptions) error {
		o.CORS.ExposedHeaders = headers
		return nil
	}
}

func WithCORSMaxAge(maxAge time.Duration) APIOption {
	return func(o *APIOptions) error {
		if maxAge < 0 {
			return fmt.Errorf("CORS max age cannot be negative, got %v", maxAge)
		}
		o.CORS.MaxAge = maxAge
		return nil
	}
}

// WithShutdownTimeout bounds graceful shutdown of the HTTP server.
func WithShutdownTimeout(timeout time.Duration) APIOption {
	return func(o *APIOptions) error {
		if timeout <= 0 {
			return fmt.Errorf("shutdown timeout must be positive, got %v", timeout)
		}
		o.ShutdownTimeout = timeout
		return nil
	}
}

// WithMetricsPath moves the Prometheus endpoint. The path must be absolute and outside /api/.
func WithMetricsPath(path string) APIOption {
	return func(o *APIOptions) error {
		path = strings.TrimSpace(path)
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("metrics path must start with '/', got '%s'", path)
		}
		if strings.HasPrefix(path, "/api/") {
			return fmt.Errorf("metrics path cannot be under the API prefix, got '%s'", path)
		}
		o.MetricsPath = path
		return nil
	}
}

// WithVersion sets the version reported in the OpenAPI document.
func WithVersion(version string) APIOption {
	return func(o *APIOptions) error {
		if strings.TrimSpace(version) == "" {
			return fmt.Errorf("version cannot be empty")
		}
		o.Version = version
		return nil
	}
}

// DefaultCORSAllowHeaders returns the CORS safe-listed request headers.
func DefaultCORSAllowHeaders() []string {
	return []string{
		"Accept",
		"Accept-Language",
		"Content-Language",
		"Content-Type",
		"Range",
	}
}

// DefaultCORSAllowMethods returns the methods the API routes use.
func DefaultCORSAllowMethods() []string {
	return []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodOptions,
	}
}

func DefaultCORSAllowCredentials() bool {
	return false
}

func DefaultCORSMaxAge() time.Duration {
	return 5 * time.Minute
}

// DefaultAPIShutdownTimeout is the default bound on graceful shutdown of the HTTP server.
func DefaultAPIShutdownTimeout() time.Duration {
	return 5 * time.Second
}

// DefaultMetricsPath is where Prometheus metrics are served unless configured otherwise.
func DefaultMetricsPath() string {
	return "/metrics"
}
