package daemon

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mozilla-ai/mcpool/internal/api"
	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/errors"
)

// APIServer manages the HTTP API for the daemon.
// NewAPIServer should be used to create instances of APIServer.
type APIServer struct {
	logger   hclog.Logger
	servers  contracts.ServerLookup
	tools    contracts.ToolProvider
	health   contracts.PoolHealthMonitor
	metrics  contracts.PoolMetricsProvider
	gatherer prometheus.Gatherer

	// Addr specifies the network address to bind.
	addr string

	// CORS configuration for cross-origin requests.
	cors CORSConfig

	// ShutdownTimeout specifies how long to wait for graceful shutdown.
	shutdownTimeout time.Duration

	metricsPath string
	version     string
}

// NewAPIServer creates a new API server with the provided dependencies and options.
// Applies default options first, then user-provided options to ensure all fields have valid values.
func NewAPIServer(deps APIDependencies, opt ...APIOption) (*APIServer, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies for API server: %w", err)
	}

	apiOpts, err := NewAPIOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid API options: %w", err)
	}

	return &APIServer{
		logger:          deps.Logger.Named("api"),
		servers:         deps.Servers,
		tools:           deps.Tools,
		health:          deps.Health,
		metrics:         deps.Metrics,
		gatherer:        deps.Gatherer,
		addr:            deps.Addr,
		cors:            apiOpts.CORS,
		shutdownTimeout: apiOpts.ShutdownTimeout,
		metricsPath:     apiOpts.MetricsPath,
		version:         apiOpts.Version,
	}, nil
}

// Handler builds the HTTP handler serving the versioned API and the Prometheus metrics endpoint.
// Returns the API path prefix alongside the handler.
func (a *APIServer) Handler() (http.Handler, string, error) {
	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)

	if a.cors.Enabled {
		a.applyCORS(mux)
	}

	mux.Method(
		http.MethodGet,
		a.metricsPath,
		promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{ErrorLog: a.logger.StandardLogger(nil)}),
	)

	config := huma.DefaultConfig("mcpool docs", a.version)
	// Detail projection must see the handler's body before the schema link transformer wraps it.
	config.Transformers = append(api.Transformers(), config.Transformers...)
	router := humachi.New(mux, config)

	// Configure the error handling wrapping.
	huma.NewErrorWithContext = errorHandler(a.logger)

	apiPathPrefix, err := api.RegisterRoutes(router, a.servers, a.tools, a.health, a.metrics)
	if err != nil {
		return nil, "", err
	}

	return mux, apiPathPrefix, nil
}

// Start starts the API server and blocks until the context is canceled or an error occurs.
func (a *APIServer) Start(ctx context.Context) error {
	handler, apiPathPrefix, err := a.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("Starting API server", "address", a.addr, "prefix", apiPathPrefix, "metrics", a.metricsPath)
		if err := srv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down API server...")
		_ = srv.Shutdown(shutdownCtx)
		a.logger.Info("Shutdown complete")
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// applyCORS applies CORS middleware to the router based on the configured options.
func (a *APIServer) applyCORS(mux *chi.Mux) {
	a.logger.Info("Enabling CORS", "origins", a.cors.AllowOrigins)

	corsOptions := cors.Options{
		AllowedOrigins:   make([]string, 0, len(a.cors.AllowOrigins)),
		AllowedMethods:   a.cors.AllowMethods,
		AllowedHeaders:   a.cors.AllowedHeaders,
		ExposedHeaders:   a.cors.ExposedHeaders,
		AllowCredentials: a.cors.AllowCredentials,
		MaxAge:           int(a.cors.MaxAge.Seconds()),
	}

	// A wildcard replaces every other origin and forbids credentials.
	for _, origin := range a.cors.AllowOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			if corsOptions.AllowCredentials {
				a.logger.Warn("Ignoring CORS credentials for wildcard origin")
			}
			corsOptions.AllowedOrigins = []string{"*"}
			corsOptions.AllowCredentials = false
			break
		}
		corsOptions.AllowedOrigins = append(corsOptions.AllowedOrigins, origin)
	}

	mux.Use(cors.Handler(corsOptions))
}

// mapError maps application domain errors to appropriate HTTP status codes.
//
// This function is the central place where domain errors from internal/errors are converted to HTTP responses.
// When adding new errors to internal/errors/errors.go, you MUST add them here to prevent them from falling
// through to the default case which returns HTTP 500.
//
// Mapping guidelines:
//   - 400: Client errors (bad input, rejected server URLs)
//   - 404: Unknown servers or untracked health
//   - 503: The pool cannot take the request (at capacity, shut down)
//   - 504: The server did not answer in time
//   - 502: Any other failure reaching or talking to the server
//   - 500: Unexpected internal errors (default case)
//
// Connect failures carry their cause, so ErrTimeout is checked before ErrConnectFailed.
func mapError(logger hclog.Logger, err error) huma.StatusError {
	switch {
	case stdErrors.Is(err, errors.ErrBadRequest):
		return huma.Error400BadRequest(err.Error())
	case stdErrors.Is(err, errors.ErrInvalidServerURL):
		return huma.Error400BadRequest(err.Error())
	case stdErrors.Is(err, errors.ErrServerNotFound):
		return huma.Error404NotFound(err.Error())
	case stdErrors.Is(err, errors.ErrHealthNotTracked):
		return huma.Error404NotFound(err.Error())
	case stdErrors.Is(err, errors.ErrCapacityExceeded):
		logger.Warn("Connection pool at capacity", "error", err)
		return huma.Error503ServiceUnavailable(err.Error())
	case stdErrors.Is(err, errors.ErrPoolClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	case stdErrors.Is(err, errors.ErrTimeout):
		logger.Error("MCP server timed out", "error", err)
		return huma.Error504GatewayTimeout("MCP server timed out", err)
	case stdErrors.Is(err, errors.ErrConnectFailed):
		logger.Error("MCP server connection failed", "error", err)
		return huma.Error502BadGateway("MCP server connection failed", err)
	case stdErrors.Is(err, errors.ErrDNS),
		stdErrors.Is(err, errors.ErrConnectionRefused),
		stdErrors.Is(err, errors.ErrNetwork):
		logger.Error("MCP server unreachable", "error", err)
		return huma.Error502BadGateway("MCP server unreachable", err)
	case stdErrors.Is(err, errors.ErrUpstream):
		logger.Error("MCP server error listing tools", "error", err)
		return huma.Error502BadGateway("MCP server error listing tools", err)
	default:
		logger.Error("Unexpected error interacting with MCP server", "error", err)
		return huma.Error500InternalServerError("Internal server error", err)
	}
}

// errorHandler wraps error handling for the application when converting to API friendly errors.
// Handler errors reach it with status 500 and are mapped by domain error; errors huma raises itself
// (request validation, malformed bodies) keep the status huma chose.
func errorHandler(logger hclog.Logger) func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
	return func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status != http.StatusInternalServerError {
			return huma.NewError(status, msg, errs...)
		}

		switch len(errs) {
		case 0:
			return huma.NewError(status, msg)
		case 1:
			return mapError(logger, errs[0])
		default:
			return mapError(logger, stdErrors.Join(errs...))
		}
	}
}
