package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpool/internal/cmd"
	cmdopts "github.com/mozilla-ai/mcpool/internal/cmd/options"
	"github.com/mozilla-ai/mcpool/internal/config"
	"github.com/mozilla-ai/mcpool/internal/daemon"
	"github.com/mozilla-ai/mcpool/internal/flags"
	"github.com/mozilla-ai/mcpool/internal/pool"
)

const (
	defaultDaemonAddr = "0.0.0.0:8090"
	devDaemonAddr     = "localhost:8090"
)

// Flag names for the daemon command.
const (
	flagDev                    = "dev"
	flagAddr                   = "addr"
	flagMetricsPath            = "metrics-path"
	flagCORSEnable             = "cors-enable"
	flagCORSOrigins            = "cors-origins"
	flagAPIShutdownTimeout     = "timeout-api-shutdown"
	flagMaxConnections         = "max-connections"
	flagMaxConsecutiveFailures = "max-consecutive-failures"
	flagHealthCheckInterval    = "interval-health"
	flagClientTimeout          = "timeout-client"
	flagClientRetries          = "client-retries"
	flagClientMaxBackoff       = "client-max-backoff"
	flagClientShutdownTimeout  = "timeout-client-shutdown"
	flagCacheTTL               = "cache-ttl"
	flagCacheCapacity          = "cache-capacity"
	flagAllowedSchemes         = "allowed-schemes"
	flagAllowLoopback          = "allow-loopback"
	flagRuntimeMetrics         = "runtime-metrics"
)

// DaemonCmd should be used to represent the 'daemon' command.
type DaemonCmd struct {
	*cmd.BaseCmd
	Dev                    bool
	Addr                   string
	MetricsPath            string
	CORSEnable             bool
	CORSOrigins            []string
	APIShutdownTimeout     time.Duration
	MaxConnections         int
	MaxConsecutiveFailures uint
	HealthCheckInterval    time.Duration
	ClientTimeout          time.Duration
	ClientRetries          int
	ClientMaxBackoff       time.Duration
	ClientShutdownTimeout  time.Duration
	CacheTTL               time.Duration
	CacheCapacity          int
	AllowedSchemes         []string
	AllowLoopback          bool
	RuntimeMetrics         bool
	cfgLoader              config.Loader
	clientFactory          cmdopts.ClientFactoryBuilder
}

// NewDaemonCmd creates a newly configured (Cobra) command.
func NewDaemonCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	_, cobraCommand, err := newDaemonCmd(baseCmd, opt...)
	return cobraCommand, err
}

func newDaemonCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*DaemonCmd, *cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, nil, err
	}

	c := &DaemonCmd{
		BaseCmd:       baseCmd,
		cfgLoader:     config.NewValidatingLoader(opts.ConfigLoader, config.RequireServers),
		clientFactory: opts.ClientFactory,
	}

	cobraCommand := &cobra.Command{
		Use:   "daemon [--dev] [--addr]",
		Short: "Launches an `mcpool` daemon instance",
		Long:  c.longDescription(),
		RunE:  c.run,
		Args:  cobra.NoArgs,
	}

	fs := cobraCommand.Flags()
	fs.BoolVar(&c.Dev, flagDev, false, "Run the daemon in development-focused mode")
	fs.StringVar(&c.Addr, flagAddr, defaultDaemonAddr, "Address for the daemon to bind (not applicable in --dev mode)")
	fs.StringVar(&c.MetricsPath, flagMetricsPath, daemon.DefaultMetricsPath(), "Path serving Prometheus metrics")
	fs.BoolVar(&c.CORSEnable, flagCORSEnable, false, "Enable CORS for the API")
	fs.StringSliceVar(&c.CORSOrigins, flagCORSOrigins, nil, "Origins allowed to make cross-origin API requests")
	fs.DurationVar(
		&c.APIShutdownTimeout,
		flagAPIShutdownTimeout,
		daemon.DefaultAPIShutdownTimeout(),
		"Time allowed for the API server to shut down gracefully",
	)
	fs.IntVar(&c.MaxConnections, flagMaxConnections, pool.DefaultMaxConnections(), "Ceiling on live server connections")
	fs.UintVar(
		&c.MaxConsecutiveFailures,
		flagMaxConsecutiveFailures,
		pool.DefaultMaxConsecutiveFailures(),
		"Failed calls in a row after which a connection is unhealthy",
	)
	fs.DurationVar(
		&c.HealthCheckInterval,
		flagHealthCheckInterval,
		pool.DefaultHealthCheckInterval(),
		"Interval between health sweeps",
	)
	fs.DurationVar(&c.ClientTimeout, flagClientTimeout, pool.DefaultClientTimeout(), "Per-request timeout for server clients")
	fs.IntVar(&c.ClientRetries, flagClientRetries, pool.DefaultClientRetries(), "Retries for transient client failures")
	fs.DurationVar(&c.ClientMaxBackoff, flagClientMaxBackoff, pool.DefaultClientMaxBackoff(), "Longest wait before a client retry")
	fs.DurationVar(
		&c.ClientShutdownTimeout,
		flagClientShutdownTimeout,
		pool.DefaultClientShutdownTimeout(),
		"Time allowed for a client to disconnect",
	)
	fs.DurationVar(&c.CacheTTL, flagCacheTTL, pool.DefaultCacheTTL(), "Maximum age of a cached tool list")
	fs.IntVar(&c.CacheCapacity, flagCacheCapacity, pool.DefaultCacheCapacity(), "Maximum number of cached tool lists")
	fs.StringSliceVar(&c.AllowedSchemes, flagAllowedSchemes, pool.DefaultAllowedSchemes(), "URL schemes servers may use")
	fs.BoolVar(&c.AllowLoopback, flagAllowLoopback, false, "Permit loopback server addresses such as localhost")
	fs.BoolVar(
		&c.RuntimeMetrics,
		flagRuntimeMetrics,
		daemon.DefaultRuntimeMetrics(),
		"Export Go runtime and process metrics alongside pool metrics",
	)

	cobraCommand.MarkFlagsMutuallyExclusive(flagDev, flagAddr)

	return c, cobraCommand, nil
}

func (c *DaemonCmd) longDescription() string {
	return fmt.Sprintf(
		"Launches an `mcpool` daemon instance, which pools connections to the configured MCP servers "+
			"and serves their tools, health and pool metrics via HTTP API.\n\n"+
			"Settings come from the [pool] and [api] sections of the config file (%s). "+
			"Flags override the config file when set.",
		flags.DefaultConfigFile,
	)
}

// run is configured (via NewDaemonCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *DaemonCmd) run(cobraCmd *cobra.Command, _ []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	d, addr, err := c.newDaemon(cobraCmd, logger)
	if err != nil {
		return err
	}

	// Create the signal handling context for the application.
	daemonCtx, daemonCtxCancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer daemonCtxCancel()

	runErr := make(chan error, 1)
	go func() {
		if err := d.StartAndManage(daemonCtx); err != nil && !errors.Is(err, context.Canceled) {
			runErr <- err
		}
		close(runErr)
	}()

	// Print --dev mode banner if required.
	if c.Dev {
		logger.Info("Launching daemon in dev mode", "addr", addr)
		banner := fmt.Sprintf("mcpool daemon running in 'dev' mode.\n\n"+
			"  Local API:\thttp://%s/api/v1\n"+
			"  OpenAPI UI:\thttp://%s/docs\n"+
			"  Metrics:\thttp://%s%s\n"+
			"  Config file:\t%s\n",
			addr, addr, addr, c.MetricsPath, flags.ConfigFile)

		if flags.LogPath != "" {
			banner += fmt.Sprintf("  Log file:\t%s => (%s)\n", flags.LogPath, flags.LogLevel)
		}

		banner += "\nPress Ctrl+C to stop.\n\n"
		_, _ = fmt.Fprint(cobraCmd.OutOrStdout(), banner)
	}

	select {
	case <-daemonCtx.Done():
		logger.Info("Shutting down daemon")
		err := <-runErr // Wait for cleanup and deferred logging.
		return err      // Graceful Ctrl+C / SIGTERM.
	case err := <-runErr:
		logger.Error("daemon exited with error", "error", err)
		return err // Propagate daemon failure.
	}
}

// newDaemon loads the config file, applies flag overrides and creates the daemon.
// Returns the address the daemon will bind.
func (c *DaemonCmd) newDaemon(cobraCmd *cobra.Command, logger hclog.Logger) (*daemon.Daemon, string, error) {
	mod, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return nil, "", err
	}

	cfg, ok := mod.(*config.Config)
	if !ok {
		return nil, "", fmt.Errorf("invalid config structure")
	}

	addr := c.resolveAddr(cobraCmd, cfg.API)
	if c.Dev {
		logger.Info("Development-focused mode", "addr", addr, "override", devDaemonAddr)
		addr = devDaemonAddr
	}

	deps, err := daemon.NewDependencies(logger, addr, cfg, c.clientFactory(logger.Named("client")))
	if err != nil {
		return nil, "", fmt.Errorf("error configuring mcpool daemon: %w", err)
	}

	d, err := daemon.NewDaemon(
		deps,
		daemon.WithAPIOptions(c.apiOptions(cobraCmd, cfg.API)...),
		daemon.WithPoolOptions(c.poolOptions(cobraCmd, cfg.Pool)...),
		daemon.WithRuntimeMetrics(c.RuntimeMetrics),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create mcpool daemon instance: %w", err)
	}

	return d, addr, nil
}

func (c *DaemonCmd) resolveAddr(cobraCmd *cobra.Command, section *config.APISection) string {
	if !cobraCmd.Flags().Changed(flagAddr) && section != nil && section.Addr != nil {
		return strings.TrimSpace(*section.Addr)
	}
	return strings.TrimSpace(c.Addr)
}

// apiOptions returns the API options from the config file followed by any flags that were set.
func (c *DaemonCmd) apiOptions(cobraCmd *cobra.Command, section *config.APISection) []daemon.APIOption {
	opts := []daemon.APIOption{daemon.WithVersion(version)}

	if section != nil {
		if section.Shutdown != nil {
			opts = append(opts, daemon.WithShutdownTimeout(time.Duration(*section.Shutdown)))
		}
		if section.MetricsPath != nil {
			opts = append(opts, daemon.WithMetricsPath(*section.MetricsPath))
			c.MetricsPath = *section.MetricsPath
		}
		if section.CORS != nil {
			if section.CORS.Enable != nil {
				opts = append(opts, daemon.WithCORSEnabled(*section.CORS.Enable))
			}
			if len(section.CORS.Origins) > 0 {
				opts = append(opts, daemon.WithCORSAllowOrigins(section.CORS.Origins))
			}
			if section.CORS.AllowCredentials != nil {
				opts = append(opts, daemon.WithCORSAllowCredentials(*section.CORS.AllowCredentials))
			}
			if section.CORS.MaxAge != nil {
				opts = append(opts, daemon.WithCORSMaxAge(time.Duration(*section.CORS.MaxAge)))
			}
		}
	}

	fs := cobraCmd.Flags()
	if fs.Changed(flagAPIShutdownTimeout) {
		opts = append(opts, daemon.WithShutdownTimeout(c.APIShutdownTimeout))
	}
	if fs.Changed(flagMetricsPath) {
		opts = append(opts, daemon.WithMetricsPath(c.MetricsPath))
	}
	if fs.Changed(flagCORSEnable) {
		opts = append(opts, daemon.WithCORSEnabled(c.CORSEnable))
	}
	if fs.Changed(flagCORSOrigins) {
		opts = append(opts, daemon.WithCORSAllowOrigins(c.CORSOrigins))
	}

	return opts
}

// poolOptions returns the pool options from the config file followed by any flags that were set.
func (c *DaemonCmd) poolOptions(cobraCmd *cobra.Command, section *config.PoolSection) []pool.Option {
	opts := section.Options()

	fs := cobraCmd.Flags()
	if fs.Changed(flagMaxConnections) {
		opts = append(opts, pool.WithMaxConnections(c.MaxConnections))
	}
	if fs.Changed(flagMaxConsecutiveFailures) {
		opts = append(opts, pool.WithMaxConsecutiveFailures(c.MaxConsecutiveFailures))
	}
	if fs.Changed(flagHealthCheckInterval) {
		opts = append(opts, pool.WithHealthCheckInterval(c.HealthCheckInterval))
	}
	if fs.Changed(flagClientTimeout) {
		opts = append(opts, pool.WithClientTimeout(c.ClientTimeout))
	}
	if fs.Changed(flagClientRetries) {
		opts = append(opts, pool.WithClientRetries(c.ClientRetries))
	}
	if fs.Changed(flagClientMaxBackoff) {
		opts = append(opts, pool.WithClientMaxBackoff(c.ClientMaxBackoff))
	}
	if fs.Changed(flagClientShutdownTimeout) {
		opts = append(opts, pool.WithClientShutdownTimeout(c.ClientShutdownTimeout))
	}
	if fs.Changed(flagCacheTTL) {
		opts = append(opts, pool.WithCacheTTL(c.CacheTTL))
	}
	if fs.Changed(flagCacheCapacity) {
		opts = append(opts, pool.WithCacheCapacity(c.CacheCapacity))
	}
	if fs.Changed(flagAllowedSchemes) {
		opts = append(opts, pool.WithAllowedSchemes(c.AllowedSchemes...))
	}
	if fs.Changed(flagAllowLoopback) {
		opts = append(opts, pool.WithAllowLoopback(c.AllowLoopback))
	}

	return opts
}
