// Package mcpclient connects to remote MCP servers over streamable HTTP or SSE.
package mcpclient

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/domain"
)

var _ contracts.ToolClient = (*Client)(nil)

// Transport identifies how a Client talks to its server.
type Transport string

const (
	// TransportStreamableHTTP is the streamable HTTP transport.
	TransportStreamableHTTP Transport = "streamable-http"

	// TransportSSE is the legacy HTTP with server-sent events transport.
	TransportSSE Transport = "sse"
)

// ClientName is reported to servers during the initialize handshake.
const ClientName = "mcpool"

// Version is reported to servers during the initialize handshake.
var Version = "dev"

// Client is a live connection to a single MCP server.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	serverID  string
	transport Transport
	session   *client.Client
	opts      contracts.ClientOptions
	logger    hclog.Logger

	// cancel ends the background context that owns the transport's lifetime.
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error

	newBackOff func() backoff.BackOff
}

// Factory returns a contracts.ClientFactory which connects using New.
func Factory(logger hclog.Logger) contracts.ClientFactory {
	return func(ctx context.Context, server domain.ServerConfig, opts contracts.ClientOptions) (contracts.ToolClient, error) {
		return New(ctx, logger, server, opts)
	}
}

// TransportFor picks the transport for the server URL.
// URLs whose path ends in /sse use SSE; everything else uses streamable HTTP.
func TransportFor(rawURL string) Transport {
	u, err := url.Parse(rawURL)
	if err != nil {
		return TransportStreamableHTTP
	}
	if strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), "/sse") {
		return TransportSSE
	}
	return TransportStreamableHTTP
}

// New connects to the server and completes the MCP initialize handshake.
// Transient failures are retried up to opts.Retries times, each attempt bounded by opts.Timeout.
func New(ctx context.Context, logger hclog.Logger, server domain.ServerConfig, opts contracts.ClientOptions) (*Client, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("client timeout must be positive, got %v", opts.Timeout)
	}
	if opts.Retries < 0 {
		return nil, fmt.Errorf("client retries cannot be negative, got %d", opts.Retries)
	}

	c := &Client{
		serverID:   server.ID,
		transport:  TransportFor(server.URL),
		opts:       opts,
		logger:     logger.Named("mcpclient").With("server", server.ID),
		newBackOff: func() backoff.BackOff { return defaultBackOff(opts.MaxBackoff) },
	}

	err := c.retry(ctx, "connect", func(ctx context.Context) error {
		return c.connect(ctx, server)
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// connect makes a single attempt at starting the transport and initializing the session.
func (c *Client) connect(ctx context.Context, server domain.ServerConfig) error {
	// The transport outlives this call, so it is bound to a context cancelled by Close.
	lifetime, cancel := context.WithCancel(context.WithoutCancel(ctx))

	mcpClient, err := c.newMCPClient(server.URL)
	if err != nil {
		cancel()
		return backoff.Permanent(err)
	}

	if err := mcpClient.Start(lifetime); err != nil {
		cancel()
		_ = mcpClient.Close()
		return fmt.Errorf("failed to start %s client: %w", c.transport, err)
	}

	initCtx, initCancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer initCancel()

	result, err := mcpClient.Initialize(initCtx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: ClientName, Version: Version},
		},
	})
	if err != nil {
		cancel()
		_ = mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	c.session = mcpClient
	c.cancel = cancel

	c.logger.Debug(
		"Initialized MCP session",
		"transport", c.transport,
		"server_name", result.ServerInfo.Name,
		"server_version", result.ServerInfo.Version,
		"protocol", result.ProtocolVersion,
	)

	return nil
}

func (c *Client) newMCPClient(rawURL string) (*client.Client, error) {
	switch c.transport {
	case TransportSSE:
		// The event stream is long lived, so no overall HTTP timeout applies to it.
		mcpClient, err := client.NewSSEMCPClient(rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE client: %w", err)
		}
		return mcpClient, nil
	default:
		mcpClient, err := client.NewStreamableHttpClient(
			rawURL,
			transport.WithHTTPBasicClient(&http.Client{Timeout: c.opts.Timeout}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable-http client: %w", err)
		}
		return mcpClient, nil
	}
}

// ListTools returns every tool exposed by the server, following pagination cursors.
// Transient failures are retried within the client's retry budget.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var tools []mcp.Tool

	err := c.retry(ctx, "list tools", func(ctx context.Context) error {
		var err error
		tools, err = c.listAllTools(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return tools, nil
}

func (c *Client) listAllTools(ctx context.Context) ([]mcp.Tool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var (
		tools []mcp.Tool
		req   mcp.ListToolsRequest
	)
	for {
		result, err := c.session.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}
		tools = append(tools, result.Tools...)

		if result.NextCursor == "" {
			return tools, nil
		}
		req.Params.Cursor = result.NextCursor
	}
}

// Close ends the session and releases the transport. Later calls return the first call's result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.logger.Debug("Closing MCP session")
		if c.session != nil {
			c.closeErr = c.session.Close()
		}
		if c.cancel != nil {
			c.cancel()
		}
	})

	return c.closeErr
}

// retry runs op until it succeeds, fails permanently, ctx ends, or the retry budget is spent.
func (c *Client) retry(ctx context.Context, action string, op func(context.Context) error) error {
	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.opts.Retries)), ctx)

	err := backoff.RetryNotify(
		func() error {
			attempt++
			err := op(ctx)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil || !isTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		b,
		func(err error, wait time.Duration) {
			c.logger.Warn("Retrying after transient failure",
				"action", action,
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		},
	)
	if err != nil && ctx.Err() != nil && !stdErrors.Is(err, ctx.Err()) {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}

	return err
}

// isTransient reports whether a failed attempt is worth repeating.
func isTransient(err error) bool {
	var netErr net.Error

	switch {
	case stdErrors.Is(err, context.DeadlineExceeded):
		// Per attempt timeout; the caller's own deadline is checked before this.
		return true
	case stdErrors.Is(err, context.Canceled):
		return false
	case stdErrors.Is(err, syscall.ECONNREFUSED),
		stdErrors.Is(err, syscall.ECONNRESET),
		stdErrors.Is(err, io.ErrUnexpectedEOF),
		stdErrors.Is(err, io.EOF):
		return true
	case stdErrors.As(err, &netErr):
		var dnsErr *net.DNSError
		if stdErrors.As(err, &dnsErr) {
			return dnsErr.IsTimeout || dnsErr.IsTemporary
		}
		return true
	default:
		return false
	}
}

// defaultMaxBackoff caps retry waits when ClientOptions.MaxBackoff is unset.
const defaultMaxBackoff = 2 * time.Second

func defaultBackOff(maxInterval time.Duration) backoff.BackOff {
	if maxInterval <= 0 {
		maxInterval = defaultMaxBackoff
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(100*time.Millisecond, maxInterval)
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return &cappedBackOff{BackOff: b, max: maxInterval}
}

// cappedBackOff clamps jittered waits to max, so max bounds every wait before a retry.
type cappedBackOff struct {
	backoff.BackOff
	max time.Duration
}

func (b *cappedBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	return min(next, b.max)
}
