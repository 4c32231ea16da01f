package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/domain"
)

// fakeClient is a controllable contracts.ToolClient.
type fakeClient struct {
	mu         sync.Mutex
	tools      []mcp.Tool
	listErrs   []error
	listDelay  time.Duration
	closeErr   error
	closeDelay time.Duration
	closed     bool
	listCalls  int
}

func (f *fakeClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	f.mu.Lock()
	f.listCalls++
	delay := f.listDelay
	var err error
	if len(f.listErrs) > 0 {
		err = f.listErrs[0]
		f.listErrs = f.listErrs[1:]
	}
	tools := f.tools
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	return tools, nil
}

func (f *fakeClient) Close() error {
	if f.closeDelay > 0 {
		time.Sleep(f.closeDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true

	return f.closeErr
}

func (f *fakeClient) failNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErrs = append(f.listErrs, errs...)
}

func (f *fakeClient) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// fakeFactory hands out fakeClients and records how many were created.
type fakeFactory struct {
	mu       sync.Mutex
	clients  map[string][]*fakeClient
	created  atomic.Int32
	delay    time.Duration
	err      error
	prepare  func(id string, c *fakeClient)
	received []contracts.ClientOptions
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{clients: make(map[string][]*fakeClient)}
}

func (f *fakeFactory) factory() contracts.ClientFactory {
	return func(ctx context.Context, server domain.ServerConfig, opts contracts.ClientOptions) (contracts.ToolClient, error) {
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		f.received = append(f.received, opts)
		if f.err != nil {
			return nil, f.err
		}

		c := &fakeClient{tools: []mcp.Tool{{Name: server.ID + "-tool"}}}
		if f.prepare != nil {
			f.prepare(server.ID, c)
		}
		f.clients[server.ID] = append(f.clients[server.ID], c)
		f.created.Add(1)

		return c, nil
	}
}

func (f *fakeFactory) latest(id string) *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()

	cs := f.clients[id]
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

func (f *fakeFactory) count() int {
	return int(f.created.Load())
}

func newTestPool(t *testing.T, f *fakeFactory, opts ...Option) *Pool {
	t.Helper()

	p, err := NewPool(hclog.NewNullLogger(), f.factory(), opts...)
	require.NoError(t, err)
	t.Cleanup(p.Shutdown)

	return p
}

func server(id string) domain.ServerConfig {
	return domain.ServerConfig{ID: id, Name: id, URL: "https://" + id + ".example.com/mcp"}
}
