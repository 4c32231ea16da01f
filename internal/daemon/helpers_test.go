package daemon

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/domain"
	"github.com/mozilla-ai/mcpool/internal/errors"
)

// staticServers implements contracts.ServerLookup over a fixed list.
type staticServers []domain.ServerConfig

func (s staticServers) Server(id string) (domain.ServerConfig, bool) {
	for _, srv := range s {
		if srv.ID == id {
			return srv, true
		}
	}
	return domain.ServerConfig{}, false
}

func (s staticServers) Servers() []domain.ServerConfig {
	return append([]domain.ServerConfig(nil), s...)
}

type mockToolProvider struct{}

func (m *mockToolProvider) GetTools(context.Context, domain.ServerConfig) ([]mcp.Tool, error) {
	return nil, nil
}

func (m *mockToolProvider) ForceReconnect(string) {}

type mockHealthMonitor struct{}

func (m *mockHealthMonitor) Status(string) (domain.HealthRecord, error) {
	return domain.HealthRecord{}, errors.ErrHealthNotTracked
}

func (m *mockHealthMonitor) List() []domain.HealthRecord {
	return nil
}

type mockMetricsProvider struct{}

func (m *mockMetricsProvider) Metrics() domain.Metrics {
	return domain.Metrics{}
}

// stubClient is a contracts.ToolClient returning fixed tools.
type stubClient struct {
	tools  []mcp.Tool
	err    error
	closed atomic.Bool
}

func (c *stubClient) ListTools(context.Context) ([]mcp.Tool, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.tools, nil
}

func (c *stubClient) Close() error {
	c.closed.Store(true)
	return nil
}

// stubFactory hands out one stubClient per server ID, or a fixed connect error.
type stubFactory struct {
	mu         sync.Mutex
	tools      map[string][]mcp.Tool
	connectErr error
	clients    map[string]*stubClient
	connects   int
}

func (f *stubFactory) factory() contracts.ClientFactory {
	return func(_ context.Context, server domain.ServerConfig, _ contracts.ClientOptions) (contracts.ToolClient, error) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.connects++
		if f.connectErr != nil {
			return nil, f.connectErr
		}
		if f.clients == nil {
			f.clients = map[string]*stubClient{}
		}
		c := &stubClient{tools: f.tools[server.ID]}
		f.clients[server.ID] = c
		return c, nil
	}
}

func (f *stubFactory) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}
