package api

import (
	"context"
	"crypto/tls"
	"io"
	"mime/multipart"
	"net/url"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpool/internal/domain"
	"github.com/mozilla-ai/mcpool/internal/errors"
)

// mockHumaContext implements huma.Context for testing.
type mockHumaContext struct {
	queryParams map[string]string
}

func (m *mockHumaContext) Query(name string) string {
	return m.queryParams[name]
}

// Minimal no-op implementations for other required methods.
func (m *mockHumaContext) Operation() *huma.Operation                 { return nil }
func (m *mockHumaContext) Context() context.Context                   { return context.Background() }
func (m *mockHumaContext) TLS() *tls.ConnectionState                  { return nil }
func (m *mockHumaContext) Version() huma.ProtoVersion                 { return huma.ProtoVersion{} }
func (m *mockHumaContext) Method() string                             { return "" }
func (m *mockHumaContext) Host() string                               { return "" }
func (m *mockHumaContext) RemoteAddr() string                         { return "" }
func (m *mockHumaContext) URL() url.URL                               { return url.URL{} }
func (m *mockHumaContext) Param(name string) string                   { return "" }
func (m *mockHumaContext) Header(name string) string                  { return "" }
func (m *mockHumaContext) EachHeader(cb func(name, value string))     {}
func (m *mockHumaContext) BodyReader() io.Reader                      { return nil }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) { return nil, nil }
func (m *mockHumaContext) SetReadDeadline(t time.Time) error          { return nil }
func (m *mockHumaContext) SetStatus(code int)                         {}
func (m *mockHumaContext) Status() int                                { return 0 }
func (m *mockHumaContext) SetHeader(name, value string)               {}
func (m *mockHumaContext) AppendHeader(name, value string)            {}
func (m *mockHumaContext) BodyWriter() io.Writer                      { return nil }

// mockServerLookup implements contracts.ServerLookup over a fixed list.
type mockServerLookup struct {
	servers []domain.ServerConfig
}

func (m *mockServerLookup) Server(id string) (domain.ServerConfig, bool) {
	for _, s := range m.servers {
		if s.ID == id {
			return s, true
		}
	}
	return domain.ServerConfig{}, false
}

func (m *mockServerLookup) Servers() []domain.ServerConfig {
	out := make([]domain.ServerConfig, len(m.servers))
	copy(out, m.servers)
	return out
}

// mockToolProvider implements contracts.ToolProvider for testing.
type mockToolProvider struct {
	mu          sync.Mutex
	tools       map[string][]mcp.Tool
	err         error
	requested   []domain.ServerConfig
	reconnected []string
}

func (m *mockToolProvider) GetTools(_ context.Context, server domain.ServerConfig) ([]mcp.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requested = append(m.requested, server)
	if m.err != nil {
		return nil, m.err
	}
	return m.tools[server.ID], nil
}

func (m *mockToolProvider) ForceReconnect(serverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reconnected = append(m.reconnected, serverID)
}

// mockHealthMonitor implements contracts.PoolHealthMonitor for testing.
type mockHealthMonitor struct {
	records []domain.HealthRecord
}

func (m *mockHealthMonitor) Status(serverID string) (domain.HealthRecord, error) {
	for _, r := range m.records {
		if r.ServerID == serverID {
			return r, nil
		}
	}
	return domain.HealthRecord{}, errors.ErrHealthNotTracked
}

func (m *mockHealthMonitor) List() []domain.HealthRecord {
	out := make([]domain.HealthRecord, len(m.records))
	copy(out, m.records)
	return out
}

// mockMetricsProvider implements contracts.PoolMetricsProvider for testing.
type mockMetricsProvider struct {
	metrics domain.Metrics
}

func (m *mockMetricsProvider) Metrics() domain.Metrics {
	return m.metrics
}
