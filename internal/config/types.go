package config

import (
	"github.com/mozilla-ai/mcpool/internal/contracts"
)

var (
	_ Provider               = (*DefaultLoader)(nil)
	_ Modifier               = (*Config)(nil)
	_ contracts.ServerLookup = (*Config)(nil)
)

type Loader interface {
	Load(path string) (Modifier, error)
}

type Initializer interface {
	Init(path string) error
}

type Provider interface {
	Initializer
	Loader
}

type Modifier interface {
	AddServer(entry ServerEntry) error
	RemoveServer(id string) error
	ListServers() []ServerEntry
}

type DefaultLoader struct{}

// Config represents the .mcpool.toml file structure.
type Config struct {
	ServerEntries  []ServerEntry `toml:"servers"`
	Pool           *PoolSection  `toml:"pool,omitempty"`
	API            *APISection   `toml:"api,omitempty"`
	configFilePath string        `toml:"-"`
}

// ServerEntry represents the configuration of a single remote MCP server.
type ServerEntry struct {
	// ID is the unique identifier of the server, used as the pool key.
	// e.g. 'search'
	ID string `json:"id" toml:"id" yaml:"id"`

	// Name is a human-readable label for the server. Defaults to ID when empty.
	Name string `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty"`

	// URL is the server's streamable HTTP or SSE endpoint.
	// e.g. 'https://search.example.com/mcp'
	URL string `json:"url" toml:"url" yaml:"url"`
}
