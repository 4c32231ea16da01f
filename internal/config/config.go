package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mozilla-ai/mcpool/internal/domain"
	"github.com/mozilla-ai/mcpool/internal/perms"
)

// skeleton is written by Init.
const skeleton = `servers = []

# [[servers]]
# id = "search"
# name = "Search"
# url = "https://search.example.com/mcp"

# [pool]
# max_connections = 10
# max_consecutive_failures = 3
# health_check_interval = "30s"
# client_timeout = "30s"
# client_retries = 2
# client_max_backoff = "2s"
# cache_ttl = "5m"
# cache_capacity = 50
# allowed_schemes = ["https", "http"]
# allow_loopback = false

# [api]
# addr = "0.0.0.0:8090"
# shutdown = "5s"
# metrics_path = "/metrics"

# [api.cors]
# enable = true
# allow_origins = ["http://localhost:3000"]
# allow_credentials = false
# max_age = "5m"
`

// Init creates the base skeleton configuration file for the mcpool project.
func (d *DefaultLoader) Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(skeleton), perms.RegularFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func (d *DefaultLoader) Load(path string) (Modifier, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", ErrConfigLoadFailed)
	}

	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config file cannot be found, run: 'mcpool init'", ErrConfigLoadFailed)
		}
		return nil, fmt.Errorf("%w: failed to stat config file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	var cfg *Config
	_, err = toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode config from file (%s): %w", ErrConfigLoadFailed, path, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: config file is empty (%s)", ErrConfigLoadFailed, path)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: failed to validate existing config (%s): %w", ErrConfigLoadFailed, path, err)
	}

	// Update the path that loaded this file to track it.
	cfg.configFilePath = path

	return cfg, nil
}

// AddServer attempts to persist a new MCP server to the configuration file (.mcpool.toml).
func (c *Config) AddServer(entry ServerEntry) error {
	entry.ID = strings.TrimSpace(entry.ID)
	entry.Name = strings.TrimSpace(entry.Name)
	entry.URL = strings.TrimSpace(entry.URL)

	c.ServerEntries = append(c.ServerEntries, entry)

	if err := c.validate(); err != nil {
		c.ServerEntries = c.ServerEntries[:len(c.ServerEntries)-1]
		return err
	}

	if err := c.saveConfig(); err != nil {
		return fmt.Errorf("failed to save updated config: %w", err)
	}

	return nil
}

// RemoveServer removes a server entry by ID from the configuration file (.mcpool.toml).
func (c *Config) RemoveServer(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("server id cannot be empty")
	}

	filtered := make([]ServerEntry, 0, len(c.ServerEntries))
	for _, s := range c.ServerEntries {
		if s.ID != id {
			filtered = append(filtered, s)
		}
	}

	if len(filtered) == len(c.ServerEntries) {
		return fmt.Errorf("server '%s' %w", id, ErrServerNotConfigured)
	}

	c.ServerEntries = filtered

	if err := c.saveConfig(); err != nil {
		return fmt.Errorf("failed to save updated config: %w", err)
	}

	return nil
}

// ListServers returns a copy of the currently configured server entries.
// This provides read-only access to the internal configuration without exposing direct mutation of the underlying slice.
func (c *Config) ListServers() []ServerEntry {
	return slices.Clone(c.ServerEntries)
}

// Server returns the configured server with the given ID.
func (c *Config) Server(id string) (domain.ServerConfig, bool) {
	id = strings.TrimSpace(id)
	for _, s := range c.ServerEntries {
		if s.ID == id {
			return s.ServerConfig(), true
		}
	}

	return domain.ServerConfig{}, false
}

// Servers returns all configured servers, in file order.
func (c *Config) Servers() []domain.ServerConfig {
	servers := make([]domain.ServerConfig, 0, len(c.ServerEntries))
	for _, s := range c.ServerEntries {
		servers = append(servers, s.ServerConfig())
	}

	return servers
}

// ServerConfig converts the entry to the form used by the pool.
func (e ServerEntry) ServerConfig() domain.ServerConfig {
	name := e.Name
	if name == "" {
		name = e.ID
	}

	return domain.ServerConfig{
		ID:   e.ID,
		Name: name,
		URL:  e.URL,
	}
}

// SaveConfig saves the current configuration to the config file.
func (c *Config) SaveConfig() error {
	return c.saveConfig()
}

func (c *Config) saveConfig() error {
	if c.configFilePath == "" {
		return fmt.Errorf("config file path not present")
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.configFilePath, data, perms.RegularFile)
}

// validate orchestrates validation of configuration structure.
func (c *Config) validate() error {
	if err := c.validateServers(); err != nil {
		return err
	}

	if c.Pool != nil {
		if err := c.Pool.Validate(); err != nil {
			return fmt.Errorf("pool configuration error: %w", err)
		}
	}

	if c.API != nil {
		if err := c.API.Validate(); err != nil {
			return fmt.Errorf("api configuration error: %w", err)
		}
	}

	return nil
}

// validateServers ensures that every ServerEntry has an ID and a URL, and that IDs are unique.
// The URL is only checked for syntax here; the pool applies its connection policy when connecting.
func (c *Config) validateServers() error {
	seen := map[string]struct{}{}

	for _, entry := range c.ServerEntries {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return fmt.Errorf("server entry has empty id")
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w '%s'", ErrDuplicateServerID, id)
		}
		seen[id] = struct{}{}

		if strings.TrimSpace(entry.URL) == "" {
			return fmt.Errorf("server '%s' has empty url", id)
		}
		if _, err := url.Parse(entry.URL); err != nil {
			return fmt.Errorf("server '%s' has invalid url: %w", id, err)
		}
	}

	return nil
}
