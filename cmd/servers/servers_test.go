package servers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/mcpool/internal/cmd"
	"github.com/mozilla-ai/mcpool/internal/config"
	"github.com/mozilla-ai/mcpool/internal/flags"
	"github.com/mozilla-ai/mcpool/internal/perms"
)

const twoServers = `[[servers]]
id = "search"
name = "Search"
url = "https://search.example.com/mcp"

[[servers]]
id = "legacy"
url = "https://legacy.example.com/sse"
`

// useConfigFile writes content to a temp config file and points the config file flag at it.
func useConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".mcpool.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), perms.RegularFile))

	previous := flags.ConfigFile
	t.Cleanup(func() { flags.ConfigFile = previous })
	flags.ConfigFile = path

	return path
}

func readConfig(t *testing.T, path string) config.Config {
	t.Helper()

	var cfg config.Config
	_, err := toml.DecodeFile(path, &cfg)
	require.NoError(t, err)

	return cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	c, err := NewCmd(&cmd.BaseCmd{})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	c.SetOut(out)
	c.SetErr(out)
	c.SetArgs(args)

	err = c.Execute()
	return out.String(), err
}

func TestListCmd(t *testing.T) {
	useConfigFile(t, twoServers)

	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Configured servers (2):")
	assert.Contains(t, out, "search (Search)")
	assert.Contains(t, out, "https://legacy.example.com/sse [sse]")

	out, err = execute(t, "list", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "search"`)
	assert.Contains(t, out, `"url": "https://legacy.example.com/sse"`)
}

func TestListCmd_Filter(t *testing.T) {
	useConfigFile(t, twoServers)

	tests := []struct {
		name    string
		filter  string
		want    []string
		notWant []string
		wantErr string
	}{
		{name: "by id", filter: "id=SEARCH", want: []string{"Configured servers (1):", "search (Search)"}, notWant: []string{"legacy"}},
		{name: "by transport", filter: "transport=sse", want: []string{"Configured servers (1):", "legacy"}, notWant: []string{"search (Search)"}},
		{name: "by partial url", filter: "url=example.com", want: []string{"Configured servers (2):"}},
		{name: "combined", filter: "url=legacy,transport=streamable-http", want: []string{"No items found"}, notWant: []string{"Configured servers"}},
		{name: "unsupported key", filter: "owner=me", wantErr: "unsupported filter key 'owner', must be one of: id, name, transport, url"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, "list", "--filter", tc.filter)
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			for _, s := range tc.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tc.notWant {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestListCmd_MissingConfig(t *testing.T) {
	previous := flags.ConfigFile
	t.Cleanup(func() { flags.ConfigFile = previous })
	flags.ConfigFile = filepath.Join(t.TempDir(), "missing.toml")

	_, err := execute(t, "list")
	require.ErrorIs(t, err, config.ErrConfigLoadFailed)
}

func TestAddCmd(t *testing.T) {
	tests := []struct {
		name          string
		initial       string
		args          []string
		expectedIDs   []string
		expectedOut   string
		expectedError string
	}{
		{
			name:        "adds server",
			initial:     "servers = []\n",
			args:        []string{"add", "weather", "--url", "https://weather.example.com/mcp", "--name", "Weather"},
			expectedIDs: []string{"weather"},
			expectedOut: "✓ Added server 'weather'\n  url: https://weather.example.com/mcp\n  transport: streamable-http\n",
		},
		{
			name:        "trims whitespace",
			initial:     twoServers,
			args:        []string{"add", "  weather  ", "--url", "  https://weather.example.com/sse  "},
			expectedIDs: []string{"search", "legacy", "weather"},
			expectedOut: "transport: sse",
		},
		{
			name:          "duplicate id",
			initial:       twoServers,
			args:          []string{"add", "search", "--url", "https://other.example.com/mcp"},
			expectedError: "duplicate server id 'search'",
		},
		{
			name:          "url required",
			initial:       twoServers,
			args:          []string{"add", "weather"},
			expectedError: `required flag(s) "url" not set`,
		},
		{
			name:          "loopback rejected by default",
			initial:       twoServers,
			args:          []string{"add", "local", "--url", "http://localhost:3000/mcp"},
			expectedError: "loopback host 'localhost' is not allowed",
		},
		{
			name:        "loopback allowed by pool config",
			initial:     "servers = []\n\n[pool]\nallow_loopback = true\n",
			args:        []string{"add", "local", "--url", "http://localhost:3000/mcp"},
			expectedIDs: []string{"local"},
			expectedOut: "✓ Added server 'local'",
		},
		{
			name:          "scheme not allowed",
			initial:       twoServers,
			args:          []string{"add", "files", "--url", "file:///etc/passwd"},
			expectedError: "scheme 'file' is not allowed",
		},
		{
			name:          "empty id",
			initial:       twoServers,
			args:          []string{"add", "   ", "--url", "https://weather.example.com/mcp"},
			expectedError: "server id is required and cannot be empty",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := useConfigFile(t, tc.initial)

			out, err := execute(t, tc.args...)

			if tc.expectedError != "" {
				require.ErrorContains(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Contains(t, out, tc.expectedOut)

			cfg := readConfig(t, path)
			ids := make([]string, 0, len(cfg.ServerEntries))
			for _, s := range cfg.ServerEntries {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func TestRemoveCmd(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		expectedIDs   []string
		expectedError string
	}{
		{
			name:        "removes server leaving others",
			args:        []string{"remove", "legacy"},
			expectedIDs: []string{"search"},
		},
		{
			name:        "id with whitespace",
			args:        []string{"remove", " search "},
			expectedIDs: []string{"legacy"},
		},
		{
			name:          "missing id",
			args:          []string{"remove"},
			expectedError: "server id is required and cannot be empty",
		},
		{
			name:          "unknown id",
			args:          []string{"remove", "weather"},
			expectedError: "server 'weather' not found in config",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := useConfigFile(t, twoServers)

			out, err := execute(t, tc.args...)

			if tc.expectedError != "" {
				require.ErrorContains(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Contains(t, out, "✓ Removed server")

			cfg := readConfig(t, path)
			ids := make([]string, 0, len(cfg.ServerEntries))
			for _, s := range cfg.ServerEntries {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}
