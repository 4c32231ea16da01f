package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/domain"
	"github.com/mozilla-ai/mcpool/internal/flags"
	"github.com/mozilla-ai/mcpool/internal/perms"
)

const testConfig = `[[servers]]
id = "time"
name = "Time"
url = "https://time.example.com/mcp"

[[servers]]
id = "broken"
url = "https://broken.example.com/mcp"
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

type fakeClient struct {
	tools []mcp.Tool
}

func (c *fakeClient) ListTools(context.Context) ([]mcp.Tool, error) {
	return c.tools, nil
}

func (c *fakeClient) Close() error {
	return nil
}

var errBrokenServer = errors.New("broken server")

// fakeFactory serves fixed tools for the "time" server and fails to connect to any other.
func fakeFactory(hclog.Logger) contracts.ClientFactory {
	return func(_ context.Context, server domain.ServerConfig, _ contracts.ClientOptions) (contracts.ToolClient, error) {
		if server.ID != "time" {
			return nil, errBrokenServer
		}
		return &fakeClient{tools: []mcp.Tool{
			mcp.NewTool("get_current_time", mcp.WithDescription("Get the current time")),
			mcp.NewTool("convert_time"),
		}}, nil
	}
}
