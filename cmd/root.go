package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpool/cmd/servers"
	"github.com/mozilla-ai/mcpool/internal/cmd"
	cmdopts "github.com/mozilla-ai/mcpool/internal/cmd/options"
	"github.com/mozilla-ai/mcpool/internal/flags"
	"github.com/mozilla-ai/mcpool/internal/mcpclient"
)

var version = "dev" // Set at build time using -ldflags

type RootCmd struct {
	*cmd.BaseCmd
}

// Execute builds the root command and runs it against the process arguments.
func Execute() error {
	mcpclient.Version = version

	rootCmd, err := NewRootCmd(&RootCmd{BaseCmd: &cmd.BaseCmd{}})
	if err != nil {
		return err
	}

	return rootCmd.Execute()
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd(c *RootCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:          "mcpool <command> [args]",
		Short:        "'mcpool' pools connections to remote MCP servers and serves their tools over HTTP",
		Long:         c.longDescription(),
		SilenceUsage: true,
		Version:      version,
	}

	// Global flags
	flags.InitFlags(rootCmd.PersistentFlags())

	fns := []func(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error){
		NewInitCmd,
		NewDaemonCmd,
		NewToolsCmd,
		servers.NewCmd,
	}

	for _, fn := range fns {
		tempCmd, err := fn(c.BaseCmd, opt...)
		if err != nil {
			return nil, fmt.Errorf("failed to create command: %w", err)
		}
		rootCmd.AddCommand(tempCmd)
	}

	return rootCmd, nil
}

func (c *RootCmd) longDescription() string {
	return `The 'mcpool' CLI manages a pool of connections to remote MCP servers.

It keeps one health-monitored connection per configured server, caches each
server's tool list, and serves tools, health and pool metrics over an HTTP API.`
}
