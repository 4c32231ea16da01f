package servers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpool/internal/cmd"
	cmdopts "github.com/mozilla-ai/mcpool/internal/cmd/options"
	"github.com/mozilla-ai/mcpool/internal/config"
	"github.com/mozilla-ai/mcpool/internal/flags"
)

// RemoveCmd should be used to represent the 'servers remove' command.
type RemoveCmd struct {
	*cmd.BaseCmd
	cfgLoader config.Loader
}

// NewRemoveCmd creates a newly configured (Cobra) command.
func NewRemoveCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &RemoveCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "remove <server-id>",
		Short: "Removes an MCP server from the project config file",
		Long:  c.longDescription(),
		RunE:  c.run,
	}

	return cobraCommand, nil
}

// longDescription returns the long version of the command description.
func (c *RemoveCmd) longDescription() string {
	return `Removes an MCP server from the project config file.
Specify the server ID to remove it.`
}

// run is configured (via NewRemoveCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *RemoveCmd) run(cobraCmd *cobra.Command, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("server id is required and cannot be empty")
	}

	logger, err := c.Logger()
	if err != nil {
		return err
	}

	id := strings.TrimSpace(args[0])

	cfg, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return err
	}

	if err := cfg.RemoveServer(id); err != nil {
		return err
	}

	logger.Debug("Server removed", "id", id)
	_, _ = fmt.Fprintf(cobraCmd.OutOrStdout(), "✓ Removed server '%s'\n", id)

	return nil
}
