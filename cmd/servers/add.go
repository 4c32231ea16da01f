package servers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpool/internal/cmd"
	cmdopts "github.com/mozilla-ai/mcpool/internal/cmd/options"
	"github.com/mozilla-ai/mcpool/internal/cmd/output"
	"github.com/mozilla-ai/mcpool/internal/config"
	"github.com/mozilla-ai/mcpool/internal/flags"
	"github.com/mozilla-ai/mcpool/internal/pool"
	"github.com/mozilla-ai/mcpool/internal/printer"
)

// AddCmd should be used to represent the 'servers add' command.
type AddCmd struct {
	*cmd.BaseCmd
	URL       string
	Name      string
	Format    cmd.OutputFormat
	cfgLoader config.Loader
	printer   output.Printer[config.ServerEntry]
}

// NewAddCmd creates a newly configured (Cobra) command.
func NewAddCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &AddCmd{
		BaseCmd:   baseCmd,
		Format:    cmd.FormatText,
		cfgLoader: opts.ConfigLoader,
		printer:   &printer.ServerEntryPrinter{},
	}

	cobraCmd := &cobra.Command{
		Use:   "add <server-id> --url <url> [--name <name>]",
		Short: "Adds an MCP server to the project config file",
		Long:  c.longDescription(),
		RunE:  c.run,
		Args:  cobra.ExactArgs(1),
	}

	cobraCmd.Flags().StringVar(&c.URL, "url", "", "Streamable HTTP or SSE endpoint of the server")
	cobraCmd.Flags().StringVar(&c.Name, "name", "", "Human-readable name for the server (defaults to the ID)")
	_ = cobraCmd.MarkFlagRequired("url")

	cmd.AddFormatFlag(cobraCmd.Flags(), &c.Format)

	return cobraCmd, nil
}

func (c *AddCmd) longDescription() string {
	return `Adds a remote MCP server to the project config file.

The URL must pass the pool's connection policy from the [pool] section of the config file.
URLs whose path ends in /sse are connected to over SSE, all others over streamable HTTP.`
}

func (c *AddCmd) run(cobraCmd *cobra.Command, args []string) error {
	handler, err := cmd.FormatHandler(cobraCmd.OutOrStdout(), c.Format, c.printer)
	if err != nil {
		return err
	}

	logger, err := c.Logger()
	if err != nil {
		return err
	}

	entry := config.ServerEntry{
		ID:   strings.TrimSpace(args[0]),
		Name: strings.TrimSpace(c.Name),
		URL:  strings.TrimSpace(c.URL),
	}
	if entry.ID == "" {
		return handler.HandleError(fmt.Errorf("server id is required and cannot be empty"))
	}

	mod, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return handler.HandleError(err)
	}

	var section *config.PoolSection
	if cfg, ok := mod.(*config.Config); ok {
		section = cfg.Pool
	}
	poolOpts, err := pool.NewOptions(section.Options()...)
	if err != nil {
		return handler.HandleError(err)
	}
	if err := poolOpts.URLPolicy.Validate(entry.URL); err != nil {
		return handler.HandleError(err)
	}

	if err := mod.AddServer(entry); err != nil {
		return handler.HandleError(fmt.Errorf("error adding server '%s': %w", entry.ID, err))
	}

	logger.Debug("Server added", "id", entry.ID, "url", entry.URL)

	return handler.HandleResult(entry)
}
