package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpool/internal/cmd"
	cmdopts "github.com/mozilla-ai/mcpool/internal/cmd/options"
	"github.com/mozilla-ai/mcpool/internal/cmd/output"
	"github.com/mozilla-ai/mcpool/internal/config"
	"github.com/mozilla-ai/mcpool/internal/flags"
	"github.com/mozilla-ai/mcpool/internal/pool"
	"github.com/mozilla-ai/mcpool/internal/printer"
)

// ToolsCmd should be used to represent the 'tools' command.
type ToolsCmd struct {
	*cmd.BaseCmd
	Format        cmd.OutputFormat
	cfgLoader     config.Loader
	clientFactory cmdopts.ClientFactoryBuilder
	toolsPrinter  output.Printer[printer.ToolsListResult]
}

// NewToolsCmd creates a newly configured (Cobra) command.
func NewToolsCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ToolsCmd{
		BaseCmd:       baseCmd,
		Format:        cmd.FormatText,
		cfgLoader:     opts.ConfigLoader,
		clientFactory: opts.ClientFactory,
		toolsPrinter:  &printer.ToolsListPrinter{},
	}

	cobraCmd := &cobra.Command{
		Use:   "tools <server-id>",
		Short: "Lists the tools exposed by a configured MCP server",
		Long: "Connects to a configured MCP server once, using the [pool] settings from the config file, " +
			"and lists the tools it exposes",
		RunE: c.run,
		Args: cobra.ExactArgs(1),
	}

	cmd.AddFormatFlag(cobraCmd.Flags(), &c.Format)

	return cobraCmd, nil
}

func (c *ToolsCmd) run(cobraCmd *cobra.Command, args []string) error {
	handler, err := cmd.FormatHandler(cobraCmd.OutOrStdout(), c.Format, c.toolsPrinter)
	if err != nil {
		return err
	}

	logger, err := c.Logger()
	if err != nil {
		return err
	}

	id := strings.TrimSpace(args[0])
	if id == "" {
		return handler.HandleError(fmt.Errorf("server-id is required"))
	}

	mod, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return handler.HandleError(err)
	}

	cfg, ok := mod.(*config.Config)
	if !ok {
		return handler.HandleError(fmt.Errorf("invalid config structure"))
	}

	server, ok := cfg.Server(id)
	if !ok {
		return handler.HandleError(fmt.Errorf("server '%s' not found in configuration", id))
	}

	p, err := pool.NewPool(logger, c.clientFactory(logger.Named("client")), cfg.Pool.Options()...)
	if err != nil {
		return handler.HandleError(err)
	}
	defer p.Shutdown()

	ctx, cancel := signal.NotifyContext(cobraCmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tools, err := p.GetTools(ctx, server)
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return handler.HandleError(err)
	}

	return handler.HandleResult(printer.NewToolsListResult(id, tools))
}
