package servers

import (
	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpool/internal/cmd"
	cmdopts "github.com/mozilla-ai/mcpool/internal/cmd/options"
	"github.com/mozilla-ai/mcpool/internal/cmd/output"
	"github.com/mozilla-ai/mcpool/internal/config"
	"github.com/mozilla-ai/mcpool/internal/filter"
	"github.com/mozilla-ai/mcpool/internal/flags"
	"github.com/mozilla-ai/mcpool/internal/mcpclient"
	"github.com/mozilla-ai/mcpool/internal/printer"
)

// ListCmd should be used to represent the 'servers list' command.
type ListCmd struct {
	*cmd.BaseCmd
	Format    cmd.OutputFormat
	Filters   map[string]string
	cfgLoader config.Loader
	printer   output.Printer[config.ServerEntry]
}

// NewListCmd creates a newly configured (Cobra) command.
func NewListCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ListCmd{
		BaseCmd:   baseCmd,
		Format:    cmd.FormatText,
		cfgLoader: opts.ConfigLoader,
		printer:   printer.NewServerListPrinter(),
	}

	cobraCmd := &cobra.Command{
		Use:   "list [--filter key=value]",
		Short: "Lists the configured MCP servers",
		Long: "Lists the configured MCP servers.\n\n" +
			"Filters narrow the list: 'id' and 'transport' must match exactly, 'name' and 'url' match partially. " +
			"Matching is case-insensitive and every filter must match.",
		RunE: c.run,
		Args: cobra.NoArgs,
	}

	cmd.AddFormatFlag(cobraCmd.Flags(), &c.Format)
	cobraCmd.Flags().StringToStringVar(
		&c.Filters,
		"filter",
		nil,
		"Only list servers matching key=value (keys: id, name, url, transport)",
	)

	return cobraCmd, nil
}

func (c *ListCmd) run(cobraCmd *cobra.Command, _ []string) error {
	handler, err := cmd.FormatHandler(cobraCmd.OutOrStdout(), c.Format, c.printer)
	if err != nil {
		return err
	}

	cfg, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return handler.HandleError(err)
	}

	entries, err := filter.Filter(cfg.ListServers(), c.Filters, serverMatchers())
	if err != nil {
		return handler.HandleError(err)
	}

	return handler.HandleResults(entries...)
}

func serverMatchers() filter.Option[config.ServerEntry] {
	return filter.WithMatchers(map[string]filter.Predicate[config.ServerEntry]{
		"id":   filter.Equals(func(s config.ServerEntry) string { return s.ID }),
		"name": filter.Partial(func(s config.ServerEntry) string { return s.Name }),
		"url":  filter.Partial(func(s config.ServerEntry) string { return s.URL }),
		"transport": filter.Equals(func(s config.ServerEntry) string {
			return string(mcpclient.TransportFor(s.URL))
		}),
	})
}
