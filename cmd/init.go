package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/mcpool/internal/cmd"
	cmdopts "github.com/mozilla-ai/mcpool/internal/cmd/options"
	"github.com/mozilla-ai/mcpool/internal/config"
	"github.com/mozilla-ai/mcpool/internal/files"
	"github.com/mozilla-ai/mcpool/internal/flags"
)

// InitCmd should be used to represent the 'init' command.
type InitCmd struct {
	*cmd.BaseCmd
	cfgInitializer config.Initializer
}

// NewInitCmd creates a newly configured (Cobra) command.
func NewInitCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &InitCmd{
		BaseCmd:        baseCmd,
		cfgInitializer: opts.ConfigInitializer,
	}

	return &cobra.Command{
		Use:   "init",
		Short: "Creates an `mcpool` config file listing no servers yet",
		Long: fmt.Sprintf(
			"Creates %s in the current directory, with commented [pool] and [api] settings.\n\n"+
				"Use the `--%s` flag or the `%s` environment variable to write it elsewhere",
			flags.DefaultConfigFile,
			flags.FlagNameConfigFile,
			flags.EnvVarConfigFile,
		),
		RunE: c.run,
		Args: cobra.NoArgs,
	}, nil
}

// configPath resolves the default config file name against the working directory.
func configPath() (string, error) {
	if flags.ConfigFile != flags.DefaultConfigFile {
		return flags.ConfigFile, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("error getting current directory: %w", err)
	}

	return filepath.Join(cwd, flags.DefaultConfigFile), nil
}

func (c *InitCmd) run(cobraCmd *cobra.Command, _ []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}

	out := cobraCmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "🚀 Initializing mcpool project at: %s\n", path); err != nil {
		return err
	}

	if err := files.EnsureParentDir(path); err != nil {
		return fmt.Errorf("error initializing mcpool project: %w", err)
	}

	if err := c.cfgInitializer.Init(path); err != nil {
		logger.Error("Project initialization failed", "path", path, "error", err)
		return fmt.Errorf("error initializing mcpool project: %w", err)
	}

	_, err = fmt.Fprintf(
		out,
		"✅ Config file created: %s\n\nNext, add a server with: mcpool servers add <server-id> --url <url>\n",
		path,
	)

	return err
}
