package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpool/internal/files"
	"github.com/mozilla-ai/mcpool/internal/flags"
)

// BaseCmd carries state shared by every mcpool command.
type BaseCmd struct {
	logger hclog.Logger
}

// SetLogger updates the command's logger
func (c *BaseCmd) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Logger returns the logger for the command, creating it from the log flags on first use.
// Logs are discarded unless a log path is configured.
func (c *BaseCmd) Logger() (hclog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}

	logLevel := strings.ToLower(strings.TrimSpace(flags.LogLevel))
	if logLevel == "" {
		logLevel = flags.DefaultLogLevel
	}

	level := hclog.LevelFromString(logLevel)
	if level == hclog.NoLevel {
		return nil, fmt.Errorf("invalid log level '%s', must be one of: trace, debug, info, warn, error, off", logLevel)
	}

	var output io.Writer = io.Discard
	if logPath := strings.TrimSpace(flags.LogPath); logPath != "" {
		f, err := files.OpenAppend(logPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file (%s): %w", logPath, err)
		}
		output = f
	}

	c.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "mcpool",
		Level:  level,
		Output: output,
	})

	return c.logger, nil
}
