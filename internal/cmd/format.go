package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mozilla-ai/mcpool/internal/cmd/output"
)

// OutputFormat selects how command results are rendered. It implements pflag.Value.
type OutputFormat string

type OutputFormats []OutputFormat

const (
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
	FormatText OutputFormat = "text"
)

// FlagNameFormat is the flag used by every command that renders results.
const FlagNameFormat = "format"

// AllowedOutputFormats returns the supported formats in lexical order.
func AllowedOutputFormats() OutputFormats {
	formats := OutputFormats{FormatJSON, FormatText, FormatYAML}
	slices.Sort(formats)
	return formats
}

// String joins the formats with ", ".
func (f OutputFormats) String() string {
	names := make([]string, 0, len(f))
	for _, format := range f {
		names = append(names, format.String())
	}
	return strings.Join(names, ", ")
}

func (f OutputFormat) String() string {
	return strings.ToLower(string(f))
}

// Set accepts any allowed format, ignoring case and surrounding space.
func (f *OutputFormat) Set(v string) error {
	candidate := OutputFormat(strings.ToLower(strings.TrimSpace(v)))
	allowed := AllowedOutputFormats()
	if !slices.Contains(allowed, candidate) {
		return errInvalidFormat(candidate)
	}
	*f = candidate
	return nil
}

func (f OutputFormat) Type() string {
	return "format"
}

// AddFormatFlag registers the --format flag on fs, bound to f.
func AddFormatFlag(fs *pflag.FlagSet, f *OutputFormat) {
	fs.Var(f, FlagNameFormat, fmt.Sprintf("Specify the output format (one of: %s)", AllowedOutputFormats()))
}

// FormatHandler returns the output handler for the format, rendering text through the printer.
func FormatHandler[T any](w io.Writer, format OutputFormat, printer output.Printer[T]) (output.Handler[T], error) {
	switch format {
	case FormatJSON:
		return output.NewJSONHandler[T](w, 2), nil
	case FormatYAML:
		return output.NewYAMLHandler[T](w, 2), nil
	case FormatText:
		return output.NewTextHandler[T](w, printer), nil
	default:
		return nil, errInvalidFormat(format)
	}
}

func errInvalidFormat(format OutputFormat) error {
	return fmt.Errorf("invalid format '%s', must be one of %s", string(format), AllowedOutputFormats())
}
