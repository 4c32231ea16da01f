package printer

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpool/internal/cmd/output"
)

var _ output.Printer[ToolsListResult] = (*ToolsListPrinter)(nil)

// ToolsListResult is the tool listing of one server.
type ToolsListResult struct {
	Server string        `json:"server" yaml:"server"`
	Tools  []ToolSummary `json:"tools"  yaml:"tools"`
	Count  int           `json:"count"  yaml:"count"`
}

// ToolSummary is the name and description of a single tool.
type ToolSummary struct {
	Name        string `json:"name"                  yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// NewToolsListResult summarizes the tools a server exposes, ordered by name.
func NewToolsListResult(serverID string, tools []mcp.Tool) ToolsListResult {
	summaries := make([]ToolSummary, 0, len(tools))
	for _, tool := range tools {
		summaries = append(summaries, ToolSummary{Name: tool.Name, Description: tool.Description})
	}
	slices.SortStableFunc(summaries, func(a, b ToolSummary) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return ToolsListResult{
		Server: serverID,
		Tools:  summaries,
		Count:  len(summaries),
	}
}

// ToolsListPrinter prints a server's tools, one per line.
type ToolsListPrinter struct {
	frame[ToolsListResult]
}

func (p *ToolsListPrinter) Item(w io.Writer, result ToolsListResult) error {
	_, _ = fmt.Fprintf(w, "Tools for '%s' (%d total):\n", result.Server, result.Count)

	if len(result.Tools) == 0 {
		_, _ = fmt.Fprintln(w, "  (No tools available)")
		return nil
	}

	for _, tool := range result.Tools {
		if tool.Description == "" {
			_, _ = fmt.Fprintf(w, "  %s\n", tool.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s: %s\n", tool.Name, tool.Description)
	}

	return nil
}
