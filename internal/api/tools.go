package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpool/internal/contracts"
)

const (
	// queryParamDetail is the name of the query parameter for detail level selection.
	queryParamDetail = "detail"

	// toolDetailFull returns all fields including schemas and annotations.
	toolDetailFull toolDetailLevel = "full"

	// toolDetailMinimal returns only name and title.
	toolDetailMinimal toolDetailLevel = "minimal"

	// toolDetailSummary returns name, title, and description.
	toolDetailSummary toolDetailLevel = "summary"
)

// toolDetailLevel defines the amount of information to return about tools.
type toolDetailLevel string

// ToolsRequest represents the incoming API request for the tools of a configured server.
type ToolsRequest struct {
	ID string `doc:"ID of the configured server" example:"search" query:"id" required:"true"`
}

// ToolView is a union constraint for all tool view types.
type ToolView interface {
	ToolMinimal | ToolSummary | Tool
}

// ToolsResponseBody represents the body of a tools response.
type ToolsResponseBody[T ToolView] struct {
	ServerID string `json:"serverId"`
	Tools    []T    `json:"tools"`
}

// ToolsResponse represents a wrapped API response for tool collections.
type ToolsResponse[T ToolView] struct {
	Body ToolsResponseBody[T]
}

// ToolMinimal represents minimal tool information with name and title only.
type ToolMinimal struct {
	Name  string `doc:"Name of the tool"     json:"name"`
	Title string `doc:"Human-readable title" json:"title,omitempty"`
}

// ToolSummary adds the tool description to ToolMinimal.
type ToolSummary struct {
	ToolMinimal

	Description string `doc:"Description of what the tool does" json:"description"`
}

// Tool represents complete tool information including schemas and annotations.
type Tool struct {
	ToolSummary

	InputSchema  *JSONSchema      `doc:"Input parameters schema"         json:"inputSchema,omitempty"`
	OutputSchema *JSONSchema      `doc:"Output structure schema"         json:"outputSchema,omitempty"`
	Annotations  *ToolAnnotations `doc:"Additional hints about the tool" json:"annotations,omitempty"`

	// Meta is reserved by MCP for attaching additional metadata.
	Meta map[string]any `doc:"Additional metadata" json:"_meta,omitempty"` //nolint:tagliatelle
}

// JSONSchema defines the structure for a JSON schema object.
type JSONSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// ToolAnnotations carries the hints a server attaches to a tool.
// Hints come from the remote server and are not guaranteed to describe tool behavior faithfully.
type ToolAnnotations struct {
	Title           *string `json:"title,omitempty"`
	ReadOnlyHint    *bool   `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool   `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool   `json:"openWorldHint,omitempty"`
}

// domainTool wraps mcp.Tool for conversion to Tool via ToAPIType.
type domainTool mcp.Tool

// domainToolMinimal wraps Tool for projection to ToolMinimal via ToAPIType.
type domainToolMinimal Tool

// domainToolSummary wraps Tool for projection to ToolSummary via ToAPIType.
type domainToolSummary Tool

// Normalize handles case-insensitivity and trimming, defaulting to full detail.
func (t toolDetailLevel) Normalize() toolDetailLevel {
	normalized := toolDetailLevel(strings.ToLower(strings.TrimSpace(string(t))))
	switch normalized {
	case toolDetailMinimal, toolDetailSummary, toolDetailFull:
		return normalized
	default:
		return toolDetailFull
	}
}

// ToAPIType converts a wrapped domain type to Tool.
func (d domainTool) ToAPIType() (Tool, error) {
	var inputSchema *JSONSchema
	if d.InputSchema.Type != "" {
		inputSchema = &JSONSchema{
			Type:       d.InputSchema.Type,
			Properties: d.InputSchema.Properties,
			Required:   d.InputSchema.Required,
		}
	}

	var outputSchema *JSONSchema
	if d.OutputSchema.Type != "" {
		outputSchema = &JSONSchema{
			Type:       d.OutputSchema.Type,
			Properties: d.OutputSchema.Properties,
			Required:   d.OutputSchema.Required,
		}
	}

	annotations := &ToolAnnotations{
		Title:           &d.Annotations.Title,
		ReadOnlyHint:    d.Annotations.ReadOnlyHint,
		DestructiveHint: d.Annotations.DestructiveHint,
		IdempotentHint:  d.Annotations.IdempotentHint,
		OpenWorldHint:   d.Annotations.OpenWorldHint,
	}
	if annotations.IsZero() {
		annotations = nil
	}

	var meta map[string]any
	if d.Meta != nil && d.Meta.AdditionalFields != nil {
		meta = d.Meta.AdditionalFields
	}

	return Tool{
		ToolSummary: ToolSummary{
			ToolMinimal: ToolMinimal{
				Name:  d.Name,
				Title: d.Annotations.Title,
			},
			Description: d.Description,
		},
		InputSchema:  inputSchema,
		OutputSchema: outputSchema,
		Annotations:  annotations,
		Meta:         meta,
	}, nil
}

// ToAPIType projects Tool to ToolMinimal.
func (t domainToolMinimal) ToAPIType() (ToolMinimal, error) {
	return t.ToolMinimal, nil
}

// ToAPIType projects Tool to ToolSummary.
func (t domainToolSummary) ToAPIType() (ToolSummary, error) {
	return t.ToolSummary, nil
}

// IsZero reports whether the ToolAnnotations struct has no meaningful values set.
func (a *ToolAnnotations) IsZero() bool {
	if a == nil {
		return true
	}

	if a.Title != nil && *a.Title != "" {
		return false
	}

	return a.ReadOnlyHint == nil && a.DestructiveHint == nil && a.IdempotentHint == nil && a.OpenWorldHint == nil
}

// RegisterToolRoutes sets up the pooled tool lookup endpoint.
func RegisterToolRoutes(
	routerAPI huma.API,
	servers contracts.ServerLookup,
	provider contracts.ToolProvider,
	apiPathPrefix string,
) {
	toolsAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Tools"}

	huma.Register(
		toolsAPI,
		huma.Operation{
			OperationID: "listTools",
			Method:      http.MethodGet,
			Summary:     "List the tools of a configured server",
			Description: "Served from the tool cache when fresh, otherwise from a pooled connection. " +
				"The ?detail= query parameter selects minimal, summary or full (default) output.",
			Tags: tags,
		},
		func(ctx context.Context, input *ToolsRequest) (*ToolsResponse[Tool], error) {
			return handleTools(ctx, servers, provider, input.ID)
		},
	)
}

// handleTools resolves the server and fetches its tools through the pool.
func handleTools(
	ctx context.Context,
	lookup contracts.ServerLookup,
	provider contracts.ToolProvider,
	id string,
) (*ToolsResponse[Tool], error) {
	server, err := resolveServer(lookup, id)
	if err != nil {
		return nil, err
	}

	tools, err := provider.GetTools(ctx, server)
	if err != nil {
		return nil, withErrorType(err)
	}

	wrapped := make([]domainTool, len(tools))
	for i, t := range tools {
		wrapped[i] = domainTool(t)
	}

	apiTools, err := convertAll[Tool](wrapped)
	if err != nil {
		return nil, err
	}

	resp := &ToolsResponse[Tool]{}
	resp.Body.ServerID = server.ID
	resp.Body.Tools = apiTools

	return resp, nil
}

// toolFieldSelectTransformer filters tool responses based on the detail query parameter.
func toolFieldSelectTransformer(ctx huma.Context, _ string, v any) (any, error) {
	detail := toolDetailLevel(ctx.Query(queryParamDetail)).Normalize()
	if detail == toolDetailFull {
		return v, nil
	}

	// Huma passes the Body field to transformers, not the full response.
	body, ok := v.(ToolsResponseBody[Tool])
	if !ok {
		return v, nil
	}

	switch detail {
	case toolDetailMinimal:
		wrapped := make([]domainToolMinimal, len(body.Tools))
		for i, t := range body.Tools {
			wrapped[i] = domainToolMinimal(t)
		}
		minimal, err := convertAll[ToolMinimal](wrapped)
		if err != nil {
			return nil, err
		}
		return ToolsResponseBody[ToolMinimal]{ServerID: body.ServerID, Tools: minimal}, nil
	case toolDetailSummary:
		wrapped := make([]domainToolSummary, len(body.Tools))
		for i, t := range body.Tools {
			wrapped[i] = domainToolSummary(t)
		}
		summary, err := convertAll[ToolSummary](wrapped)
		if err != nil {
			return nil, err
		}
		return ToolsResponseBody[ToolSummary]{ServerID: body.ServerID, Tools: summary}, nil
	default:
		return v, nil
	}
}
