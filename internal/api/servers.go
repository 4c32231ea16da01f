package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/domain"
	"github.com/mozilla-ai/mcpool/internal/errors"
)

// Server is the API representation of a configured MCP server.
type Server struct {
	ID   string `doc:"Unique server ID"        example:"search"                        json:"id"`
	Name string `doc:"Human readable name"     example:"Search"                        json:"name"`
	URL  string `doc:"Server endpoint address" example:"https://search.example.com/mcp" json:"url"`
}

// ServersResponse represents the wrapped API response for a list of servers.
type ServersResponse struct {
	Body struct {
		Servers []Server `doc:"Configured MCP servers" json:"servers"`
	}
}

// ServerRequest identifies a configured server by its ID.
type ServerRequest struct {
	ID string `doc:"ID of the server" example:"search" path:"id"`
}

// domainServer wraps domain.ServerConfig for conversion to Server via ToAPIType.
type domainServer domain.ServerConfig

// ToAPIType converts a wrapped domain type to Server.
func (d domainServer) ToAPIType() (Server, error) {
	return Server{
		ID:   d.ID,
		Name: d.Name,
		URL:  d.URL,
	}, nil
}

// RegisterServerRoutes sets up server-related API endpoints.
func RegisterServerRoutes(
	routerAPI huma.API,
	servers contracts.ServerLookup,
	provider contracts.ToolProvider,
	apiPathPrefix string,
) {
	serversAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Servers"}

	// Add route at the root of the group (no path specified).
	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "listServers",
			Method:      http.MethodGet,
			Summary:     "List all configured servers",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*ServersResponse, error) {
			return handleServers(servers)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID:   "reconnectServer",
			Method:        http.MethodPost,
			Path:          "/{id}/reconnect",
			Summary:       "Drop the pooled connection and cached tools for a server",
			Description:   "The next tools request for the server opens a fresh connection.",
			Tags:          tags,
			DefaultStatus: http.StatusNoContent,
		},
		func(ctx context.Context, input *ServerRequest) (*struct{}, error) {
			return handleServerReconnect(servers, provider, input.ID)
		},
	)
}

// handleServers returns the configured MCP servers sorted by ID.
func handleServers(lookup contracts.ServerLookup) (*ServersResponse, error) {
	servers := lookup.Servers()
	slices.SortFunc(servers, func(a, b domain.ServerConfig) int {
		return strings.Compare(a.ID, b.ID)
	})

	apiServers := make([]Server, 0, len(servers))
	for _, s := range servers {
		data, err := domainServer(s).ToAPIType()
		if err != nil {
			return nil, err
		}
		apiServers = append(apiServers, data)
	}

	resp := &ServersResponse{}
	resp.Body.Servers = apiServers

	return resp, nil
}

// handleServerReconnect forces the pool to forget the server's connection.
func handleServerReconnect(
	lookup contracts.ServerLookup,
	provider contracts.ToolProvider,
	id string,
) (*struct{}, error) {
	server, err := resolveServer(lookup, id)
	if err != nil {
		return nil, err
	}

	provider.ForceReconnect(server.ID)

	return nil, nil
}

// resolveServer looks up a configured server, translating absence to ErrServerNotFound.
func resolveServer(lookup contracts.ServerLookup, id string) (domain.ServerConfig, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ServerConfig{}, fmt.Errorf("%w: server id cannot be empty", errors.ErrBadRequest)
	}

	server, ok := lookup.Server(id)
	if !ok {
		return domain.ServerConfig{}, fmt.Errorf("%w: %s", errors.ErrServerNotFound, id)
	}

	return server, nil
}
