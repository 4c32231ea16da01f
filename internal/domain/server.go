package domain

// ServerConfig identifies an MCP server endpoint.
// It is supplied by callers per request and is never retained beyond the connection it describes.
type ServerConfig struct {
	ID   string
	Name string
	URL  string
}
