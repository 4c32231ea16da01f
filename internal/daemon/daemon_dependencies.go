package daemon

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpool/internal/contracts"
)

// Dependencies contains required dependencies for the Daemon.
// NewDependencies should be used to create instances of Dependencies.
type Dependencies struct {
	// APIAddr specifies the network address for the APIServer to bind (e.g., "0.0.0.0:8090").
	APIAddr string

	// Logger for daemon and subcomponent (API server, pool) operations.
	Logger hclog.Logger

	// Servers resolves the configured MCP servers the API serves tools for.
	Servers contracts.ServerLookup

	// ClientFactory connects the pool to MCP servers.
	ClientFactory contracts.ClientFactory
}

// NewDependencies creates and validates Dependencies.
func NewDependencies(
	logger hclog.Logger,
	apiAddr string,
	servers contracts.ServerLookup,
	factory contracts.ClientFactory,
) (Dependencies, error) {
	deps := Dependencies{
		APIAddr:       apiAddr,
		Logger:        logger,
		Servers:       servers,
		ClientFactory: factory,
	}

	if err := deps.Validate(); err != nil {
		return Dependencies{}, err
	}

	return deps, nil
}

// Validate ensures all required dependencies are provided and valid.
func (d Dependencies) Validate() error {
	if isNil(d.Logger) {
		return fmt.Errorf("logger cannot be nil")
	}

	if err := validateAddr(d.APIAddr); err != nil {
		return fmt.Errorf("invalid API address '%s': %w", d.APIAddr, err)
	}

	if isNil(d.Servers) {
		return fmt.Errorf("server lookup cannot be nil")
	}

	if len(d.Servers.Servers()) == 0 {
		return fmt.Errorf("server configurations not found")
	}

	if d.ClientFactory == nil {
		return fmt.Errorf("client factory cannot be nil")
	}

	return nil
}
