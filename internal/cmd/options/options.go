package options

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/mcpool/internal/config"
	"github.com/mozilla-ai/mcpool/internal/contracts"
	"github.com/mozilla-ai/mcpool/internal/mcpclient"
)

type CmdOption func(*CmdOptions) error

// ClientFactoryBuilder creates the factory commands use to connect to MCP servers.
type ClientFactoryBuilder func(logger hclog.Logger) contracts.ClientFactory

type CmdOptions struct {
	ConfigLoader      config.Loader
	ConfigInitializer config.Initializer
	ClientFactory     ClientFactoryBuilder
}

func defaultOptions() CmdOptions {
	configLoader := &config.DefaultLoader{}
	return CmdOptions{
		ConfigLoader:      configLoader,
		ConfigInitializer: configLoader,
		ClientFactory:     mcpclient.Factory,
	}
}

func NewOptions(opt ...CmdOption) (CmdOptions, error) {
	opts := defaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return CmdOptions{}, err
		}
	}
	return opts, nil
}

func WithConfigLoader(l config.Loader) CmdOption {
	return func(o *CmdOptions) error {
		if l == nil {
			return fmt.Errorf("config loader cannot be nil")
		}
		o.ConfigLoader = l
		return nil
	}
}

func WithConfigInitializer(i config.Initializer) CmdOption {
	return func(o *CmdOptions) error {
		if i == nil {
			return fmt.Errorf("config initializer cannot be nil")
		}
		o.ConfigInitializer = i
		return nil
	}
}

func WithClientFactory(b ClientFactoryBuilder) CmdOption {
	return func(o *CmdOptions) error {
		if b == nil {
			return fmt.Errorf("client factory builder cannot be nil")
		}
		o.ClientFactory = b
		return nil
	}
}
