package daemon

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/mcpool/internal/domain"
)

func TestDaemon_Dependencies_Validate(t *testing.T) {
	t.Parallel()

	servers := staticServers{{ID: "time", Name: "Time", URL: "https://time.example.com/mcp"}}
	factory := (&stubFactory{}).factory()

	tests := []struct {
		name    string
		deps    Dependencies
		wantErr string
	}{
		{
			name: "valid dependencies",
			deps: Dependencies{
				APIAddr:       "localhost:8090",
				Logger:        hclog.NewNullLogger(),
				Servers:       servers,
				ClientFactory: factory,
			},
		},
		{
			name: "empty server configurations",
			deps: Dependencies{
				APIAddr:       "localhost:8090",
				Logger:        hclog.NewNullLogger(),
				Servers:       staticServers{},
				ClientFactory: factory,
			},
			wantErr: "server configurations not found",
		},
		{
			name: "nil server lookup",
			deps: Dependencies{
				APIAddr:       "localhost:8090",
				Logger:        hclog.NewNullLogger(),
				ClientFactory: factory,
			},
			wantErr: "server lookup cannot be nil",
		},
		{
			name: "nil client factory",
			deps: Dependencies{
				APIAddr: "localhost:8090",
				Logger:  hclog.NewNullLogger(),
				Servers: servers,
			},
			wantErr: "client factory cannot be nil",
		},
		{
			name: "invalid API address",
			deps: Dependencies{
				APIAddr:       "invalid-address",
				Logger:        hclog.NewNullLogger(),
				Servers:       servers,
				ClientFactory: factory,
			},
			wantErr: "invalid API address 'invalid-address': invalid address format: address invalid-address: missing port in address",
		},
		{
			name: "nil logger",
			deps: Dependencies{
				APIAddr:       "localhost:8090",
				Logger:        nil,
				Servers:       servers,
				ClientFactory: factory,
			},
			wantErr: "logger cannot be nil",
		},
		{
			name: "logger interface pointing to nil",
			deps: Dependencies{
				APIAddr:       "localhost:8090",
				Logger:        (hclog.Logger)(nil),
				Servers:       servers,
				ClientFactory: factory,
			},
			wantErr: "logger cannot be nil",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.deps.Validate()

			if tc.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.EqualError(t, err, tc.wantErr)
			}
		})
	}
}

func TestDaemon_NewDependencies(t *testing.T) {
	t.Parallel()

	servers := staticServers{{ID: "time", URL: "https://time.example.com/mcp"}}

	deps, err := NewDependencies(hclog.NewNullLogger(), "0.0.0.0:8090", servers, (&stubFactory{}).factory())
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8090", deps.APIAddr)
	require.Equal(t, []domain.ServerConfig(servers), deps.Servers.Servers())

	_, err = NewDependencies(hclog.NewNullLogger(), "0.0.0.0:8090", servers, nil)
	require.EqualError(t, err, "client factory cannot be nil")
}
