package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubLoader returns a fixed Modifier or error from Load.
type stubLoader struct {
	modifier Modifier
	err      error
	paths    []string
}

func (s *stubLoader) Load(path string) (Modifier, error) {
	s.paths = append(s.paths, path)
	return s.modifier, s.err
}

// foreignModifier satisfies Modifier without being a *Config.
type foreignModifier struct{}

func (foreignModifier) AddServer(ServerEntry) error { return nil }
func (foreignModifier) RemoveServer(string) error   { return nil }
func (foreignModifier) ListServers() []ServerEntry  { return nil }

func TestValidatingLoader_Load(t *testing.T) {
	t.Parallel()

	errLoad := errors.New("load failed")
	errNoWeather := errors.New("weather server is required")
	errNoPool := errors.New("pool section is required")

	withServer := &Config{ServerEntries: []ServerEntry{{ID: "search", URL: "https://search.example.com/mcp"}}}

	requireWeather := func(c *Config) error {
		if _, ok := c.Server("weather"); !ok {
			return errNoWeather
		}
		return nil
	}
	requirePool := func(c *Config) error {
		if c.Pool == nil {
			return errNoPool
		}
		return nil
	}

	tests := []struct {
		name       string
		inner      *stubLoader
		predicates []ValidationPredicate
		want       Modifier
		wantErrs   []error
		wantMsg    string
	}{
		{
			name:     "inner error is returned unchanged",
			inner:    &stubLoader{err: errLoad},
			wantErrs: []error{errLoad},
		},
		{
			name:     "non Config modifier is rejected",
			inner:    &stubLoader{modifier: foreignModifier{}},
			wantErrs: []error{ErrConfigLoadFailed},
			wantMsg:  "invalid config structure (config.foreignModifier)",
		},
		{
			name:  "no predicates accepts an empty config",
			inner: &stubLoader{modifier: &Config{}},
			want:  &Config{},
		},
		{
			name:       "passing predicates return the config",
			inner:      &stubLoader{modifier: withServer},
			predicates: []ValidationPredicate{RequireServers},
			want:       withServer,
		},
		{
			name:       "require servers rejects an empty config",
			inner:      &stubLoader{modifier: &Config{}},
			predicates: []ValidationPredicate{RequireServers},
			wantErrs:   []error{ErrConfigLoadFailed},
			wantMsg:    "no servers configured",
		},
		{
			name:       "every failing predicate is reported",
			inner:      &stubLoader{modifier: withServer},
			predicates: []ValidationPredicate{requireWeather, RequireServers, requirePool},
			wantErrs:   []error{errNoWeather, errNoPool},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewValidatingLoader(tc.inner, tc.predicates...).Load("/etc/mcpool.toml")
			require.Equal(t, []string{"/etc/mcpool.toml"}, tc.inner.paths)

			if len(tc.wantErrs) == 0 {
				require.NoError(t, err)
				require.Equal(t, tc.want, got)
				return
			}

			require.Nil(t, got)
			for _, want := range tc.wantErrs {
				require.ErrorIs(t, err, want)
			}
			if tc.wantMsg != "" {
				require.ErrorContains(t, err, tc.wantMsg)
			}
		})
	}
}
