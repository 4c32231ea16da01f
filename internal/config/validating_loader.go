package config

import (
	"errors"
	"fmt"
)

// ValidationPredicate reports why a loaded Config cannot be used, or nil.
type ValidationPredicate func(*Config) error

// validatingLoader is a Loader that applies command specific checks on top of the file's own validation.
type validatingLoader struct {
	Loader
	predicates []ValidationPredicate
}

// NewValidatingLoader returns a Loader that runs every predicate against each loaded Config.
// Failures from all predicates are reported together.
func NewValidatingLoader(inner Loader, predicates ...ValidationPredicate) Loader {
	return &validatingLoader{
		Loader:     inner,
		predicates: predicates,
	}
}

func (l *validatingLoader) Load(path string) (Modifier, error) {
	mod, err := l.Loader.Load(path)
	if err != nil {
		return nil, err
	}

	cfg, ok := mod.(*Config)
	if !ok {
		return nil, fmt.Errorf("%w: invalid config structure (%T)", ErrConfigLoadFailed, mod)
	}

	var errs []error
	for _, predicate := range l.predicates {
		if err := predicate(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return cfg, nil
}

// RequireServers rejects a config with no servers configured.
func RequireServers(cfg *Config) error {
	if len(cfg.ServerEntries) == 0 {
		return fmt.Errorf("%w: no servers configured, run: 'mcpool servers add'", ErrConfigLoadFailed)
	}
	return nil
}
