package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigLoadFailed wraps every failure to read a usable config file.
	ErrConfigLoadFailed = errors.New("failed to load configuration")

	// ErrInvalidValue indicates a setting outside its permitted range.
	ErrInvalidValue = errors.New("config value invalid")

	// ErrDuplicateServerID indicates two server entries share an ID.
	ErrDuplicateServerID = errors.New("duplicate server id")

	// ErrServerNotConfigured indicates that no server entry has the requested ID.
	ErrServerNotConfigured = errors.New("not found in config")
)

// NewErrInvalidValue returns an ErrInvalidValue naming the config key and its rejected value.
func NewErrInvalidValue(key string, value string) error {
	return fmt.Errorf("%w: '%s' (value: '%s')", ErrInvalidValue, key, value)
}
