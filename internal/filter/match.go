package filter

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Predicate defines a function that returns true if the given item matches a condition.
type Predicate[T any] func(item T, filterValue string) bool

// Options holds configuration for filtering behavior.
type Options[T any] struct {
	matchers map[string]Predicate[T]
}

// Option configures filter Options.
type Option[T any] func(*Options[T]) error

// defaultOptions returns the default filter Options.
func defaultOptions[T any]() Options[T] {
	return Options[T]{
		matchers: make(map[string]Predicate[T]),
	}
}

// NormalizeString can be used to normalize a string value for filtering/comparison.
// The value is made lowercase and has any leading and/or trailing whitespace removed.
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewOptions creates Options with defaults and applies given options.
func NewOptions[T any](opt ...Option[T]) (Options[T], error) {
	opts := defaultOptions[T]()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return Options[T]{}, err
		}
	}
	return opts, nil
}

// Keys returns the sorted filter keys that have a matcher.
func (o Options[T]) Keys() []string {
	return slices.Sorted(maps.Keys(o.matchers))
}

// StringValueProvider extracts a single string value from an item of type T.
type StringValueProvider[T any] func(T) string

// Equals returns a Predicate that checks if the value extracted by the provider
// exactly matches the filter value (case-insensitive, normalized).
//
// Example:
//
// predicate := Equals(func(s ServerEntry) string { return s.ID }),
// result := predicate(server, "search") // true if server.ID equals "search"
func Equals[T any](provider StringValueProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		return NormalizeString(provider(item)) == NormalizeString(val)
	}
}

// Partial returns a Predicate that checks if the value extracted by the provider
// contains the filter value as a substring (case-insensitive, normalized).
//
// Example:
//
// predicate := Partial(func(s ServerEntry) string { return s.URL }),
// result := predicate(server, "example.com") // true if server.URL contains "example.com"
func Partial[T any](provider StringValueProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		return strings.Contains(NormalizeString(provider(item)), NormalizeString(val))
	}
}

// WithMatchers adds or overrides matchers.
func WithMatchers[T any](m map[string]Predicate[T]) Option[T] {
	return func(o *Options[T]) error {
		for k, v := range m {
			if err := WithMatcher(k, v)(o); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithMatcher adds or overrides a matcher.
func WithMatcher[T any](key string, value Predicate[T]) Option[T] {
	return func(o *Options[T]) error {
		k := NormalizeString(key)
		if k == "" {
			return fmt.Errorf("filter key cannot be empty")
		}
		if value == nil {
			return fmt.Errorf("matcher for filter key '%s' cannot be nil", k)
		}
		o.matchers[k] = value
		return nil
	}
}

// Match applies the provided filters to an item of type T using the configured matchers.
// Every filter must match. A filter key without a matcher is an error.
func Match[T any](item T, filters map[string]string, opts ...Option[T]) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	filterOpts, err := NewOptions(opts...)
	if err != nil {
		return false, err
	}

	for key, val := range filters {
		k := NormalizeString(key)
		if k == "" {
			continue
		}

		matcher, ok := filterOpts.matchers[k]
		if !ok {
			return false, fmt.Errorf(
				"unsupported filter key '%s', must be one of: %s",
				k,
				strings.Join(filterOpts.Keys(), ", "),
			)
		}
		if !matcher(item, val) {
			return false, nil
		}
	}
	return true, nil
}

// Filter returns the items matching every filter, preserving their order.
func Filter[T any](items []T, filters map[string]string, opts ...Option[T]) ([]T, error) {
	matched := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := Match(item, filters, opts...)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched, nil
}
