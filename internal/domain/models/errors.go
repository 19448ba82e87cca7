package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrConfiguration marks tuning that cannot be used (overlapping sets, unknown rule).
	ErrConfiguration = errors.New("configuration error")
	// ErrMissingPriceData marks a signal slot with no matching bar. Tallied, never fatal.
	ErrMissingPriceData = errors.New("missing price data")
	// ErrIncompleteBar marks an entry with no following bar. Tallied, never fatal.
	ErrIncompleteBar = errors.New("incomplete bar")
)

// ConfigError describes which setting is wrong.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrConfiguration.
func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// NewConfigError builds a ConfigError.
func NewConfigError(field, format string, a ...interface{}) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, a...)}
}
