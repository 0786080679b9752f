package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks malformed cohort or horizon configuration.
	ErrConfig = errors.New("invalid configuration")
	// ErrInvariant marks a solved schedule that breaks a storage invariant.
	ErrInvariant = errors.New("schedule invariant violated")
)

// ConfigError identifies the cohort and field that failed validation.
type ConfigError struct {
	Cohort string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Cohort == "" {
		return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: cohort %q: %s: %s", ErrConfig, e.Cohort, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// InvariantError reports the first invariant a schedule breaks.
type InvariantError struct {
	Cohort    string
	Hour      int
	Invariant string
	Value     float64
	Limit     float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: cohort %q hour %d: %s (value %.9g, limit %.9g)",
		ErrInvariant, e.Cohort, e.Hour, e.Invariant, e.Value, e.Limit)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

func configErr(cohort, field, format string, args ...any) error {
	return &ConfigError{Cohort: cohort, Field: field, Reason: fmt.Sprintf(format, args...)}
}
