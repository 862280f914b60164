// Package config defines the recognized session options, their
// defaults, and an accumulate-all-errors validator.
package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound indicates the configuration file was not found.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrValidationFailed indicates configuration validation failed; the
	// caller should inspect the accompanying ValidationErrors for the full
	// list of violations.
	ErrValidationFailed = errors.New("configuration validation failed")
)

// ValidationErrors collects every violation found by Validator.Validate, so
// the caller can report all of them at once instead of stopping at the
// first.
type ValidationErrors struct {
	Messages []string
}

func (e *ValidationErrors) Error() string {
	if len(e.Messages) == 1 {
		return fmt.Sprintf("%v: %s", ErrValidationFailed, e.Messages[0])
	}
	return fmt.Sprintf("%v: %d violations (%v)", ErrValidationFailed, len(e.Messages), e.Messages)
}

func (e *ValidationErrors) Unwrap() error { return ErrValidationFailed }

// LoadError wraps configuration loading errors with file context.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("failed to load %s: %v", e.File, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

func NewLoadError(file string, err error) *LoadError {
	return &LoadError{File: file, Err: err}
}
