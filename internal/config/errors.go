package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingKey indicates a required key absent from the parameter file.
	ErrMissingKey = errors.New("missing required key")

	// ErrUnknownKey indicates a key the loader does not recognise.
	ErrUnknownKey = errors.New("unknown key")

	// ErrInvalidValue indicates a key whose value breaks a constraint.
	ErrInvalidValue = errors.New("invalid value")
)

// ConfigurationError reports a problem with one key of an otherwise
// well-formed parameter file.
type ConfigurationError struct {
	Key    string
	Line   int
	Detail string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("config: %s: %v", e.Key, e.Err)
	if e.Line > 0 {
		msg = fmt.Sprintf("config: line %d: %s: %v", e.Line, e.Key, e.Err)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ParseError reports a parameter file that is not valid YAML or whose values
// have the wrong type.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	name := e.Path
	if name == "" {
		name = "<input>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("config: parse %s (line %d): %v", name, e.Line, e.Err)
	}
	return fmt.Sprintf("config: parse %s: %v", name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
