package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchOutput indicates a Fetch for a name the call did not export
	// or the engine did not produce.
	ErrNoSuchOutput = errors.New("engine: no such output")

	// ErrSessionClosed indicates use of a session after Close.
	ErrSessionClosed = errors.New("engine: session closed")

	// ErrInvalidCall indicates a Call that cannot be rendered.
	ErrInvalidCall = errors.New("engine: invalid call")
)

// UnavailableError reports that the engine runtime is not installed, cannot
// be started, or is not licensed. It is not retried.
type UnavailableError struct {
	Runtime string
	Reason  string
	Err     error
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("engine: %s unavailable: %s", e.Runtime, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// SimulationError reports a failure inside the engine, such as the model
// rejecting its parameters. Diagnostic carries the engine's own message.
type SimulationError struct {
	Function   string
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *SimulationError) Error() string {
	msg := fmt.Sprintf("engine: %s failed", e.Function)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}
