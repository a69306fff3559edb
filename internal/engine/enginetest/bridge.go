// Package enginetest provides an in-memory engine bridge for tests.
package enginetest

import (
	"context"
	"fmt"

	"github.com/san-kum/shoresim/internal/engine"
	"github.com/san-kum/shoresim/internal/matlab"
)

// Bridge returns canned arrays and counts session lifecycle calls.
type Bridge struct {
	// Arrays are served by Fetch when the invoked call exported them.
	Arrays map[string]matlab.Array
	// OpenErr, InvokeErr, FetchErr and CloseErr, when set, are returned by
	// the matching session method.
	OpenErr   error
	InvokeErr error
	FetchErr  error
	CloseErr  error

	Opens   int
	Closes  int
	Invokes int
	Calls   []engine.Call
}

func (b *Bridge) Open(ctx context.Context) (engine.Session, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.Opens++
	return &session{bridge: b}, nil
}

// Balanced reports whether every opened session was closed exactly once.
func (b *Bridge) Balanced() bool {
	return b.Opens == b.Closes
}

type session struct {
	bridge   *Bridge
	exported map[string]bool
	closed   bool
}

func (s *session) Invoke(ctx context.Context, call engine.Call) error {
	if s.closed {
		return engine.ErrSessionClosed
	}
	s.bridge.Invokes++
	s.bridge.Calls = append(s.bridge.Calls, call)
	if s.bridge.InvokeErr != nil {
		return s.bridge.InvokeErr
	}
	s.exported = make(map[string]bool, len(call.Export))
	for _, e := range call.Export {
		s.exported[e] = true
	}
	return nil
}

func (s *session) Fetch(name string) (matlab.Array, error) {
	if s.closed {
		return matlab.Array{}, engine.ErrSessionClosed
	}
	if s.bridge.FetchErr != nil {
		return matlab.Array{}, s.bridge.FetchErr
	}
	a, ok := s.bridge.Arrays[name]
	if !ok || !s.exported[name] {
		return matlab.Array{}, fmt.Errorf("%w: %s", engine.ErrNoSuchOutput, name)
	}
	return a, nil
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.bridge.Closes++
	return s.bridge.CloseErr
}
