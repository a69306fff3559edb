// Package engine runs functions inside an external numerical engine.
//
// The engine is reached through a [Bridge], which opens one exclusive
// [Session] per call sequence. A session invokes a named function, exposes
// the arrays the call exported, and is closed when the caller is done. [Run]
// scopes a session to a single invocation and always closes it.
//
// [Process] is the production bridge: it launches MATLAB or GNU Octave in
// batch mode and exchanges data through a private scratch directory.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/san-kum/shoresim/internal/logging"
	"github.com/san-kum/shoresim/internal/matlab"
)

type Bridge interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a handle on one running engine. Sessions are not safe for
// concurrent use and are never shared between runs.
type Session interface {
	// Invoke runs the call and blocks until the engine returns or fails.
	Invoke(ctx context.Context, call Call) error
	// Fetch returns an array exported by the last Invoke.
	Fetch(name string) (matlab.Array, error)
	// Close releases the engine. Calling it again is a no-op.
	Close() error
}

// Call describes one function invocation.
type Call struct {
	// Function is the engine function to call, e.g. ShorelineS.
	Function string
	// Args are the positional arguments.
	Args []matlab.Value
	// Outputs names the variables bound to the function's return values,
	// in order. Its length is the call's nargout.
	Outputs []string
	// Export lists the variables or struct fields (O.x) to return as
	// arrays. Each must start with one of Outputs.
	Export []string
	// Paths are added recursively to the engine's search path first.
	Paths []string
}

func (c Call) Validate() error {
	if !matlab.IsIdentifier(c.Function) {
		return fmt.Errorf("%w: function name %q", ErrInvalidCall, c.Function)
	}
	outputs := make(map[string]bool, len(c.Outputs))
	for _, o := range c.Outputs {
		if !matlab.IsIdentifier(o) {
			return fmt.Errorf("%w: output name %q", ErrInvalidCall, o)
		}
		if outputs[o] {
			return fmt.Errorf("%w: duplicate output %q", ErrInvalidCall, o)
		}
		outputs[o] = true
	}
	for _, e := range c.Export {
		parts := strings.Split(e, ".")
		for _, p := range parts {
			if !matlab.IsIdentifier(p) {
				return fmt.Errorf("%w: export %q", ErrInvalidCall, e)
			}
		}
		if !outputs[parts[0]] {
			return fmt.Errorf("%w: export %q does not refer to an output", ErrInvalidCall, e)
		}
	}
	return nil
}

// Run opens a session, invokes call, and hands the session to collect so
// the caller can fetch results. The session is closed on every path; a
// close error is reported only when nothing else failed.
func Run(ctx context.Context, b Bridge, call Call, collect func(Session) error) (err error) {
	if err := call.Validate(); err != nil {
		return err
	}
	log := logging.FromContext(ctx)

	sess, err := b.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("engine session close failed", "error", cerr)
			if err == nil {
				err = fmt.Errorf("engine: close: %w", cerr)
			}
		}
	}()

	start := time.Now()
	log.Info("invoking engine function", "function", call.Function, "nargout", len(call.Outputs))
	if err := sess.Invoke(ctx, call); err != nil {
		log.Error("engine function failed", "function", call.Function, "elapsed", time.Since(start), "error", err)
		return err
	}
	log.Info("engine function returned", "function", call.Function, "elapsed", time.Since(start))

	if collect == nil {
		return nil
	}
	return collect(sess)
}

// Probe checks that the engine starts and evaluates a trivial function,
// returning the round-trip time.
func Probe(ctx context.Context, b Bridge) (time.Duration, error) {
	start := time.Now()
	var eps float64
	call := Call{Function: "eps", Outputs: []string{"e"}, Export: []string{"e"}}
	err := Run(ctx, b, call, func(s Session) error {
		a, err := s.Fetch("e")
		if err != nil {
			return err
		}
		if a.Len() != 1 {
			return fmt.Errorf("engine: probe returned %s", a)
		}
		eps = a.At(0, 0)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !(eps > 0 && eps < 1e-6) || math.IsNaN(eps) {
		return 0, errors.New("engine: probe returned an implausible machine epsilon")
	}
	return time.Since(start), nil
}
