package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/san-kum/shoresim/internal/logging"
	"github.com/san-kum/shoresim/internal/matlab"
)

// Runtime describes how to launch an engine in batch mode.
type Runtime struct {
	Name       string
	Executable string
	// Args builds the command line that runs the named script from the
	// working directory.
	Args func(script string) []string
}

var Runtimes = map[string]Runtime{
	"matlab": {
		Name:       "matlab",
		Executable: "matlab",
		Args: func(script string) []string {
			return []string{"-nodisplay", "-nosplash", "-batch", script}
		},
	},
	"octave": {
		Name:       "octave",
		Executable: "octave-cli",
		Args: func(script string) []string {
			return []string{"--quiet", "--norc", "--no-window-system", "--eval", script}
		},
	},
}

// markers in engine output that mean the runtime itself cannot be used
var licenseMarkers = []string{
	"license checkout failed",
	"license manager error",
	"licensing error",
	"no license",
}

// maximum diagnostic length kept from raw engine output
const diagnosticTail = 4096

type Options struct {
	// Runtime is a key of Runtimes.
	Runtime string
	// Executable overrides the runtime's default binary.
	Executable string
	// Timeout bounds one Invoke; zero means no limit.
	Timeout time.Duration
	// TempDir is where scratch directories are created; empty means
	// os.TempDir.
	TempDir string
	// Console receives the engine's console output as it runs.
	Console io.Writer
	// Env is appended to the inherited environment.
	Env []string
}

// Process is a Bridge that starts a fresh engine process per session.
type Process struct {
	opts    Options
	runtime Runtime
}

func NewProcess(opts Options) (*Process, error) {
	if opts.Runtime == "" {
		opts.Runtime = "matlab"
	}
	rt, ok := Runtimes[opts.Runtime]
	if !ok {
		return nil, fmt.Errorf("engine: unknown runtime %q", opts.Runtime)
	}
	if opts.Executable != "" {
		rt.Executable = opts.Executable
	}
	return &Process{opts: opts, runtime: rt}, nil
}

func (p *Process) Open(ctx context.Context) (Session, error) {
	exe, err := exec.LookPath(p.runtime.Executable)
	if err != nil {
		return nil, &UnavailableError{Runtime: p.runtime.Name, Reason: "executable not found", Err: err}
	}
	dir, err := os.MkdirTemp(p.opts.TempDir, "shoresim-")
	if err != nil {
		return nil, fmt.Errorf("engine: scratch dir: %w", err)
	}
	logging.FromContext(ctx).Debug("engine session opened", "runtime", p.runtime.Name, "executable", exe, "dir", dir)
	return &processSession{
		runtime: p.runtime,
		exe:     exe,
		dir:     dir,
		opts:    p.opts,
	}, nil
}

type processSession struct {
	runtime Runtime
	exe     string
	dir     string
	opts    Options
	arrays  map[string]matlab.Array
	closed  bool
}

func (s *processSession) Invoke(ctx context.Context, call Call) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.arrays = nil
	log := logging.FromContext(ctx)

	script, err := renderScript(call)
	if err != nil {
		return err
	}
	scriptPath := filepath.Join(s.dir, scriptName+".m")
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		return fmt.Errorf("engine: write script: %w", err)
	}
	for _, name := range []string{outputFile, errorFile} {
		_ = os.Remove(filepath.Join(s.dir, name))
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var console bytes.Buffer
	cmd := exec.CommandContext(ctx, s.exe, s.runtime.Args(scriptName)...)
	cmd.Dir = s.dir
	cmd.Env = append(os.Environ(), s.opts.Env...)
	if s.opts.Console != nil {
		cmd.Stdout = io.MultiWriter(&console, s.opts.Console)
	} else {
		cmd.Stdout = &console
	}
	cmd.Stderr = cmd.Stdout
	cmd.WaitDelay = 5 * time.Second

	log.Debug("starting engine", "runtime", s.runtime.Name, "args", cmd.Args[1:])
	runErr := cmd.Run()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("engine: %s interrupted: %w", call.Function, ctxErr)
	}

	out := console.String()
	// licence markers only count when the engine produced no results
	licenseFailure := func() error {
		return &UnavailableError{Runtime: s.runtime.Name, Reason: "license check failed", Err: errors.New(lastLines(out, 3))}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return &UnavailableError{Runtime: s.runtime.Name, Reason: "failed to start", Err: runErr}
		}
		serr := &SimulationError{Function: call.Function, ExitCode: exitErr.ExitCode(), Err: runErr}
		if msg, err := os.ReadFile(filepath.Join(s.dir, errorFile)); err == nil {
			serr.Diagnostic = strings.TrimSpace(string(msg))
			return serr
		}
		if hasLicenseFailure(out) {
			return licenseFailure()
		}
		serr.Diagnostic = tail(strings.TrimSpace(out), diagnosticTail)
		return serr
	}

	f, err := os.Open(filepath.Join(s.dir, outputFile))
	if err != nil {
		if hasLicenseFailure(out) {
			return licenseFailure()
		}
		return &SimulationError{Function: call.Function, Diagnostic: "engine exited without writing results", Err: err}
	}
	defer f.Close()

	arrays, err := matlab.DecodeArrays(f)
	if err != nil {
		return &SimulationError{Function: call.Function, Diagnostic: "unreadable results", Err: err}
	}
	s.arrays = arrays
	log.Debug("engine results read", "arrays", len(arrays))
	return nil
}

func (s *processSession) Fetch(name string) (matlab.Array, error) {
	if s.closed {
		return matlab.Array{}, ErrSessionClosed
	}
	a, ok := s.arrays[name]
	if !ok {
		return matlab.Array{}, fmt.Errorf("%w: %s", ErrNoSuchOutput, name)
	}
	return a, nil
}

func (s *processSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.arrays = nil
	return os.RemoveAll(s.dir)
}

func hasLicenseFailure(out string) bool {
	lower := strings.ToLower(out)
	for _, m := range licenseMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
