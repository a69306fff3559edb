// Package shoreline runs a ShorelineS simulation end to end: load the
// parameter file, invoke the model through an engine bridge, and adapt the
// returned arrays into a table.
package shoreline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/shoresim/internal/config"
	"github.com/san-kum/shoresim/internal/engine"
	"github.com/san-kum/shoresim/internal/logging"
	"github.com/san-kum/shoresim/internal/matlab"
	"github.com/san-kum/shoresim/internal/result"
)

const (
	settingsOutput = "S"
	resultsOutput  = "O"
	matfileOutput  = "M"
)

// Runner executes simulations one at a time. Each Run opens and closes its
// own engine session.
type Runner struct {
	bridge engine.Bridge
}

func NewRunner(bridge engine.Bridge) *Runner {
	return &Runner{bridge: bridge}
}

// Report describes a finished run.
type Report struct {
	Table   *result.Table
	Elapsed time.Duration
}

// RunFile loads the parameter file at path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*config.SimulationConfig, *Report, error) {
	log := logging.FromContext(ctx)
	log.Info("loading parameter file", "path", path)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	rep, err := r.Run(ctx, cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, rep, nil
}

// Run invokes the model with cfg and returns the adapted table. No table is
// returned when any stage fails.
func (r *Runner) Run(ctx context.Context, cfg *config.SimulationConfig) (*Report, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	c := *cfg
	c.ApplyDefaults()
	cfg = &c
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	call, err := BuildCall(cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureOutputDir(); err != nil {
		return nil, fmt.Errorf("shoreline: output dir: %w", err)
	}

	arrays, err := r.fetch(ctx, call, resultsOutput, cfg.Output.Fields)
	if err != nil {
		return nil, err
	}

	table, err := result.Adapt(cfg, arrays)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	log.Info("simulation complete", "steps", table.Steps(), "points", table.Points, "rows", table.Len(), "elapsed", elapsed)
	return &Report{Table: table, Elapsed: elapsed}, nil
}

// LoadResult tabulates the output of an earlier ShorelineS run saved as a
// MAT file holding the S and O structs. cfg supplies the time axis and
// output fields; the model is not run.
func (r *Runner) LoadResult(ctx context.Context, cfg *config.SimulationConfig, matFile string) (*Report, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	c := *cfg
	c.ApplyDefaults()
	cfg = &c
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	path, err := filepath.Abs(matFile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("shoreline: result file: %w", err)
	}

	call := LoadCall(path, cfg.Output.Fields)
	arrays, err := r.fetch(ctx, call, matfileOutput+"."+resultsOutput, cfg.Output.Fields)
	if err != nil {
		return nil, err
	}
	table, err := result.Adapt(cfg, arrays)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	log.Info("result file loaded", "path", path, "steps", table.Steps(), "points", table.Points, "rows", table.Len())
	return &Report{Table: table, Elapsed: elapsed}, nil
}

// LoadCall reads a MAT file into M and exports M.O.it and the output fields.
func LoadCall(path string, fields []string) engine.Call {
	prefix := matfileOutput + "." + resultsOutput + "."
	export := []string{prefix + config.IterationField}
	for _, f := range fields {
		export = append(export, prefix+f)
	}
	return engine.Call{
		Function: "load",
		Args:     []matlab.Value{path},
		Outputs:  []string{matfileOutput},
		Export:   export,
	}
}

// fetch runs call in its own session and collects prefix.it and
// prefix.<field>. Exports the engine did not produce are left out for
// result.Adapt to report.
func (r *Runner) fetch(ctx context.Context, call engine.Call, prefix string, fields []string) (map[string]matlab.Array, error) {
	log := logging.FromContext(ctx)
	names := append([]string{config.IterationField}, fields...)
	arrays := make(map[string]matlab.Array, len(names))
	err := engine.Run(ctx, r.bridge, call, func(s engine.Session) error {
		for _, f := range names {
			a, err := s.Fetch(prefix + "." + f)
			if errors.Is(err, engine.ErrNoSuchOutput) {
				log.Warn("engine output missing", "field", f, "error", err)
				continue
			}
			if err != nil {
				return err
			}
			arrays[f] = a
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return arrays, nil
}

// BuildCall translates cfg into the model invocation:
// [S, O] = ShorelineS(params), exporting O.it and every output field.
func BuildCall(cfg *config.SimulationConfig) (engine.Call, error) {
	params, err := cfg.Parameters()
	if err != nil {
		return engine.Call{}, err
	}
	export := []string{resultsOutput + "." + config.IterationField}
	for _, f := range cfg.Output.Fields {
		export = append(export, resultsOutput+"."+f)
	}
	call := engine.Call{
		Function: cfg.Engine.Function,
		Args:     []matlab.Value{params},
		Outputs:  []string{settingsOutput, resultsOutput},
		Export:   export,
	}
	if cfg.Engine.ModelDir != "" {
		call.Paths = []string{cfg.Engine.ModelDir}
	}
	return call, nil
}
