package result

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/shoresim/internal/config"
	"github.com/san-kum/shoresim/internal/matlab"
)

// ErrShape is wrapped by every ShapeError.
var ErrShape = errors.New("result: output shape mismatch")

// ShapeError reports engine output that does not fit the configuration: a
// missing array, arrays that disagree on dimensions, or dimensions other
// than the declared ones.
type ShapeError struct {
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("result: %s: %s", e.Field, e.Reason)
}

func (e *ShapeError) Unwrap() error {
	return ErrShape
}

// Adapt builds a Table from the arrays returned for cfg. arrays maps output
// field names (it, x, y, ...) to the engine's arrays; output fields are
// points x steps matrices and it holds one iteration count per step.
func Adapt(cfg *config.SimulationConfig, arrays map[string]matlab.Array) (*Table, error) {
	it, ok := arrays[config.IterationField]
	if !ok {
		return nil, &ShapeError{Field: config.IterationField, Reason: "missing from engine output"}
	}
	if !it.IsEmpty() && !it.IsVector() {
		return nil, &ShapeError{Field: config.IterationField, Reason: fmt.Sprintf("want a vector, got %s", it)}
	}
	steps := it.Len()
	if cfg.Output.Timesteps > 0 && steps != cfg.Output.Timesteps {
		return nil, &ShapeError{Field: config.IterationField, Reason: fmt.Sprintf("engine stored %d steps, config declares %d", steps, cfg.Output.Timesteps)}
	}

	iterations := it.Values()
	step := cfg.TimeStep()
	times := make([]time.Time, steps)
	for i, n := range iterations {
		if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
			return nil, &ShapeError{Field: config.IterationField, Reason: fmt.Sprintf("invalid iteration count %v at step %d", n, i)}
		}
		times[i] = cfg.RefTime.Add(time.Duration(math.Round(n * float64(step))))
	}

	columns := cfg.Output.Fields
	data := make([]matlab.Array, len(columns))
	points := -1
	for i, name := range columns {
		a, ok := arrays[name]
		if !ok {
			return nil, &ShapeError{Field: name, Reason: "missing from engine output"}
		}
		if a.Cols != steps {
			return nil, &ShapeError{Field: name, Reason: fmt.Sprintf("has %d columns, want one per stored step (%d)", a.Cols, steps)}
		}
		if points >= 0 && a.Rows != points {
			return nil, &ShapeError{Field: name, Reason: fmt.Sprintf("has %d points, %s has %d", a.Rows, columns[0], points)}
		}
		points = a.Rows
		data[i] = a
	}
	first := config.IterationField
	if len(columns) > 0 {
		first = columns[0]
	}
	if points <= 0 && steps > 0 {
		return nil, &ShapeError{Field: first, Reason: fmt.Sprintf("no coastline points in %d stored steps", steps)}
	}
	points = max(points, 0)
	if cfg.Output.Points > 0 && points != cfg.Output.Points {
		return nil, &ShapeError{Field: first, Reason: fmt.Sprintf("engine returned %d points, config declares %d", points, cfg.Output.Points)}
	}

	rows := make([]Row, 0, steps*points)
	cols := make([][]float64, len(data))
	for s := 0; s < steps; s++ {
		for c, a := range data {
			cols[c] = a.Col(s)
		}
		for p := 0; p < points; p++ {
			vals := make([]float64, len(columns))
			for c := range cols {
				vals[c] = cols[c][p]
			}
			rows = append(rows, Row{Time: times[s], Step: s, Point: p, Values: vals})
		}
	}

	return &Table{
		Columns:    append([]string(nil), columns...),
		Times:      times,
		Iterations: iterations,
		Points:     points,
		Rows:       rows,
	}, nil
}
