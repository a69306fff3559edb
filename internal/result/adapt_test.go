package result

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/san-kum/shoresim/internal/config"
	"github.com/san-kum/shoresim/internal/matlab"
)

func testConfig() *config.SimulationConfig {
	cfg := config.DefaultConfig()
	cfg.RefTime = config.Date{Time: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg.EndOfSimulation = config.Date{Time: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg.Dt = 1.0 / 365 // one day per iteration
	cfg.StorageInterval = 10
	return cfg
}

// three points, two steps
func testArrays() map[string]matlab.Array {
	return map[string]matlab.Array{
		"it": matlab.RowVector(0, 10),
		"x":  matlab.NewArray([][]float64{{0, 0.5}, {100, 101}, {200, math.NaN()}}),
		"y":  matlab.NewArray([][]float64{{5, 6}, {7, 8}, {9, 10}}),
	}
}

func TestAdapt(t *testing.T) {
	table, err := Adapt(testConfig(), testArrays())
	if err != nil {
		t.Fatalf("adapt failed: %v", err)
	}

	if table.Steps() != 2 || table.Points != 3 || table.Len() != 6 {
		t.Fatalf("expected 2 steps x 3 points, got %d x %d (%d rows)", table.Steps(), table.Points, table.Len())
	}
	if !cmp.Equal(table.Columns, []string{"x", "y"}) {
		t.Errorf("unexpected columns %v", table.Columns)
	}

	want := time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC)
	if !table.Times[1].Equal(want) {
		t.Errorf("expected second step at %v, got %v", want, table.Times[1])
	}

	// time-major ordering
	r := table.Rows[4]
	if r.Step != 1 || r.Point != 1 || r.Values[0] != 101 || r.Values[1] != 8 {
		t.Errorf("unexpected row 4: %+v", r)
	}
	if !math.IsNaN(table.Rows[5].Values[0]) {
		t.Errorf("expected NaN separator to survive, got %v", table.Rows[5].Values[0])
	}
}

func TestAdapt_SubDayTimeStep(t *testing.T) {
	cfg := testConfig()
	cfg.Dt = 1.0 / (365 * 24) // one hour
	arrays := map[string]matlab.Array{
		"it": matlab.RowVector(0, 6),
		"x":  matlab.RowVector(1, 2),
		"y":  matlab.RowVector(3, 4),
	}

	table, err := Adapt(cfg, arrays)
	if err != nil {
		t.Fatalf("adapt failed: %v", err)
	}
	if got := table.Times[1].Sub(table.Times[0]); got != 6*time.Hour {
		t.Errorf("expected 6h between steps, got %v", got)
	}
}

func TestAdapt_Deterministic(t *testing.T) {
	a, err := Adapt(testConfig(), testArrays())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Adapt(testConfig(), testArrays())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("repeated adapt differs (-first +second):\n%s", diff)
	}
}

func TestAdapt_DeclaredDimensions(t *testing.T) {
	cfg := testConfig()
	cfg.Output.Timesteps = 2
	cfg.Output.Points = 3
	if _, err := Adapt(cfg, testArrays()); err != nil {
		t.Fatalf("matching declaration rejected: %v", err)
	}

	cfg.Output.Points = 4
	if _, err := Adapt(cfg, testArrays()); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for point mismatch, got %v", err)
	}

	cfg.Output.Points = 0
	cfg.Output.Timesteps = 3
	if _, err := Adapt(cfg, testArrays()); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for step mismatch, got %v", err)
	}
}

func TestAdapt_ShapeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]matlab.Array)
		field  string
	}{
		{"missing it", func(m map[string]matlab.Array) { delete(m, "it") }, "it"},
		{"missing y (partial result)", func(m map[string]matlab.Array) { delete(m, "y") }, "y"},
		{"matrix it", func(m map[string]matlab.Array) { m["it"] = matlab.NewArray([][]float64{{0, 1}, {2, 3}}) }, "it"},
		{"step mismatch", func(m map[string]matlab.Array) { m["it"] = matlab.RowVector(0, 10, 20) }, "x"},
		{"point mismatch", func(m map[string]matlab.Array) { m["y"] = matlab.NewArray([][]float64{{1, 2}, {3, 4}}) }, "y"},
		{"no points", func(m map[string]matlab.Array) {
			m["x"] = matlab.Array{Rows: 0, Cols: 2}
			m["y"] = matlab.Array{Rows: 0, Cols: 2}
		}, "x"},
		{"NaN iteration", func(m map[string]matlab.Array) { m["it"] = matlab.RowVector(0, math.NaN()) }, "it"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arrays := testArrays()
			tt.mutate(arrays)

			table, err := Adapt(testConfig(), arrays)
			if table != nil {
				t.Error("no table may be returned on error")
			}
			var serr *ShapeError
			if !errors.As(err, &serr) {
				t.Fatalf("expected ShapeError, got %v", err)
			}
			if serr.Field != tt.field {
				t.Errorf("expected field %s, got %s (%v)", tt.field, serr.Field, err)
			}
		})
	}
}

func TestTableAccessors(t *testing.T) {
	table, err := Adapt(testConfig(), testArrays())
	if err != nil {
		t.Fatal(err)
	}

	snap, err := table.Snapshot(0, "x")
	if err != nil || !cmp.Equal(snap, []float64{0, 100, 200}) {
		t.Errorf("Snapshot(0, x) = %v, %v", snap, err)
	}
	series, err := table.Series(2, "y")
	if err != nil || !cmp.Equal(series, []float64{9, 10}) {
		t.Errorf("Series(2, y) = %v, %v", series, err)
	}
	col, err := table.Column("y")
	if err != nil || len(col) != 6 || col[3] != 6 {
		t.Errorf("Column(y) = %v, %v", col, err)
	}

	if _, err := table.Snapshot(5, "x"); err == nil {
		t.Error("expected out of range step error")
	}
	if _, err := table.Series(0, "z"); err == nil {
		t.Error("expected unknown column error")
	}
	if table.StepRows(-1) != nil {
		t.Error("expected nil rows for negative step")
	}
}
