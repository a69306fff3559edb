// Package result turns engine output arrays into a time-indexed table.
package result

import (
	"fmt"
	"time"
)

// Row is one coastline point at one stored time step.
type Row struct {
	Time   time.Time `json:"time"`
	Step   int       `json:"step"`
	Point  int       `json:"point"`
	Values []float64 `json:"values"`
}

// Table holds a simulation's output with rows ordered by step, then point.
// A Table is not modified after Adapt returns it.
type Table struct {
	Columns    []string    `json:"columns"`
	Times      []time.Time `json:"times"`
	Iterations []float64   `json:"iterations"`
	Points     int         `json:"points"`
	Rows       []Row       `json:"rows"`
}

func (t *Table) Steps() int { return len(t.Times) }

func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of name in Columns, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every value of one column in row order.
func (t *Table) Column(name string) ([]float64, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("result: no column %q", name)
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values[idx]
	}
	return out, nil
}

// StepRows returns the rows of one time step.
func (t *Table) StepRows(step int) []Row {
	if step < 0 || step >= t.Steps() {
		return nil
	}
	return t.Rows[step*t.Points : (step+1)*t.Points]
}

// Snapshot returns one column across all points at a time step.
func (t *Table) Snapshot(step int, column string) ([]float64, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("result: no column %q", column)
	}
	rows := t.StepRows(step)
	if rows == nil {
		return nil, fmt.Errorf("result: step %d out of range [0,%d)", step, t.Steps())
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Values[idx]
	}
	return out, nil
}

// Series returns one column of one point across all time steps.
func (t *Table) Series(point int, column string) ([]float64, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("result: no column %q", column)
	}
	if point < 0 || point >= t.Points {
		return nil, fmt.Errorf("result: point %d out of range [0,%d)", point, t.Points)
	}
	out := make([]float64, t.Steps())
	for s := range out {
		out[s] = t.Rows[s*t.Points+point].Values[idx]
	}
	return out, nil
}
