package viz

import (
	"errors"
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/shoresim/internal/result"
)

// ErrNothingToPlot indicates a series without a single finite value.
var ErrNothingToPlot = errors.New("viz: no finite values to plot")

// PlotOptions sizes a chart. Zero values pick a default.
type PlotOptions struct {
	Width  int
	Height int
}

func (o PlotOptions) apply(caption string) []asciigraph.Option {
	opts := []asciigraph.Option{asciigraph.Caption(caption), asciigraph.Precision(2)}
	if o.Width > 0 {
		opts = append(opts, asciigraph.Width(o.Width))
	}
	h := o.Height
	if h <= 0 {
		h = 12
	}
	return append(opts, asciigraph.Height(h))
}

// PlotSnapshot charts one column along the coast at a time step.
func PlotSnapshot(table *result.Table, step int, column string, o PlotOptions) (string, error) {
	vals, err := table.Snapshot(step, column)
	if err != nil {
		return "", err
	}
	caption := fmt.Sprintf("%s along coast at %s (step %d)", column, table.Times[step].Format("2006-01-02"), step)
	return plot(vals, o.apply(caption))
}

// PlotSeries charts one column of one coastline point over time.
func PlotSeries(table *result.Table, point int, column string, o PlotOptions) (string, error) {
	vals, err := table.Series(point, column)
	if err != nil {
		return "", err
	}
	caption := fmt.Sprintf("%s at point %d, %d steps", column, point, len(vals))
	return plot(vals, o.apply(caption))
}

// PlanView draws the coastline x/y positions at a time step on a braille
// canvas of w by h cells.
func PlanView(table *result.Table, step, w, h int) (string, error) {
	xs, err := table.Snapshot(step, "x")
	if err != nil {
		return "", err
	}
	ys, err := table.Snapshot(step, "y")
	if err != nil {
		return "", err
	}
	c := NewCanvas(w, h)
	c.Polyline(xs, ys)
	return c.String(), nil
}

func plot(vals []float64, opts []asciigraph.Option) (string, error) {
	data := make([]float64, len(vals))
	ok := false
	for i, v := range vals {
		if finite(v) {
			data[i], ok = v, true
		} else {
			// asciigraph leaves NaN as a gap in the line
			data[i] = math.NaN()
		}
	}
	if !ok {
		return "", ErrNothingToPlot
	}
	return asciigraph.Plot(data, opts...), nil
}
