package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/shoresim/internal/result"
	"github.com/san-kum/shoresim/internal/storage"
)

// Summary renders a run's metadata and per-column ranges as a panel.
// meta may be nil for a table that was never stored.
func Summary(meta *storage.RunMetadata, table *result.Table, theme Theme) string {
	st := theme.Styles()
	var b strings.Builder

	line := func(label, value string) {
		b.WriteString(st.Label.Render(label) + st.Value.Render(value) + "\n")
	}

	title := "SIMULATION"
	if meta != nil {
		title = strings.ToUpper(meta.Name)
		if meta.ID != "" {
			line("Run", meta.ID)
		}
		if meta.Description != "" {
			line("Description", meta.Description)
		}
		line("Engine", fmt.Sprintf("%s (%s)", meta.Function, meta.Runtime))
		line("Period", fmt.Sprintf("%s → %s", meta.RefTime, meta.EndOfSimulation))
		line("dt", fmt.Sprintf("%g yr", meta.Dt))
		line("Elapsed", fmt.Sprintf("%.1fs", meta.Elapsed))
	}
	line("Steps", fmt.Sprintf("%d", table.Steps()))
	line("Points", fmt.Sprintf("%d", table.Points))
	line("Rows", fmt.Sprintf("%d", table.Len()))

	if len(table.Columns) > 0 {
		b.WriteString("\n" + st.Title.Render("COLUMNS") + "\n")
	}
	last := table.Steps() - 1
	for _, name := range table.Columns {
		vals, _ := table.Column(name)
		lo, hi := bounds(vals)
		snap, _ := table.Snapshot(last, name)
		b.WriteString(fmt.Sprintf("%-8s %12s %12s  %s\n",
			name, formatBound(lo), formatBound(hi), st.Sparkline(snap, 24)))
	}

	header := st.Header.Render(title)
	return st.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, header, strings.TrimRight(b.String(), "\n")))
}

func bounds(vals []float64) (lo, hi float64) {
	lo, hi = math.NaN(), math.NaN()
	for _, v := range vals {
		if !finite(v) {
			continue
		}
		if math.IsNaN(lo) || v < lo {
			lo = v
		}
		if math.IsNaN(hi) || v > hi {
			hi = v
		}
	}
	return lo, hi
}

func formatBound(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}
