package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Panel  lipgloss.Style
	Title  lipgloss.Style
	Header lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Hint   lipgloss.Style
	Active lipgloss.Style
	Graph  lipgloss.Style
	High   lipgloss.Style
	Mid    lipgloss.Style
	Low    lipgloss.Style
}

func (t Theme) Styles() Styles {
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Text).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Border),
		Label: lipgloss.NewStyle().
			Foreground(t.Muted).
			Width(16),
		Value: lipgloss.NewStyle().
			Foreground(t.Text).
			Bold(true),
		Hint: lipgloss.NewStyle().
			Foreground(t.Muted).
			Italic(true),
		Active: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Accent),
		Graph: lipgloss.NewStyle().Foreground(t.Primary),
		High:  lipgloss.NewStyle().Foreground(t.Good),
		Mid:   lipgloss.NewStyle().Foreground(t.Warn),
		Low:   lipgloss.NewStyle().Foreground(t.Bad),
	}
}

// ProgressBar renders position in [0,1] as a filled bar.
func (s Styles) ProgressBar(pos float64, width int) string {
	filled := int(pos * float64(width))
	filled = max(0, min(filled, width))
	return s.Graph.Render(strings.Repeat("█", filled)) + s.Hint.Render(strings.Repeat("░", width-filled))
}

// Sparkline renders values as a one-line bar chart, sampled to width.
// Non-finite values are drawn as gaps.
func (s Styles) Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi, seen := 0.0, 0.0, false
	for _, v := range values {
		if !finite(v) {
			continue
		}
		if !seen || v < lo {
			lo = v
		}
		if !seen || v > hi {
			hi = v
		}
		seen = true
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := max(len(values)/width, 1)
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		v := values[i*step]
		if !finite(v) {
			b.WriteRune(' ')
			continue
		}
		norm := (v - lo) / rng
		c := string(chars[max(0, min(int(norm*float64(len(chars)-1)), len(chars)-1))])
		switch {
		case norm > 0.7:
			b.WriteString(s.High.Render(c))
		case norm > 0.3:
			b.WriteString(s.Mid.Render(c))
		default:
			b.WriteString(s.Low.Render(c))
		}
	}
	return b.String()
}
