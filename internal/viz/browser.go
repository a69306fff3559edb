package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/shoresim/internal/result"
)

// Browser is a Bubble Tea model that pages through a table's time steps.
type Browser struct {
	table    *result.Table
	title    string
	step     int
	column   int
	plan     bool
	showHelp bool
	theme    Theme
	width    int
	height   int
}

func NewBrowser(title string, table *result.Table, theme Theme) Browser {
	return Browser{
		table:  table,
		title:  title,
		theme:  theme,
		width:  80,
		height: 24,
	}
}

func (m Browser) Step() int { return m.step }

// Column returns the name of the plotted column.
func (m Browser) Column() string {
	if len(m.table.Columns) == 0 {
		return ""
	}
	return m.table.Columns[m.column]
}

func (m Browser) Init() tea.Cmd { return nil }

func (m Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		last := max(m.table.Steps()-1, 0)
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l":
			m.step = min(m.step+1, last)
		case "left", "h":
			m.step = max(m.step-1, 0)
		case "home", "g":
			m.step = 0
		case "end", "G":
			m.step = last
		case "tab":
			if n := len(m.table.Columns); n > 0 {
				m.column = (m.column + 1) % n
			}
		case "p":
			m.plan = !m.plan
		case "t":
			m.theme = nextTheme(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	}
	return m, nil
}

func (m Browser) View() string {
	st := m.theme.Styles()
	var s strings.Builder

	s.WriteString(st.Header.Render(strings.ToUpper(m.title)) + "\n")
	if m.table.Steps() == 0 {
		s.WriteString(st.Hint.Render("no stored time steps") + "\n")
		return s.String()
	}

	pos := 0.0
	if m.table.Steps() > 1 {
		pos = float64(m.step) / float64(m.table.Steps()-1)
	}
	s.WriteString(fmt.Sprintf("%s %s  %s\n\n",
		st.Active.Render(m.table.Times[m.step].Format("2006-01-02 15:04")),
		st.Hint.Render(fmt.Sprintf("step %d/%d", m.step+1, m.table.Steps())),
		st.ProgressBar(pos, 20)))

	chartW := max(m.width-16, 20)
	chartH := max(m.height-12, 6)
	var chart string
	var err error
	if m.plan {
		chart, err = PlanView(m.table, m.step, chartW, chartH)
	} else {
		chart, err = PlotSnapshot(m.table, m.step, m.Column(), PlotOptions{Width: chartW, Height: chartH})
	}
	if err != nil {
		s.WriteString(st.Hint.Render(err.Error()) + "\n")
	} else {
		s.WriteString(st.Graph.Render(chart) + "\n")
	}

	s.WriteString(st.Hint.Render("\n←/→:Step  Tab:Column  P:Plan  T:Theme  ?:Help  Q:Quit"))
	view := s.String()
	if m.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left, st.Panel.Render(helpText), view)
	}
	return view
}

const helpText = `KEYBOARD SHORTCUTS
←/→ h/l   Previous/next time step
Home/End  First/last time step
Tab       Cycle plotted column
P         Toggle plan view (x/y)
T         Cycle themes
?         Toggle this help
Q         Quit`
