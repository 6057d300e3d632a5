package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-sketch/pkg/config"
	"github.com/dd0wney/cluso-sketch/pkg/inference"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Quit}}
}

// stepMsg is sent for every applied constraint.
type stepMsg inference.Step

// doneMsg carries the outcome of the run.
type doneMsg struct {
	result *inference.Result
	err    error
}

type model struct {
	sketch      *inference.Sketch
	constraints []inference.Constraint
	steps       []inference.Step
	table       table.Model
	spinner     spinner.Model
	help        help.Model
	keys        keyMap
	started     time.Time
	result      *inference.Result
	err         error
	done        bool
	cancel      context.CancelFunc
	width       int
	finished    time.Duration
}

func initialModel(s *inference.Sketch, constraints []inference.Constraint, cancel context.CancelFunc) model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Constraint", Width: 36},
		{Title: "Kind", Width: 12},
		{Title: "Candidates", Width: 24},
		{Title: "Time", Width: 12},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(st)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF"))

	return model{
		sketch:      s,
		constraints: constraints,
		table:       t,
		spinner:     sp,
		help:        help.New(),
		keys:        keys,
		started:     time.Now(),
		cancel:      cancel,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case stepMsg:
		m.steps = append(m.steps, inference.Step(msg))
		m.table.SetRows(m.rows())
		m.table.GotoBottom()

	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		m.finished = time.Since(m.started)

	case spinner.TickMsg:
		if !m.done {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.steps))
	for _, s := range m.steps {
		count := s.Candidates.String()
		if s.Skipped {
			count = "skipped"
		}
		kind := ""
		if s.Index < len(m.constraints) {
			kind = inference.Kind(m.constraints[s.Index].Formula)
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", s.Index+1),
			s.Name,
			kind,
			count,
			s.Duration.Round(time.Millisecond).String(),
		})
	}
	return rows
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Sketch " + m.sketch.Name))
	s.WriteString("\n")

	var status string
	switch {
	case !m.done:
		status = fmt.Sprintf("%s applying constraint %d of %d  %s",
			m.spinner.View(), min(len(m.steps)+1, len(m.constraints)), len(m.constraints), time.Since(m.started).Round(time.Second))
	case m.err != nil:
		status = errorStyle.Render("✗ " + m.err.Error())
	default:
		status = successStyle.Render(fmt.Sprintf("✓ done in %s", m.finished.Round(time.Millisecond)))
	}
	s.WriteString(contentStyle.Render(status))
	s.WriteString("\n")

	s.WriteString(contentStyle.Render(m.table.View()))
	s.WriteString("\n")

	if m.result != nil {
		s.WriteString(contentStyle.Render(m.renderResult()))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderResult() string {
	r := m.result
	var lines []string
	lines = append(lines, fmt.Sprintf("Candidates: %s → %s", r.InitialCandidates, r.FinalCandidates))
	for _, c := range r.Classes {
		lines = append(lines, fmt.Sprintf("  %-28s %s", c.Class, c.Candidates))
	}
	if r.Summary != nil {
		lines = append(lines, fmt.Sprintf("Fixed updates: %d, free: %d", len(r.Summary.Fixed), len(r.Summary.Free)))
	}
	if r.GoalChecked {
		lines = append(lines, "Goal network: "+r.Goal.String())
	}
	for i, w := range r.Witnesses {
		lines = append(lines, fmt.Sprintf("Witness %d:", i+1), strings.TrimRight(w.String(), "\n"))
	}
	return statsBoxStyle.Render(strings.Join(lines, "\n"))
}

func main() {
	configPath := flag.String("config", "", "Sketch config file (YAML)")
	flag.Parse()
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: sketch-tui -config sketch.yaml")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
	sketch, err := cfg.Sketch()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
	constraints, err := inference.Constraints(sketch)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	p := tea.NewProgram(initialModel(sketch, constraints, cancel), tea.WithAltScreen())

	// The alternate screen owns the terminal, so logs go nowhere.
	runner := inference.Runner{
		Progress: func(s inference.Step) { p.Send(stepMsg(s)) },
		Logger:   logging.NewNopLogger(),
		Metrics:  metrics.DefaultRegistry(),
	}
	go func() {
		res, err := runner.Run(ctx, sketch)
		p.Send(doneMsg{result: res, err: err})
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
