package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Config
const (
	defaultDaemonURL = "http://localhost:8110"
	pollRate         = time.Second
	maxRuns          = 15
	viewportHeight   = 20
	chartWidth       = 60
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Layout styles
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	// Run list styles
	runTimeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(20)
	runIDStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	infectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// API Types (mirrored from pkg/store and pkg/api to avoid CGO deps)

type RunParameters struct {
	TransmissionRate float64 `json:"transmission_rate"`
	RecoveryRate     float64 `json:"recovery_rate"`
	Population       int     `json:"population"`
	InitialInfected  int     `json:"initial_infected"`
	Scenario         string  `json:"scenario,omitempty"`
	DurationDays     int     `json:"duration_days,omitempty"`
}

type Point struct {
	Day         int `json:"day"`
	Susceptible int `json:"susceptible"`
	Infected    int `json:"infected"`
	Recovered   int `json:"recovered"`
}

type RunSummary struct {
	RunID      string        `json:"run_id"`
	Status     string        `json:"status"`
	Parameters RunParameters `json:"parameters"`
	CreatedAt  time.Time     `json:"created_at"`
}

type Run struct {
	RunID      string        `json:"run_id"`
	Status     string        `json:"status"`
	Parameters RunParameters `json:"parameters"`
	Series     []Point       `json:"series,omitempty"`
}

type tickMsg time.Time

type dataMsg struct {
	runs   []RunSummary
	latest *Run
	err    error
}

type model struct {
	daemonURL string
	spinner   spinner.Model
	viewport  viewport.Model
	runs      []RunSummary
	latest    *Run
	err       error
	ready     bool
}

func initialModel(daemonURL string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		daemonURL: daemonURL,
		spinner:   s,
		runs:      []RunSummary{},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(m.daemonURL),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(m.daemonURL), tick())

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.runs = msg.runs
			m.latest = msg.latest
			m.updateViewportContent()
		}

		if !m.ready {
			m.ready = true
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.viewport.Style = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				PaddingRight(2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
		}
	}

	return m, tea.Batch(cmds...)
}

// updateViewportContent renders the latest run's infected curve as a bar
// chart, one row per sampled slice of the series.
func (m *model) updateViewportContent() {
	var sb strings.Builder

	if m.latest == nil || len(m.latest.Series) == 0 {
		sb.WriteString(subtleStyle.Render("No completed runs yet."))
		m.viewport.SetContent(sb.String())
		return
	}

	run := m.latest
	peak := 0
	for _, pt := range run.Series {
		if pt.Infected > peak {
			peak = pt.Infected
		}
	}
	if peak == 0 {
		peak = 1
	}

	// Downsample to at most viewportHeight-2 rows.
	stride := len(run.Series) / (viewportHeight - 2)
	if stride < 1 {
		stride = 1
	}

	sb.WriteString(fmt.Sprintf("Run %s (scenario %s, peak %d infected)\n",
		runIDStyle.Render(run.RunID), scenarioLabel(run.Parameters.Scenario), peak))
	for i := 0; i < len(run.Series); i += stride {
		pt := run.Series[i]
		barLen := pt.Infected * chartWidth / peak
		bar := infectedStyle.Render(strings.Repeat("█", barLen))
		sb.WriteString(fmt.Sprintf("%s %s %s\n",
			runTimeStyle.Render(fmt.Sprintf("day %d", pt.Day)),
			bar,
			subtleStyle.Render(fmt.Sprintf("I=%d", pt.Infected)),
		))
	}

	m.viewport.SetContent(sb.String())
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Initializing...", m.spinner.View())
	}

	// Top Pane: Run Registry
	var runList strings.Builder
	runList.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Simulation Runs") + "\n\n")

	if len(m.runs) == 0 {
		runList.WriteString(subtleStyle.Render("No runs registered."))
	} else {
		shown := m.runs
		if len(shown) > maxRuns {
			shown = shown[:maxRuns]
		}
		for _, run := range shown {
			var status string
			switch run.Status {
			case "failed":
				status = failedStyle.Render(run.Status)
			case "completed":
				status = completedStyle.Render(run.Status)
			default:
				status = statusStyle.Render(run.Status)
			}
			runList.WriteString(fmt.Sprintf("%s %s %s %s\n",
				runTimeStyle.Render(run.CreatedAt.Local().Format("15:04:05")),
				status,
				runIDStyle.Render(run.RunID),
				subtleStyle.Render(fmt.Sprintf("%s, %dd", scenarioLabel(run.Parameters.Scenario), run.Parameters.DurationDays)),
			))
		}
	}

	topPane := paneStyle.Render(runList.String())

	// Bottom Pane: Latest Run Curve
	header := headerStyle.Render(fmt.Sprintf("%s Infection Curve", m.spinner.View()))
	bottomPane := m.viewport.View()

	// Status Footer
	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d Runs", len(m.runs)))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func fetchData(daemonURL string) tea.Cmd {
	return func() tea.Msg {
		runs, err := getRuns(daemonURL)
		if err != nil {
			return dataMsg{err: err}
		}

		// Fetch the newest completed run's full series for the chart.
		var latest *Run
		for _, sum := range runs {
			if sum.Status == "completed" {
				latest, err = getRun(daemonURL, sum.RunID)
				if err != nil {
					return dataMsg{err: err}
				}
				break
			}
		}

		return dataMsg{
			runs:   runs,
			latest: latest,
			err:    nil,
		}
	}
}

func getRuns(daemonURL string) ([]RunSummary, error) {
	c := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := c.Get(daemonURL + "/simulations")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("simulations status %d", resp.StatusCode)
	}

	var runs []RunSummary
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func getRun(daemonURL, id string) (*Run, error) {
	c := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := c.Get(daemonURL + "/simulations/" + id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("simulation status %d", resp.StatusCode)
	}

	var run Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, err
	}
	return &run, nil
}

func scenarioLabel(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	daemonURL := os.Getenv("SIRCONTROL_API")
	if daemonURL == "" {
		daemonURL = defaultDaemonURL
	}

	p := tea.NewProgram(initialModel(daemonURL), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
