package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/jobsurfer/internal/coordinator"
	"github.com/raphaelgruber/jobsurfer/internal/models"
)

const pollInterval = 200 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the session snapshot.
type tickMsg time.Time

// sessionDoneMsg carries the finished session out of the run goroutine.
type sessionDoneMsg struct {
	session *models.SearchSession
	err     error
}

// sessionModel is the bubbletea model for a running search session.
type sessionModel struct {
	coord    *coordinator.Coordinator
	cancel   context.CancelFunc
	snapshot coordinator.Progress
	progress progress.Model
	theme    Theme

	session  *models.SearchSession
	err      error
	done     bool
	quitting bool
}

func newSessionModel(coord *coordinator.Coordinator, cancel context.CancelFunc) sessionModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return sessionModel{
		coord:    coord,
		cancel:   cancel,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m sessionModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Cancel the session; the coordinator finishes the current
			// visit, saves memory and delivers sessionDoneMsg.
			m.quitting = true
			m.cancel()
			return m, nil
		}

	case tickMsg:
		m.snapshot = m.coord.Progress()
		return m, tickCmd()

	case sessionDoneMsg:
		m.done = true
		m.session = msg.session
		m.err = msg.err
		m.snapshot = m.coord.Progress()
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m sessionModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m sessionModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	s := m.snapshot
	var pct float64
	if s.MaxVisits > 0 {
		pct = float64(s.Visited) / float64(s.MaxVisits)
	}

	status := m.theme.statusStyle().Render("[searching]")
	if m.quitting {
		status = m.theme.statusStyle().Render("[stopping]")
	}

	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d visits  %d found  $%.4f/$%.2f",
		s.Visited, s.MaxVisits, s.Relevant, s.Cost, s.BudgetCap)

	current := ""
	if s.CurrentURL != "" {
		current = m.theme.hintStyle().Render(s.CurrentURL)
	}
	hint := m.theme.hintStyle().Render("Press Ctrl+C to stop and keep results")

	return fmt.Sprintf("%s %s %s\n%s\n%s\n", status, bar, counts, current, hint)
}

func (m sessionModel) finalView() string {
	if m.err != nil && (m.session == nil || m.session.Reason.Fatal()) {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Search failed: %s\n", m.err))
	}

	s := m.session
	out := m.theme.completedStyle().Render("✓ Search finished") + "\n\n"
	out += fmt.Sprintf("  Visited:  %d pages\n", s.Visited)
	out += fmt.Sprintf("  Found:    %d postings\n", s.Relevant)
	out += fmt.Sprintf("  Cost:     $%.4f\n", s.Cost)
	out += m.theme.hintStyle().Render(fmt.Sprintf("  (%s)\n", s.Reason))
	return out
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runSessionProgress runs the session under the interactive progress
// UI. The coordinator runs in a goroutine; its result is delivered to
// the model and returned.
func runSessionProgress(ctx context.Context, coord *coordinator.Coordinator, seeds []string) (*models.SearchSession, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSessionModel(coord, cancel))

	go func() {
		session, err := coord.Run(ctx, seeds)
		p.Send(sessionDoneMsg{session: session, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(sessionModel); ok {
		return m.session, m.err
	}
	return nil, fmt.Errorf("progress UI returned unexpected model")
}
