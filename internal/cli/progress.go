package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatradocs/contractmeta/internal/batch"
)

const progressTick = 250 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
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

// tickMsg triggers re-reading the batch progress counters.
type tickMsg time.Time

// runDoneMsg carries the finished batch result.
type runDoneMsg struct {
	summary *batch.Summary
	err     error
}

// progressModel is the bubbletea model for batch progress.
type progressModel struct {
	orch     *batch.Orchestrator
	cancel   context.CancelFunc
	resultCh chan runDoneMsg

	progress progress.Model
	theme    Theme

	summary  *batch.Summary
	err      error
	done     bool
	quitting bool
}

// newProgressModel creates a new progress model.
func newProgressModel(orch *batch.Orchestrator, cancel context.CancelFunc, resultCh chan runDoneMsg) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		orch:     orch,
		cancel:   cancel,
		resultCh: resultCh,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial commands: tick and wait for the run to finish.
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.waitForRun(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			// The run observes cancellation and delivers its result;
			// the final summary is collected outside the UI loop.
			return m, tea.Quit
		}

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case runDoneMsg:
		m.done = true
		m.summary = msg.summary
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	processed, total := m.orch.Progress()
	if total == 0 {
		return m.theme.statusStyle().Render("[discovering]") + " checking for new documents...\n"
	}

	var pct float64
	if total > 0 {
		pct = float64(processed) / float64(total)
	}

	status := m.theme.statusStyle().Render("[analyzing]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d documents", processed, total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nRun cancelled, nothing was persisted.\n")
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Batch failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render("✓ Batch complete\n")
}

// waitForRun blocks on the run's result channel as a bubbletea command.
func (m progressModel) waitForRun() tea.Cmd {
	return func() tea.Msg {
		return <-m.resultCh
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(progressTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runWithProgress runs the batch with an interactive progress UI. Ctrl+C
// cancels the run through its context.
func runWithProgress(ctx context.Context, orch *batch.Orchestrator) (*batch.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan runDoneMsg, 1)
	go func() {
		summary, err := orch.Run(ctx)
		resultCh <- runDoneMsg{summary: summary, err: err}
	}()

	model := newProgressModel(orch, cancel, resultCh)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		cancel()
		<-resultCh
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok && m.done {
		return m.summary, m.err
	}

	// User quit: the cancelled run still has to deliver its result.
	result := <-resultCh
	return result.summary, result.err
}
