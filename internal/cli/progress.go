package cli

import (
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/sophia-labs/sophia/internal/training"
)

const pollInterval = 200 * time.Millisecond

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

// stageProgress maps pipeline stages to display fractions. The stages have
// very different durations; the fractions just need to move monotonically.
var stageProgress = map[training.Stage]float64{
	training.StageLoading:           0.10,
	training.StageEmbedding:         0.35,
	training.StageExtracting:        0.60,
	training.StagePersistingVectors: 0.80,
	training.StagePersistingGraph:   0.90,
	training.StageDone:              1.00,
}

var stageLabels = map[training.Stage]string{
	training.StageLoading:           "loading document",
	training.StageEmbedding:         "embedding chunks",
	training.StageExtracting:        "extracting facts",
	training.StagePersistingVectors: "persisting vectors",
	training.StagePersistingGraph:   "persisting graph",
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// progressModel is the bubbletea model for training progress.
type progressModel struct {
	job      *training.Job
	status   training.JobStatus
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
}

func newProgressModel(job *training.Job) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		job:      job,
		status:   job.Status(),
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
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
			return m, tea.Quit
		}

	case tickMsg:
		m.status = m.job.Status()
		switch m.status.Stage {
		case training.StageDone, training.StageFailed:
			m.done = true
			return m, tea.Quit
		}
		return m, tickCmd()

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

func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	label := stageLabels[m.status.Stage]
	if label == "" {
		label = string(m.status.Stage)
	}
	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", label))
	progressBar := m.progress.ViewAs(stageProgress[m.status.Stage])
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	counts := ""
	if m.status.Chunks > 0 {
		counts = fmt.Sprintf("%d chunks", m.status.Chunks)
	}

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render(
			"\nTraining continues in background; the upload record tracks its outcome.\n")
	}

	if m.status.Err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Training failed: %s\n", m.status.Err))
	}

	output := m.theme.completedStyle().Render("✓ Training complete") + "\n\n"
	output += fmt.Sprintf("  Chunks indexed:  %d\n", m.status.Chunks)
	output += fmt.Sprintf("  Facts merged:    %d\n", m.status.Facts)
	if m.status.SkippedBatches > 0 {
		output += m.theme.errorStyle().Render(
			fmt.Sprintf("\nWarning: %d extraction batches skipped\n", m.status.SkippedBatches))
	}
	return output
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runTrainingProgress runs the interactive progress UI for a training job.
// Returns nil on success or Ctrl+C (the job keeps running), the job error
// on failure.
func runTrainingProgress(job *training.Job) error {
	p := tea.NewProgram(newProgressModel(job))

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.quitting {
			return nil
		}
		if m.status.Err != nil {
			return m.status.Err
		}
	}
	return nil
}
