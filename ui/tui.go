package ui

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// UIState is the aggregated run state the TUI renders. Counters are updated
// atomically from worker goroutines via the orchestrator's observer hook.
type UIState struct {
	TotalJobs     int64
	CompletedJobs int64
	FailedJobs    int64
	FallbackJobs  int64
	StagedBytes   int64

	BatchCount int
	MaxWorkers int

	StartedAt time.Time

	IsRunning bool
	Done      bool
}

// RecordResult folds one finalized job outcome into the state. Safe to call
// from any goroutine.
func (s *UIState) RecordResult(completed, fallback bool, stagedBytes int64) {
	if completed {
		atomic.AddInt64(&s.CompletedJobs, 1)
	} else {
		atomic.AddInt64(&s.FailedJobs, 1)
	}
	if fallback {
		atomic.AddInt64(&s.FallbackJobs, 1)
	}
	if stagedBytes > 0 {
		atomic.AddInt64(&s.StagedBytes, stagedBytes)
	}
}

func (s *UIState) snapshot() (completed, failed, fallbacks, staged int64) {
	return atomic.LoadInt64(&s.CompletedJobs),
		atomic.LoadInt64(&s.FailedJobs),
		atomic.LoadInt64(&s.FallbackJobs),
		atomic.LoadInt64(&s.StagedBytes)
}

// TUIModel implements the tea.Model interface
type TUIModel struct {
	runState *UIState
	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model

	width  int
	height int

	// Styles
	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	detailStyle  lipgloss.Style
	helpStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
}

// TUIUpdateMsg is sent periodically to update the UI state
type TUIUpdateMsg struct {
	State *UIState
}

func NewTUIModel(initialState *UIState) TUIModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	prog := progress.New(progress.WithDefaultGradient())

	return TUIModel{
		runState:     initialState,
		spinner:      s,
		progress:     prog,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		detailStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		helpStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m TUIModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
	)
}

func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.runState.IsRunning = false
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 14

		headerHeight := 5
		footerHeight := 2
		m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)

	case TUIUpdateMsg:
		m.runState = msg.State
		if m.runState.Done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m TUIModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder

	// Header
	header := fmt.Sprintf("%s Cloudsync %s", m.spinner.View(), m.titleStyle.Render("Transfer Orchestrator"))
	sb.WriteString(header + "\n")

	completed, failed, fallbacks, staged := m.runState.snapshot()
	resolved := completed + failed

	var percent float64
	if m.runState.TotalJobs > 0 {
		percent = float64(resolved) / float64(m.runState.TotalJobs)
	}

	rate := float64(0)
	if elapsed := time.Since(m.runState.StartedAt); elapsed > 0 {
		rate = float64(resolved) / elapsed.Seconds()
	}

	opsInfo := fmt.Sprintf("Jobs: %d/%d | Batches: %d | Workers: %d | %s",
		resolved, m.runState.TotalJobs, m.runState.BatchCount,
		m.runState.MaxWorkers, formatRate(rate))
	sb.WriteString(m.infoStyle.Render(opsInfo) + "\n")
	sb.WriteString(m.progress.ViewAs(percent) + "\n\n")

	// Outcome detail
	var detail strings.Builder
	detail.WriteString(m.detailStyle.Render(fmt.Sprintf("completed: %d", completed)) + "\n")
	if fallbacks > 0 {
		detail.WriteString(m.infoStyle.Render(fmt.Sprintf("fell back to staged copy: %d (%s staged)",
			fallbacks, formatBytes(staged))) + "\n")
	}
	if failed > 0 {
		detail.WriteString(m.errorStyle.Render(fmt.Sprintf("failed under both strategies: %d", failed)) + "\n")
	}

	m.viewport.SetContent(detail.String())
	sb.WriteString(m.viewport.View())

	// Footer
	help := m.helpStyle.Render("q/ctrl+c: quit")
	if m.runState.Done {
		help = m.successStyle.Render("Sync Complete!") + " Press 'q' to exit."
	}
	sb.WriteString("\n" + help)

	return sb.String()
}

func formatRate(jobsPerSec float64) string {
	if jobsPerSec <= 0 {
		return "warming up..."
	}
	return fmt.Sprintf("%.1f jobs/s", jobsPerSec)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GB", float64(n)/(1024*1024*1024))
	case n >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%d B", n)
}
