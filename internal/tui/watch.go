// Package tui renders the live queue watch view.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/hoistdl/hoist/internal/clipboard"
	"github.com/hoistdl/hoist/internal/engine"
)

const refreshInterval = 300 * time.Millisecond

type tickMsg struct{}

type copiedMsg struct{ err error }

// Model is the queue watch view. It refreshes from the in-memory queue on a
// short tick, the engine itself never knows the TUI exists.
type Model struct {
	queue *engine.Queue
	sched *engine.Scheduler
	clip  *clipboard.Service

	jobs         []engine.Job
	currentIndex int
	width        int
	height       int
	progressBar  progress.Model
	notice       string

	// ExitWhenDone ends the program once no job is pending or active
	ExitWhenDone bool
}

// NewWatch creates the watch view over the shared queue and scheduler
func NewWatch(queue *engine.Queue, sched *engine.Scheduler, clip *clipboard.Service) Model {
	prog := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(25),
		progress.WithoutPercentage(),
	)

	return Model{
		queue:       queue,
		sched:       sched,
		clip:        clip,
		progressBar: prog,
	}
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.progressBar.Init())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		progressWidth := 25
		if msg.Width > 100 {
			progressWidth = 40
		}
		m.progressBar.Width = progressWidth

	case tickMsg:
		m.jobs = m.queue.Jobs()
		if m.currentIndex >= len(m.jobs) {
			m.currentIndex = len(m.jobs) - 1
		}
		if m.currentIndex < 0 {
			m.currentIndex = 0
		}
		if m.ExitWhenDone && m.allSettled() {
			return m, tea.Quit
		}
		return m, m.tick()

	case copiedMsg:
		if msg.err != nil {
			m.notice = "copy failed: " + msg.err.Error()
		} else {
			m.notice = "URL copied"
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.currentIndex > 0 {
				m.currentIndex--
			}
		case "down", "j":
			if m.currentIndex < len(m.jobs)-1 {
				m.currentIndex++
			}
		case "r":
			if job, ok := m.selected(); ok && job.Status == engine.StatusError {
				_ = m.sched.Retry(context.Background(), job.ID)
			}
		case "c":
			_ = m.sched.Stop(context.Background())
			m.notice = "stopping, active transfers return to pending"
		case "d":
			if job, ok := m.selected(); ok && !job.Status.IsActive() {
				_ = m.queue.Remove(job.ID)
			}
		case "x":
			m.queue.ClearCompleted()
		case "y":
			if job, ok := m.selected(); ok && m.clip != nil {
				url := job.URL
				return m, func() tea.Msg {
					return copiedMsg{err: m.clip.Write(url)}
				}
			}
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progressBar.Update(msg)
		m.progressBar = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// View renders the queue
func (m Model) View() string {
	var output strings.Builder
	output.WriteString("\n")
	output.WriteString(titleStyle.Render("  DOWNLOADS  ") + "\n")

	if len(m.jobs) == 0 {
		output.WriteString(metadataStyle.Render("\nQueue is empty.\n"))
		output.WriteString("\n" + helpStyle.Render("  q quit"))
		return output.String()
	}

	active, done, failed := 0, 0, 0
	for _, j := range m.jobs {
		switch j.Status {
		case engine.StatusDownloading:
			active++
		case engine.StatusCompleted:
			done++
		case engine.StatusError:
			failed++
		}
	}
	output.WriteString(subtitleStyle.Render(fmt.Sprintf("  %d jobs", len(m.jobs))))
	output.WriteString(metadataStyle.Render(fmt.Sprintf(" • %d active • %d done • %d failed", active, done, failed)))
	output.WriteString("\n\n")

	start, end := m.visibleRange(len(m.jobs))
	for i := start; i < end; i++ {
		output.WriteString(m.renderJob(m.jobs[i], i == m.currentIndex) + "\n")
	}

	if m.notice != "" {
		output.WriteString("\n" + metadataStyle.Render("  "+m.notice))
	}
	output.WriteString("\n" + helpStyle.Render("  ↑/↓ move • r retry • c stop all • d remove • x clear done • y copy url • q quit"))
	return output.String()
}

func (m Model) renderJob(job engine.Job, selected bool) string {
	boxStyle := itemStyle
	jobTitleStyle := itemTitleStyle
	metaStyle := metadataStyle
	if selected {
		boxStyle = itemSelectedStyle
		jobTitleStyle = jobTitleStyle.Foreground(oxocarbonPurple)
		metaStyle = metaStyle.Foreground(oxocarbonMauve)
	}

	title := job.Title
	if title == "" {
		title = job.URL
	}
	if job.OrdinalTotal > 0 {
		title = fmt.Sprintf("[%d/%d] %s", job.Ordinal, job.OrdinalTotal, title)
	}
	maxTitle := m.width - 12
	if maxTitle < 20 {
		maxTitle = 60
	}
	title = runewidth.Truncate(title, maxTitle, "…")

	var metaParts []string
	badge := statusBadgeStyle.Foreground(statusColor(job.Status)).
		Render(fmt.Sprintf("%s %s", statusIcon(job.Status), job.Status))
	metaParts = append(metaParts, badge)

	switch job.Status {
	case engine.StatusDownloading:
		percent := job.Progress / 100.0
		metaParts = append(metaParts, m.progressBar.ViewAs(percent))
		metaParts = append(metaParts, fmt.Sprintf("%.1f%%", job.Progress))
		if job.Speed > 0 {
			metaParts = append(metaParts, humanize.Bytes(uint64(job.Speed))+"/s")
		}
		if job.ETA > 0 {
			metaParts = append(metaParts, "ETA "+formatDuration(job.ETA))
		}
	case engine.StatusCompleted:
		if job.FileSize > 0 {
			metaParts = append(metaParts, humanize.Bytes(uint64(job.FileSize)))
		}
		if job.Resolution != "" {
			metaParts = append(metaParts, job.Resolution)
		}
		if job.CompletedAt != nil {
			metaParts = append(metaParts, humanize.Time(*job.CompletedAt))
		}
	case engine.StatusError:
		errMsg := job.Error
		if len(errMsg) > 50 {
			errMsg = errMsg[:47] + "..."
		}
		metaParts = append(metaParts, errMsg)
	}

	content := jobTitleStyle.Render(title) + "\n" + metaStyle.Render(strings.Join(metaParts, " • "))
	return boxStyle.Render(content)
}

func (m Model) visibleRange(total int) (int, int) {
	maxVisible := 8
	if m.height > 0 {
		itemsSpace := m.height - 8
		if itemsSpace > 0 {
			maxVisible = itemsSpace / 3
		}
		if maxVisible < 3 {
			maxVisible = 3
		}
	}

	if total <= maxVisible {
		return 0, total
	}

	start := 0
	if m.currentIndex > maxVisible/2 {
		start = m.currentIndex - maxVisible/2
	}
	end := start + maxVisible
	if end > total {
		end = total
		start = end - maxVisible
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

func (m Model) selected() (engine.Job, bool) {
	if m.currentIndex < 0 || m.currentIndex >= len(m.jobs) {
		return engine.Job{}, false
	}
	return m.jobs[m.currentIndex], true
}

func (m Model) allSettled() bool {
	if len(m.jobs) == 0 {
		return false
	}
	for _, j := range m.jobs {
		if !j.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func statusIcon(status engine.Status) string {
	switch status {
	case engine.StatusPending:
		return "⏳"
	case engine.StatusDownloading:
		return "▶"
	case engine.StatusCompleted:
		return "✓"
	case engine.StatusError:
		return "✗"
	default:
		return "?"
	}
}

func statusColor(status engine.Status) lipgloss.Color {
	switch status {
	case engine.StatusDownloading:
		return oxocarbonGreen
	case engine.StatusCompleted:
		return oxocarbonBlue
	case engine.StatusError:
		return oxocarbonPink
	default:
		return oxocarbonBase04
	}
}
