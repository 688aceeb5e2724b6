// Package tui provides the Bubble Tea terminal UI for linkwalker,
// displaying live crawl progress and a styled summary of results.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukemcguire/linkwalker/crawler"
	"github.com/lukemcguire/linkwalker/result"
)

// Model is the Bubble Tea model for the crawl TUI.
type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	strategy   crawler.Strategy
	seed       string
	maxDepth   int
	spinner    spinner.Model
	progressCh <-chan crawler.CrawlEvent

	pages    int
	checked  int
	broken   int
	current  string
	quitting bool
	done     bool
	report   result.CrawlReport
	stats    result.CrawlStats
	err      error
	width    int
}

// NewModel creates a TUI model that runs strategy against seed. progressCh
// may be nil for strategies that report no per-page progress.
func NewModel(ctx context.Context, cancel context.CancelFunc, strategy crawler.Strategy, seed string, maxDepth int, progressCh <-chan crawler.CrawlEvent) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:        ctx,
		cancel:     cancel,
		strategy:   strategy,
		seed:       seed,
		maxDepth:   maxDepth,
		spinner:    spin,
		progressCh: progressCh,
		current:    seed,
	}
}

// Init starts the spinner, crawl, and progress listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startCrawl(), waitForProgress(m.progressCh))
}

// startCrawl returns a tea.Cmd that runs the strategy and sends CrawlDoneMsg.
func (m Model) startCrawl() tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		report, err := m.strategy.Crawl(m.ctx, m.seed, m.maxDepth)
		if err != nil {
			return CrawlDoneMsg{Err: fmt.Errorf("crawl: %w", err)}
		}
		return CrawlDoneMsg{Report: report, Duration: time.Since(start)}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case CrawlProgressMsg:
		m.pages = msg.Pages
		m.checked = msg.Checked
		m.broken = msg.Broken
		m.current = msg.URL
		return m, waitForProgress(m.progressCh)

	case CrawlDoneMsg:
		m.done = true
		m.err = msg.Err
		if msg.Err == nil {
			m.report = msg.Report
			m.stats = msg.Report.Stats()
			m.stats.Duration = msg.Duration
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.done && m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	if m.done {
		return RenderSummary(m.report, m.stats)
	}
	if m.quitting {
		return dimStyle.Render("Stopping...") + "\n"
	}
	return fmt.Sprintf("%s Crawling... %d pages, %d links checked, %d broken\n%s\n",
		m.spinner.View(), m.pages, m.checked, m.broken,
		dimStyle.Render("  "+m.current))
}

// HasBrokenLinks reports whether the crawl found any unreachable link.
func (m Model) HasBrokenLinks() bool {
	return m.report.HasBroken()
}

// Done reports whether the crawl ran to completion.
func (m Model) Done() bool {
	return m.done
}

// Report returns the finished crawl report for output formatting.
func (m Model) Report() result.CrawlReport {
	return m.report
}

// Err returns the error the crawl ended with, if any.
func (m Model) Err() error {
	return m.err
}
