package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/linkwalker/crawler"
	"github.com/lukemcguire/linkwalker/result"
)

// CrawlProgressMsg carries the running totals after one page.
type CrawlProgressMsg struct {
	Pages   int
	Checked int
	Broken  int
	URL     string
}

// CrawlDoneMsg signals the crawl has completed.
type CrawlDoneMsg struct {
	Report   result.CrawlReport
	Duration time.Duration
	Err      error
}

// waitForProgress returns a tea.Cmd that reads one event from the progress
// channel. A nil channel yields no command. When the channel closes, the
// listener stops; the result itself comes from startCrawl.
func waitForProgress(ch <-chan crawler.CrawlEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return nil
		}
		return CrawlProgressMsg{
			Pages:   evt.Pages,
			Checked: evt.LinksChecked,
			Broken:  evt.BrokenTotal,
			URL:     evt.PageURL,
		}
	}
}
