package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/linkwalker/result"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true)
	successStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	categoryStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle         = lipgloss.NewStyle().Faint(true)
	urlStyle         = lipgloss.NewStyle()
	statusErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// categoryOrder defines the display order for error categories (most to least actionable).
var categoryOrder = []result.ErrorCategory{
	result.Category4xx,
	result.Category5xx,
	result.CategoryTimeout,
	result.CategoryDNSFailure,
	result.CategoryConnectionRefused,
	result.CategoryRedirectLoop,
	result.CategoryUnknown,
}

// RenderSummary produces a Lip Gloss styled summary of a crawl report:
// pages that failed to load, then unreachable links grouped by category.
func RenderSummary(report result.CrawlReport, stats result.CrawlStats) string {
	var builder strings.Builder
	took := stats.Duration.Round(time.Millisecond)

	broken := report.BrokenLinks()
	if len(broken) == 0 && stats.FailedPages == 0 {
		builder.WriteString(successStyle.Render("No broken links found!"))
		builder.WriteString("\n")
		builder.WriteString(dimStyle.Render(fmt.Sprintf(
			"Visited %d pages and checked %d links in %s",
			stats.Pages, stats.LinksChecked, took,
		)))
		builder.WriteString("\n")
		return builder.String()
	}

	var failed [][]string
	for _, page := range report {
		if page.FetchError != nil {
			failed = append(failed, []string{page.PageURL, page.FetchError.Error()})
		}
	}
	if len(failed) > 0 {
		builder.WriteString(categoryStyle.Render(fmt.Sprintf("## Pages That Failed To Load (%d)", len(failed))))
		builder.WriteString("\n")
		builder.WriteString(renderTable([]string{"Page", "Error"}, failed))
		builder.WriteString("\n\n")
	}

	grouped := make(map[result.ErrorCategory][]result.BrokenLink)
	for _, link := range broken {
		cat := link.ErrorCategory
		if cat == "" {
			cat = result.CategoryUnknown
		}
		grouped[cat] = append(grouped[cat], link)
	}

	for _, cat := range categoryOrder {
		links := grouped[cat]
		if len(links) == 0 {
			continue
		}

		builder.WriteString(categoryStyle.Render(fmt.Sprintf("## %s (%d)", result.FormatCategory(cat), len(links))))
		builder.WriteString("\n")

		rows := make([][]string, 0, len(links))
		for _, link := range links {
			status := fmt.Sprintf("%d", link.StatusCode)
			if link.ErrorMessage != "" {
				status = link.ErrorMessage
			}
			url := link.URL
			if link.OpensInNewContext {
				url += " ↗"
			}
			rows = append(rows, []string{url, status, link.SourcePage})
		}
		builder.WriteString(renderTable([]string{"URL", "Status", "Found On"}, rows))
		builder.WriteString("\n\n")
	}

	builder.WriteString(titleStyle.Render(fmt.Sprintf(
		"Found %d broken links out of %d links checked on %d pages (%s)",
		stats.BrokenCount, stats.LinksChecked, stats.Pages, took,
	)))
	builder.WriteString("\n")

	return builder.String()
}

// renderTable draws rows with the second column in the error color.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				return statusErrorStyle
			}
			return urlStyle
		}).
		Rows(rows...).
		Render()
}
