package result

import (
	"fmt"
	"io"

	"github.com/rodaine/table"
)

// PrintReport writes a table of unreachable links and failed pages followed
// by a one-line summary.
func PrintReport(w io.Writer, report CrawlReport, stats CrawlStats) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	broken := report.BrokenLinks()
	if len(broken) == 0 && stats.FailedPages == 0 {
		writef("No broken links found!\n")
	} else {
		tbl := table.New("Found On", "URL", "Status").WithWriter(w)
		for _, page := range report {
			if page.FetchError != nil {
				tbl.AddRow(page.PageURL, "(page fetch)", page.FetchError.Error())
			}
		}
		for _, link := range broken {
			status := fmt.Sprintf("%d", link.StatusCode)
			if link.ErrorMessage != "" {
				status = link.ErrorMessage
			}
			tbl.AddRow(link.SourcePage, link.URL, status)
		}
		tbl.Print()
	}
	writef("Visited %d pages, checked %d links, found %d broken links\n",
		stats.Pages, stats.LinksChecked, stats.BrokenCount)
}
