package result

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
)

// WriteJSON writes the report as a formatted JSON array of pages.
// An empty report is written as [] rather than null.
func WriteJSON(w io.Writer, report CrawlReport) error {
	if report == nil {
		report = CrawlReport{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// linkRow is one CSV line: a checked link, or a page whose fetch failed.
type linkRow struct {
	PageURL           string `csv:"page_url"`
	URL               string `csv:"url"`
	OpensInNewContext bool   `csv:"opens_in_new_context"`
	StatusCode        string `csv:"status_code"`
	Reachable         bool   `csv:"reachable"`
	ErrorType         string `csv:"error_type"`
	Error             string `csv:"error"`
}

// WriteCSV writes one row per checked link. A page whose fetch failed gets a
// single row pointing at itself with error_type "fetch_<kind>".
// The header row is always written, even for an empty report.
func WriteCSV(w io.Writer, report CrawlReport) error {
	rows := make([]*linkRow, 0, len(report))
	for _, page := range report {
		if page.FetchError != nil {
			rows = append(rows, &linkRow{
				PageURL:    page.PageURL,
				URL:        page.PageURL,
				StatusCode: statusCodeStr(page.FetchError.StatusCode),
				ErrorType:  "fetch_" + string(page.FetchError.Kind),
				Error:      page.FetchError.Message,
			})
			continue
		}
		for _, link := range page.Links {
			rows = append(rows, &linkRow{
				PageURL:           page.PageURL,
				URL:               link.URL,
				OpensInNewContext: link.OpensInNewContext,
				StatusCode:        statusCodeStr(link.StatusCode),
				Reachable:         link.Reachable,
				ErrorType:         string(link.ErrorCategory),
				Error:             link.ErrorMessage,
			})
		}
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write csv output: %w", err)
	}
	return nil
}

// statusCodeStr converts an HTTP status code to a string.
// Returns empty string for 0 (no HTTP status).
func statusCodeStr(code int) string {
	if code == 0 {
		return ""
	}
	return strconv.Itoa(code)
}
