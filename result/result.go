// Package result holds the data model of a link check: the links found on a
// page, how each one answered its probe, and the per-page report.
package result

import "time"

// LinkRecord is a link found on a page, resolved to an absolute URL.
type LinkRecord struct {
	URL               string `json:"url"`
	OpensInNewContext bool   `json:"opensInNewContext"` // anchor has target="_blank"
}

// ValidationOutcome is the classified answer to a reachability probe.
type ValidationOutcome struct {
	StatusCode    int           `json:"statusCode"` // 0 if no response arrived
	Reachable     bool          `json:"reachable"`
	ErrorMessage  string        `json:"errorMessage,omitempty"`
	ErrorCategory ErrorCategory `json:"errorCategory,omitempty"`
}

// CheckedLink is a LinkRecord together with its validation outcome.
type CheckedLink struct {
	LinkRecord
	ValidationOutcome
}

// PageResult lists the checked links of one visited page, in discovery order.
// FetchError is set when the page itself could not be retrieved; Links is
// then empty.
type PageResult struct {
	PageURL    string        `json:"pageUrl"`
	Links      []CheckedLink `json:"links"`
	FetchError *Failure      `json:"fetchError,omitempty"`
}

// CrawlReport is the ordered list of visited pages. Pages appear in
// pre-order: a page precedes the pages reached through its links.
type CrawlReport []PageResult

// BrokenLink is an unreachable link together with the page it was found on.
type BrokenLink struct {
	CheckedLink
	SourcePage string
}

// CrawlStats contains aggregate statistics for a crawl operation.
type CrawlStats struct {
	Pages        int           // Pages with a result entry
	FailedPages  int           // Pages whose fetch failed
	LinksChecked int           // Total number of links probed
	BrokenCount  int           // Number of unreachable links
	Duration     time.Duration // Total time taken for the crawl
}

// BrokenLinks returns every unreachable link in report order.
func (r CrawlReport) BrokenLinks() []BrokenLink {
	var broken []BrokenLink
	for _, page := range r {
		for _, link := range page.Links {
			if !link.Reachable {
				broken = append(broken, BrokenLink{CheckedLink: link, SourcePage: page.PageURL})
			}
		}
	}
	return broken
}

// Stats summarizes the report. Duration is left for the caller to fill in.
func (r CrawlReport) Stats() CrawlStats {
	var stats CrawlStats
	stats.Pages = len(r)
	for _, page := range r {
		if page.FetchError != nil {
			stats.FailedPages++
		}
		stats.LinksChecked += len(page.Links)
		for _, link := range page.Links {
			if !link.Reachable {
				stats.BrokenCount++
			}
		}
	}
	return stats
}

// HasBroken reports whether any link in the report is unreachable.
func (r CrawlReport) HasBroken() bool {
	for _, page := range r {
		for _, link := range page.Links {
			if !link.Reachable {
				return true
			}
		}
	}
	return false
}
