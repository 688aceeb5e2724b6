package crawler

// CrawlEvent reports progress after one page has been processed.
type CrawlEvent struct {
	PageURL    string
	Depth      int
	Links      int    // links found on this page
	Broken     int    // unreachable links on this page
	FetchError string // set when the page itself could not be fetched

	// Running totals for the crawl so far.
	Pages        int
	LinksChecked int
	BrokenTotal  int
}
