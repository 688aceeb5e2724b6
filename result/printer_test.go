package result

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintReport_NoBrokenLinks(t *testing.T) {
	var buf bytes.Buffer
	report := CrawlReport{{PageURL: "https://example.com", Links: []CheckedLink{
		{LinkRecord: LinkRecord{URL: "https://example.com/a"}, ValidationOutcome: ValidationOutcome{StatusCode: 200, Reachable: true}},
	}}}

	PrintReport(&buf, report, report.Stats())

	want := "No broken links found!\nVisited 1 pages, checked 1 links, found 0 broken links\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrintReport_WithBrokenLinks(t *testing.T) {
	var buf bytes.Buffer
	report := sampleReport()

	PrintReport(&buf, report, report.Stats())

	got := buf.String()
	for _, want := range []string{
		"Found On",
		"https://external.test/x",
		"404",
		"no such host",
		"(page fetch)",
		"Visited 3 pages, checked 3 links, found 2 broken links",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
