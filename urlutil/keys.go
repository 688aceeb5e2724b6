// Package urlutil holds the URL helpers shared by the crawl strategies.
package urlutil

import "strings"

// VisitKey returns the key under which a page is tracked in a visited set.
// Only the fragment is dropped: it never reaches the server, so "/a#x" and
// "/a#y" are the same page. Everything else is kept verbatim.
func VisitKey(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// TruncateAtMarker cuts rawURL right after the first occurrence of marker
// (for example ".htm"), dropping whatever fragment or query noise follows it.
// URLs that do not contain the marker are returned unchanged.
func TruncateAtMarker(rawURL, marker string) string {
	if marker == "" {
		return rawURL
	}
	i := strings.Index(rawURL, marker)
	if i < 0 {
		return rawURL
	}
	return rawURL[:i+len(marker)]
}
