package urlutil

import (
	"net/url"
	"strings"
)

// Scope selects how the crawler decides whether a discovered link is part of
// the site being crawled.
type Scope string

const (
	// ScopePrefix follows a link only when its URL starts with the URL of the
	// page it was found on. This is a plain string comparison, so
	// "https://example.com.evil.test" is in scope of "https://example.com".
	ScopePrefix Scope = "prefix"
	// ScopeHost follows a link when it points at the parent's hostname or one
	// of its subdomains.
	ScopeHost Scope = "host"
)

// InScope reports whether child should be followed from the page at parent.
func InScope(scope Scope, parent, child string) bool {
	switch scope {
	case ScopeHost:
		parsed, err := url.Parse(parent)
		if err != nil {
			return false
		}
		return IsSameDomain(child, parsed.Hostname())
	default:
		return strings.HasPrefix(child, parent)
	}
}

// IsSameDomain checks if targetURL belongs to the same domain as baseHost.
// Subdomains are considered same-domain (e.g., blog.example.com matches example.com).
func IsSameDomain(targetURL string, baseHost string) bool {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	baseHost = strings.ToLower(baseHost)
	if host == "" || baseHost == "" {
		return false
	}

	return host == baseHost || strings.HasSuffix(host, "."+baseHost)
}

// IsHTTPScheme returns true if the URL has an http or https scheme.
// Returns false for empty strings, non-HTTP schemes, or unparseable URLs.
func IsHTTPScheme(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}
