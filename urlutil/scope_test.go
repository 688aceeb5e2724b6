package urlutil

import "testing"

func TestInScope(t *testing.T) {
	tests := []struct {
		name   string
		scope  Scope
		parent string
		child  string
		want   bool
	}{
		{"prefix child path", ScopePrefix, "https://example.com", "https://example.com/about", true},
		{"prefix sibling outside parent path", ScopePrefix, "https://example.com/docs/", "https://example.com/blog", false},
		{"prefix external host", ScopePrefix, "https://example.com", "https://external.test/x", false},
		{"prefix is literal, lookalike host matches", ScopePrefix, "https://example.com", "https://example.com.evil.test/", true},
		{"prefix is literal, explicit port does not match", ScopePrefix, "https://example.com/", "https://example.com:8080/a", false},
		{"prefix self", ScopePrefix, "https://example.com/a", "https://example.com/a", true},
		{"host same host other path", ScopeHost, "https://example.com/docs/", "https://example.com/blog", true},
		{"host subdomain", ScopeHost, "https://example.com/", "https://blog.example.com/post", true},
		{"host lookalike rejected", ScopeHost, "https://example.com", "https://example.com.evil.test/", false},
		{"host port ignored", ScopeHost, "https://example.com/", "https://example.com:8080/a", true},
		{"unknown scope falls back to prefix", Scope("weird"), "https://example.com", "https://example.com/x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InScope(tt.scope, tt.parent, tt.child); got != tt.want {
				t.Errorf("InScope(%q, %q, %q) = %v, want %v", tt.scope, tt.parent, tt.child, got, tt.want)
			}
		})
	}
}

func TestIsSameDomain(t *testing.T) {
	tests := []struct {
		name      string
		targetURL string
		baseHost  string
		expected  bool
	}{
		{"same host", "https://example.com/page", "example.com", true},
		{"subdomain match", "https://blog.example.com/post", "example.com", true},
		{"different domain", "https://other.com/page", "example.com", false},
		{"scheme agnostic", "http://example.com/page", "example.com", true},
		{"partial suffix mismatch", "https://notexample.com", "example.com", false},
		{"empty base host", "https://example.com", "", false},
		{"relative target has no host", "/about", "example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsSameDomain(tt.targetURL, tt.baseHost)
			if got != tt.expected {
				t.Errorf("IsSameDomain(%q, %q) = %v, want %v", tt.targetURL, tt.baseHost, got, tt.expected)
			}
		})
	}
}

func TestIsHTTPScheme(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"https://example.com", true},
		{"HTTP://example.com", true},
		{"mailto:user@example.com", false},
		{"tel:+1234567890", false},
		{"javascript:void(0)", false},
		{"ftp://files.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsHTTPScheme(tt.input); got != tt.expected {
				t.Errorf("IsHTTPScheme(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
