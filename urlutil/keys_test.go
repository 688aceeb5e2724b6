package urlutil

import "testing"

func TestVisitKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com/a#x", "https://example.com/a"},
		{"https://example.com/a", "https://example.com/a"},
		{"https://example.com/a?q=1#frag", "https://example.com/a?q=1"},
		{"https://Example.com/A/", "https://Example.com/A/"},
	}
	for _, tt := range tests {
		if got := VisitKey(tt.input); got != tt.want {
			t.Errorf("VisitKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncateAtMarker(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		marker string
		want   string
	}{
		{"drops fragment after marker", "https://docs.test/Topics/Intro.htm#section-2", ".htm", "https://docs.test/Topics/Intro.htm"},
		{"drops query after marker", "https://docs.test/a.htm?tocpath=Guide", ".htm", "https://docs.test/a.htm"},
		{"html is cut to htm", "https://docs.test/a.html", ".htm", "https://docs.test/a.htm"},
		{"first occurrence wins", "https://docs.test/x.htm/y.htm", ".htm", "https://docs.test/x.htm"},
		{"no marker keeps URL", "https://docs.test/guide/", ".htm", "https://docs.test/guide/"},
		{"empty marker keeps URL", "https://docs.test/a.htm#x", "", "https://docs.test/a.htm#x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateAtMarker(tt.input, tt.marker); got != tt.want {
				t.Errorf("TruncateAtMarker(%q, %q) = %q, want %q", tt.input, tt.marker, got, tt.want)
			}
		})
	}
}
