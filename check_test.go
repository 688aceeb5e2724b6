package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lukemcguire/linkwalker/crawler"
)

// newSite serves a tiny site. /missing answers 404 when broken is set.
func newSite(t *testing.T, broken bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/about">About</a><a href="/missing">Missing</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/">Home</a></body></html>`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		if broken {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>found after all</body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LINKWALKER_STRATEGY", "")
	t.Setenv("LINKWALKER_LOG_LEVEL", "")
	t.Setenv("PORT", "")
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCheckJSONReportsBrokenLinks(t *testing.T) {
	site := newSite(t, true)

	out, err := runRoot(t, "check", site.URL+"/", "--format", "json", "--max-depth", "1")
	if !errors.Is(err, errBrokenLinks) {
		t.Fatalf("err = %v, want errBrokenLinks", err)
	}

	var pages []struct {
		PageURL string `json:"pageUrl"`
		Links   []struct {
			URL        string `json:"url"`
			StatusCode int    `json:"statusCode"`
			Reachable  bool   `json:"reachable"`
		} `json:"links"`
	}
	if err := json.Unmarshal([]byte(out), &pages); err != nil {
		t.Fatalf("output is not a JSON report: %v\n%s", err, out)
	}
	if len(pages) == 0 || pages[0].PageURL != site.URL+"/" {
		t.Fatalf("pages = %+v", pages)
	}
	var sawMissing bool
	for _, link := range pages[0].Links {
		if strings.HasSuffix(link.URL, "/missing") {
			sawMissing = true
			if link.Reachable || link.StatusCode != http.StatusNotFound {
				t.Errorf("missing link = %+v", link)
			}
		}
	}
	if !sawMissing {
		t.Error("seed page should list /missing")
	}
}

func TestCheckCleanSiteTable(t *testing.T) {
	site := newSite(t, false)

	out, err := runRoot(t, "check", site.URL+"/", "-f", "table", "-d", "2")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "No broken links found!") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "Visited 3 pages") {
		t.Errorf("expected three visited pages, got %q", out)
	}
}

func TestCheckCSVToFile(t *testing.T) {
	site := newSite(t, true)
	path := filepath.Join(t.TempDir(), "report.csv")

	out, err := runRoot(t, "check", site.URL+"/", "-f", "csv", "-d", "0", "-o", path)
	if !errors.Is(err, errBrokenLinks) {
		t.Fatalf("err = %v, want errBrokenLinks", err)
	}
	if out != "" {
		t.Errorf("stdout should be empty when --output is set, got %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "page_url,url,") || !strings.Contains(string(data), "/missing") {
		t.Errorf("csv = %q", data)
	}
}

func TestCheckRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"check", "https://example.com", "-f", "xml"}},
		{"unknown scope", []string{"check", "https://example.com", "-f", "json", "--scope", "galaxy"}},
		{"unknown strategy", []string{"check", "https://example.com", "-f", "json", "-s", "psychic"}},
		{"missing url", []string{"check"}},
		{"two urls", []string{"check", "https://a.test", "https://b.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runRoot(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestCheckInvalidSeed(t *testing.T) {
	_, err := runRoot(t, "check", "ftp://example.com/", "-f", "json")
	if !errors.Is(err, crawler.ErrInvalidSeed) {
		t.Errorf("err = %v, want ErrInvalidSeed", err)
	}
}
