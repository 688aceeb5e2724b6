package crawler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lukemcguire/linkwalker/crawler"
	"github.com/lukemcguire/linkwalker/result"
)

func newProbeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/no-head", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestValidatorProbe(t *testing.T) {
	ts := newProbeServer(t)

	cfg := crawler.DefaultConfig()
	cfg.ProbeTimeout = 100 * time.Millisecond
	v := crawler.NewValidator(crawler.NewHTTPClient(), cfg)

	tests := []struct {
		name          string
		path          string
		wantStatus    int
		wantReachable bool
		wantMessage   bool
		wantCategory  result.ErrorCategory
	}{
		{name: "200 is reachable", path: "/ok", wantStatus: 200, wantReachable: true},
		{name: "404 is unreachable", path: "/missing", wantStatus: 404, wantCategory: result.Category4xx},
		{name: "500 is unreachable", path: "/error", wantStatus: 500, wantCategory: result.Category5xx},
		{name: "HEAD 405 falls back to GET", path: "/no-head", wantStatus: 200, wantReachable: true},
		{name: "redirect is followed", path: "/moved", wantStatus: 200, wantReachable: true},
		{name: "redirect loop", path: "/loop", wantMessage: true, wantCategory: result.CategoryRedirectLoop},
		{name: "timeout", path: "/slow", wantMessage: true, wantCategory: result.CategoryTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Probe(context.Background(), ts.URL+tt.path)
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantStatus)
			}
			if got.Reachable != tt.wantReachable {
				t.Errorf("Reachable = %v, want %v", got.Reachable, tt.wantReachable)
			}
			if (got.ErrorMessage != "") != tt.wantMessage {
				t.Errorf("ErrorMessage = %q, want message: %v", got.ErrorMessage, tt.wantMessage)
			}
			if got.ErrorCategory != tt.wantCategory {
				t.Errorf("ErrorCategory = %q, want %q", got.ErrorCategory, tt.wantCategory)
			}
		})
	}
}

func TestValidatorProbe_UnroutableHost(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	v := crawler.NewValidator(nil, crawler.DefaultConfig())
	got := v.Probe(context.Background(), addr+"/x")

	if got.StatusCode != 0 || got.Reachable {
		t.Errorf("got %+v, want status 0 and unreachable", got)
	}
	if got.ErrorMessage == "" {
		t.Error("expected a human-readable error message")
	}
}

func TestValidateAll_PreservesOrder(t *testing.T) {
	ts := newProbeServer(t)

	cfg := crawler.DefaultConfig()
	cfg.Concurrency = 2
	v := crawler.NewValidator(nil, cfg)

	var links []result.LinkRecord
	for i := range 10 {
		path := "/ok"
		if i%3 == 0 {
			path = "/missing"
		}
		links = append(links, result.LinkRecord{URL: fmt.Sprintf("%s%s?i=%d", ts.URL, path, i), OpensInNewContext: i == 4})
	}

	checked := v.ValidateAll(context.Background(), links)
	if len(checked) != len(links) {
		t.Fatalf("got %d results, want %d", len(checked), len(links))
	}
	for i, c := range checked {
		if c.LinkRecord != links[i] {
			t.Errorf("result[%d] is for %+v, want %+v", i, c.LinkRecord, links[i])
		}
		wantReachable := i%3 != 0
		if c.Reachable != wantReachable {
			t.Errorf("result[%d].Reachable = %v, want %v", i, c.Reachable, wantReachable)
		}
	}
}

func TestValidateAll_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}))
	defer ts.Close()

	cfg := crawler.DefaultConfig()
	cfg.Concurrency = 3
	v := crawler.NewValidator(nil, cfg)

	var links []result.LinkRecord
	for i := range 12 {
		links = append(links, result.LinkRecord{URL: fmt.Sprintf("%s/p%d", ts.URL, i)})
	}
	v.ValidateAll(context.Background(), links)

	if got := peak.Load(); got > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", got)
	}
}

func TestValidatorProbe_Retries(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := crawler.DefaultConfig()
	cfg.Retry = crawler.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	v := crawler.NewValidator(nil, cfg)

	got := v.Probe(context.Background(), ts.URL)
	if !got.Reachable || got.StatusCode != 200 {
		t.Errorf("got %+v, want reachable 200 after retry", got)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times, want 2", hits.Load())
	}
}

func TestValidatorProbe_NoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	v := crawler.NewValidator(nil, crawler.DefaultConfig())
	got := v.Probe(context.Background(), ts.URL)
	if got.Reachable || got.StatusCode != 503 {
		t.Errorf("got %+v, want unreachable 503", got)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestValidateAll_CancelDoesNotLeakIntoOtherBatches(t *testing.T) {
	arrived := make(chan struct{}, 2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		select {
		case <-r.Context().Done():
		case <-time.After(300 * time.Millisecond):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	v := crawler.NewValidator(nil, crawler.DefaultConfig())
	links := []result.LinkRecord{{URL: ts.URL + "/shared"}}

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	doneA := make(chan []result.CheckedLink, 1)
	go func() { doneA <- v.ValidateAll(ctxA, links) }()
	<-arrived

	doneB := make(chan []result.CheckedLink, 1)
	go func() { doneB <- v.ValidateAll(context.Background(), links) }()
	<-arrived
	cancelA()

	if got := (<-doneA)[0]; got.Reachable {
		t.Errorf("canceled batch = %+v, want unreachable", got.ValidationOutcome)
	}
	got := (<-doneB)[0]
	if !got.Reachable || got.StatusCode != http.StatusOK {
		t.Errorf("uncanceled batch = %+v, want reachable 200", got.ValidationOutcome)
	}
}
