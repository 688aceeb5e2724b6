package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lukemcguire/linkwalker/config"
)

func TestBuildStrategies(t *testing.T) {
	cfg := config.Default()
	strategies, err := buildStrategies(&cfg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("buildStrategies: %v", err)
	}
	for _, name := range []string{config.StrategyStatic, config.StrategyRendered} {
		if strategies[name] == nil {
			t.Errorf("missing strategy %q", name)
		}
	}
}

func TestHTTPServerChecksLinks(t *testing.T) {
	site := newSite(t, true)
	cfg := config.Default()
	cfg.Server.Port = 8181

	srv, err := newHTTPServer(context.Background(), &cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newHTTPServer: %v", err)
	}
	if srv.Addr != ":8181" {
		t.Errorf("Addr = %q", srv.Addr)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}

	body := `{"url":"` + site.URL + `/","maxDepth":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("check = %d: %s", rec.Code, rec.Body.String())
	}

	var pages []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &pages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("maxDepth 0 should report only the seed, got %d pages", len(pages))
	}
}
