// Package api serves link checks over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/lukemcguire/linkwalker/crawler"
	"github.com/lukemcguire/linkwalker/result"
)

// Admitter decides whether a new crawl may start. *crawler.MemoryWatcher
// satisfies it.
type Admitter interface {
	Admit() bool
}

// Options configures a Server.
type Options struct {
	DefaultStrategy string
	DefaultMaxDepth int
	MaxDepthLimit   int
	MaxBodyBytes    int64
	// Memory, when set, is consulted before each crawl. A refusal is
	// answered with 503.
	Memory Admitter
	Logger zerolog.Logger
}

// Server exposes the link checker over HTTP.
type Server struct {
	strategies map[string]crawler.Strategy
	opts       Options
	mux        *http.ServeMux
	handler    http.Handler
}

// NewServer wires handlers and middleware. strategies maps the names
// accepted in CheckRequest.Strategy to their implementation.
func NewServer(strategies map[string]crawler.Strategy, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		strategies: strategies,
		opts:       opts,
		mux:        http.NewServeMux(),
	}
	s.routes()
	s.handler = s.middleware(s.mux)
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/check", s.handleCheck)
	s.mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, rootMessage)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusNotFound, notFoundMessage)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	var req CheckRequest
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	seed := strings.TrimSpace(req.URL)
	if seed == "" {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	maxDepth := s.opts.DefaultMaxDepth
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}
	if maxDepth < 0 || maxDepth > s.opts.MaxDepthLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("maxDepth must be between 0 and %d", s.opts.MaxDepthLimit))
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Strategy))
	if name == "" {
		name = s.opts.DefaultStrategy
	}
	strategy, ok := s.strategies[name]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s %q", msgUnknownStrategy, name))
		return
	}

	if s.opts.Memory != nil && !s.opts.Memory.Admit() {
		logger.Warn().Str("url", seed).Msg("crawl refused under memory pressure")
		writeError(w, http.StatusServiceUnavailable, msgServerBusy)
		return
	}

	start := time.Now()
	report, err := strategy.Crawl(r.Context(), seed, maxDepth)
	if err != nil {
		if errors.Is(err, crawler.ErrInvalidSeed) {
			writeError(w, http.StatusBadRequest, msgInvalidURL)
			return
		}
		logger.Error().Err(err).Str("url", seed).Int("max_depth", maxDepth).Str("strategy", name).Msg("link check failed")
		writeError(w, http.StatusInternalServerError, msgCheckFailed)
		return
	}

	stats := report.Stats()
	logger.Info().
		Str("url", seed).
		Int("max_depth", maxDepth).
		Str("strategy", name).
		Int("pages", stats.Pages).
		Int("links", stats.LinksChecked).
		Int("broken", stats.BrokenCount).
		Dur("took", time.Since(start)).
		Msg("link check finished")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := result.WriteJSON(w, report); err != nil {
		logger.Debug().Err(err).Msg("write report")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
