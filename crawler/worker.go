package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lukemcguire/linkwalker/result"
	"github.com/lukemcguire/linkwalker/urlutil"
)

// Defaults applied by New for zero-valued settings.
const (
	DefaultConcurrency  = 20
	DefaultFetchTimeout = 10 * time.Second
	DefaultProbeTimeout = 5 * time.Second
	DefaultCrawlTimeout = 5 * time.Minute
	DefaultMaxBodyBytes = 5 << 20
	DefaultUserAgent    = "linkwalker/1.0 (+https://github.com/lukemcguire/linkwalker)"
)

// Config holds crawler configuration.
type Config struct {
	Concurrency         int           // Link probes in flight per page
	FetchTimeout        time.Duration // Per-page fetch timeout
	ProbeTimeout        time.Duration // Per-link probe timeout
	CrawlTimeout        time.Duration // Deadline for a whole crawl; negative disables it
	RateLimit           float64       // Probes per second; 0 means unlimited
	Retry               RetryPolicy   // Probe retries; zero value means a single attempt
	UserAgent           string
	MaxBodyBytes        int64 // Page bodies are truncated past this size
	SkipNonHTTP         bool  // Drop mailto:, tel:, javascript: ... links
	ReportFetchFailures bool  // Emit a PageResult with a fetch error instead of pruning silently
	Scope               urlutil.Scope
	Visited             VisitedKind
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:         DefaultConcurrency,
		FetchTimeout:        DefaultFetchTimeout,
		ProbeTimeout:        DefaultProbeTimeout,
		CrawlTimeout:        DefaultCrawlTimeout,
		Retry:               DefaultRetryPolicy(),
		UserAgent:           DefaultUserAgent,
		MaxBodyBytes:        DefaultMaxBodyBytes,
		ReportFetchFailures: true,
		Scope:               urlutil.ScopePrefix,
		Visited:             VisitedMemory,
	}
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.CrawlTimeout == 0 {
		c.CrawlTimeout = DefaultCrawlTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Scope == "" {
		c.Scope = urlutil.ScopePrefix
	}
	if c.Visited == "" {
		c.Visited = VisitedMemory
	}
	return c
}

// Validate rejects settings New cannot default.
func (c Config) Validate() error {
	switch c.Scope {
	case urlutil.ScopePrefix, urlutil.ScopeHost:
	default:
		return fmt.Errorf("unknown crawl scope %q", c.Scope)
	}
	switch c.Visited {
	case VisitedMemory, VisitedBloom:
	default:
		return fmt.Errorf("unknown visited set %q", c.Visited)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", c.RateLimit)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	return nil
}

// visitPage fetches one page, extracts its links and validates them.
// The extracted links are returned alongside so the caller can follow them.
func (c *Crawler) visitPage(ctx context.Context, pageURL string) (result.PageResult, []result.LinkRecord) {
	page := result.PageResult{PageURL: pageURL, Links: []result.CheckedLink{}}

	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		page.FetchError = asFailure(err)
		return page, nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		page.FetchError = result.TransportFailure(fmt.Errorf("parse page URL: %w", err))
		return page, nil
	}

	links, err := ExtractLinks(strings.NewReader(body), base, ExtractOptions{SkipNonHTTP: c.cfg.SkipNonHTTP})
	if err != nil {
		c.logger.Debug().Err(err).Str("page", pageURL).Msg("skipped malformed links")
	}

	page.Links = c.validator.ValidateAll(ctx, links)
	return page, links
}

// asFailure returns err as a *result.Failure, classifying it if needed.
func asFailure(err error) *result.Failure {
	var failure *result.Failure
	if errors.As(err, &failure) {
		return failure
	}
	return result.TransportFailure(err)
}
