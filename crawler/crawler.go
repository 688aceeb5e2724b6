// Package crawler checks the links of a statically rendered site. It walks
// pages depth-first from a seed URL, validates every link it finds, and
// follows the links that stay within the crawl scope.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/lukemcguire/linkwalker/result"
	"github.com/lukemcguire/linkwalker/urlutil"
)

// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
var ErrInvalidSeed = errors.New("invalid seed URL")

// ErrInvalidDepth is returned for a negative maximum depth.
var ErrInvalidDepth = errors.New("invalid max depth")

// Strategy produces a CrawlReport for a seed URL. Depth 0 is the seed itself.
type Strategy interface {
	Crawl(ctx context.Context, seed string, maxDepth int) (result.CrawlReport, error)
}

// Crawler is the static-HTML Strategy.
type Crawler struct {
	cfg        Config
	fetcher    Fetcher
	validator  *Validator
	logger     zerolog.Logger
	progressCh chan<- CrawlEvent
}

var _ Strategy = (*Crawler)(nil)

// Option customizes a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger for fetch failures and pruned branches.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// WithProgress sends one CrawlEvent per processed page on ch.
func WithProgress(ch chan<- CrawlEvent) Option {
	return func(c *Crawler) { c.progressCh = ch }
}

// WithFetcher replaces the HTTP page fetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Crawler) { c.fetcher = f }
}

// WithValidator replaces the link validator.
func WithValidator(v *Validator) Option {
	return func(c *Crawler) { c.validator = v }
}

// WithHTTPClient makes the default fetcher and validator share client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		c.fetcher = NewHTTPFetcher(client, c.cfg)
		c.validator = NewValidator(client, c.cfg)
	}
}

// New creates a Crawler. Zero-valued numeric settings in cfg fall back to
// their defaults.
func New(cfg Config, opts ...Option) (*Crawler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := NewHTTPClient()
	c := &Crawler{
		cfg:       cfg,
		fetcher:   NewHTTPFetcher(client, cfg),
		validator: NewValidator(client, cfg),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// workItem is a page waiting on the frontier.
type workItem struct {
	url   string
	depth int
}

// Crawl visits seed and every in-scope page reachable from it within
// maxDepth hops. Pages appear in the report in pre-order: each page precedes
// the pages reached through its links, and a child's whole subtree precedes
// its next sibling.
//
// Cancellation or the crawl deadline stops the crawl with an error and no
// report.
func (c *Crawler) Crawl(ctx context.Context, seed string, maxDepth int) (report result.CrawlReport, err error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, maxDepth)
	}
	if err := ValidateSeed(seed); err != nil {
		return nil, err
	}

	if c.cfg.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CrawlTimeout)
		defer cancel()
	}

	visited, err := NewVisitedSet(c.cfg.Visited)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := visited.Close(); closeErr != nil {
			c.logger.Warn().Err(closeErr).Msg("close visited set")
		}
	}()

	start := time.Now()
	report = result.CrawlReport{}
	var totals CrawlEvent

	// LIFO frontier; children are pushed in reverse so they pop in
	// discovery order.
	frontier := []workItem{{url: seed, depth: 0}}
	for len(frontier) > 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("crawl %s: %w", seed, ctxErr)
		}

		item := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		if item.depth > maxDepth {
			continue
		}
		if !visited.VisitIfNew(urlutil.VisitKey(item.url)) {
			continue
		}

		page, links := c.visitPage(ctx, item.url)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("crawl %s: %w", seed, ctxErr)
		}

		if page.FetchError != nil {
			c.logger.Debug().
				Str("page", item.url).
				Int("depth", item.depth).
				Str("kind", string(page.FetchError.Kind)).
				Str("error", page.FetchError.Message).
				Msg("page fetch failed")
			if !c.cfg.ReportFetchFailures {
				continue
			}
		}

		report = append(report, page)
		c.emit(ctx, &totals, item, page)

		if item.depth == maxDepth {
			continue
		}
		for i := len(links) - 1; i >= 0; i-- {
			if urlutil.InScope(c.cfg.Scope, item.url, links[i].URL) {
				frontier = append(frontier, workItem{url: links[i].URL, depth: item.depth + 1})
			}
		}
	}

	c.logger.Debug().
		Str("seed", seed).
		Int("pages", len(report)).
		Dur("duration", time.Since(start)).
		Msg("crawl finished")
	return report, nil
}

// emit updates the running totals and sends a progress event.
func (c *Crawler) emit(ctx context.Context, totals *CrawlEvent, item workItem, page result.PageResult) {
	broken := 0
	for _, link := range page.Links {
		if !link.Reachable {
			broken++
		}
	}
	totals.Pages++
	totals.LinksChecked += len(page.Links)
	totals.BrokenTotal += broken

	if c.progressCh == nil {
		return
	}
	evt := CrawlEvent{
		PageURL:      page.PageURL,
		Depth:        item.depth,
		Links:        len(page.Links),
		Broken:       broken,
		Pages:        totals.Pages,
		LinksChecked: totals.LinksChecked,
		BrokenTotal:  totals.BrokenTotal,
	}
	if page.FetchError != nil {
		evt.FetchError = page.FetchError.Error()
	}
	select {
	case c.progressCh <- evt:
	case <-ctx.Done():
	}
}

// ValidateSeed checks that seed is an absolute http(s) URL.
func ValidateSeed(seed string) error {
	u, err := url.Parse(seed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if !u.IsAbs() || u.Host == "" || !urlutil.IsHTTPScheme(seed) {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidSeed, seed)
	}
	return nil
}
