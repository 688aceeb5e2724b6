// Package walker checks sites whose navigation only exists after scripts run.
// It drives a browser through a two-tier layout: a navigation menu on the
// seed page, and the content pages the menu points at.
package walker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lukemcguire/linkwalker/crawler"
	"github.com/lukemcguire/linkwalker/result"
	"github.com/lukemcguire/linkwalker/urlutil"
)

// Config selects the elements the walker reads.
type Config struct {
	MenuReadySelector string // present once the menu has rendered
	MenuSelector      string // menu entries
	ContentSelector   string // present once a content page has rendered
	PageExtension     string // menu URLs are cut right after this marker
	// CrawlTimeout bounds a whole Walk or Crawl. Zero means
	// crawler.DefaultCrawlTimeout; negative disables the deadline.
	CrawlTimeout time.Duration
}

// DefaultConfig matches documentation portals with a tree-node menu.
func DefaultConfig() Config {
	return Config{
		MenuReadySelector: "li.tree-node",
		MenuSelector:      "li.tree-node > a",
		ContentSelector:   "#mc-main-content",
		PageExtension:     ".htm",
		CrawlTimeout:      crawler.DefaultCrawlTimeout,
	}
}

// MenuPage is one menu entry and the links found on its page.
type MenuPage struct {
	URL   string   `json:"url"`
	Links []string `json:"links"`
}

// CrawlTask maps menu pages to the links they contain, in menu order.
type CrawlTask struct {
	Pages []MenuPage `json:"pages"`
}

// Map returns the task keyed by menu-page URL.
func (t *CrawlTask) Map() map[string][]string {
	m := make(map[string][]string, len(t.Pages))
	for _, p := range t.Pages {
		m[p.URL] = p.Links
	}
	return m
}

// Walker is the rendered-site Strategy.
type Walker struct {
	cfg       Config
	launcher  Launcher
	validator *crawler.Validator
	logger    zerolog.Logger
}

var _ crawler.Strategy = (*Walker)(nil)

// Option customizes a Walker.
type Option func(*Walker)

// WithLogger sets the logger for browser steps.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Walker) { w.logger = logger }
}

// New returns a Walker that launches browsers with launcher and checks the
// links it finds with validator.
func New(launcher Launcher, validator *crawler.Validator, cfg Config, opts ...Option) *Walker {
	defaults := DefaultConfig()
	if cfg.MenuSelector == "" {
		cfg.MenuSelector = defaults.MenuSelector
	}
	if cfg.ContentSelector == "" {
		cfg.ContentSelector = defaults.ContentSelector
	}
	if cfg.CrawlTimeout == 0 {
		cfg.CrawlTimeout = defaults.CrawlTimeout
	}
	if validator == nil {
		validator = crawler.NewValidator(nil, crawler.DefaultConfig())
	}
	w := &Walker{
		cfg:       cfg,
		launcher:  launcher,
		validator: validator,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk enumerates the menu on seed, then visits each menu page in turn and
// collects its links. Any browser failure aborts the walk; the browser is
// closed on every path.
func (w *Walker) Walk(ctx context.Context, seed string) (task *CrawlTask, err error) {
	if err := crawler.ValidateSeed(seed); err != nil {
		return nil, err
	}
	ctx, cancel := w.withDeadline(ctx)
	defer cancel()

	browser, err := w.launch(ctx)
	if err != nil {
		return nil, err
	}
	defer w.closeBrowser(browser)

	menu, err := w.menuPages(ctx, browser, seed)
	if err != nil {
		return nil, err
	}
	w.logger.Debug().Str("seed", seed).Int("menu_pages", len(menu)).Msg("menu collected")

	task = &CrawlTask{Pages: make([]MenuPage, 0, len(menu))}
	for _, pageURL := range menu {
		links, err := w.pageLinks(ctx, browser, pageURL)
		if err != nil {
			return nil, err
		}
		task.Pages = append(task.Pages, MenuPage{URL: pageURL, Links: links})
	}
	return task, nil
}

// Crawl implements crawler.Strategy. With maxDepth 0 only the seed page's
// own anchors are checked. Any larger depth walks the full menu and checks
// every menu page's links, one PageResult per menu page.
func (w *Walker) Crawl(ctx context.Context, seed string, maxDepth int) (result.CrawlReport, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: %d", crawler.ErrInvalidDepth, maxDepth)
	}
	ctx, cancel := w.withDeadline(ctx)
	defer cancel()
	if maxDepth == 0 {
		return w.crawlSeed(ctx, seed)
	}

	task, err := w.Walk(ctx, seed)
	if err != nil {
		return nil, err
	}

	report := make(result.CrawlReport, 0, len(task.Pages))
	for _, p := range task.Pages {
		records := make([]result.LinkRecord, len(p.Links))
		for i, link := range p.Links {
			records[i] = result.LinkRecord{URL: link}
		}
		report = append(report, result.PageResult{
			PageURL: p.URL,
			Links:   w.validator.ValidateAll(ctx, records),
		})
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("crawl %s: %w", seed, err)
		}
	}
	return report, nil
}

// crawlSeed checks the anchors of the rendered seed page.
func (w *Walker) crawlSeed(ctx context.Context, seed string) (result.CrawlReport, error) {
	if err := crawler.ValidateSeed(seed); err != nil {
		return nil, err
	}
	ctx, cancel := w.withDeadline(ctx)
	defer cancel()

	browser, err := w.launch(ctx)
	if err != nil {
		return nil, err
	}
	defer w.closeBrowser(browser)

	var anchors []Anchor
	err = w.withTab(ctx, browser, func(tab Tab) error {
		if err := tab.Navigate(ctx, seed, true); err != nil {
			return browserErr("navigate to "+seed, err)
		}
		anchors, err = tab.Anchors(ctx, "a")
		if err != nil {
			return browserErr("read anchors on "+seed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]result.LinkRecord, 0, len(anchors))
	for _, a := range anchors {
		if a.Href == "" {
			continue
		}
		records = append(records, result.LinkRecord{
			URL:               a.Href,
			OpensInNewContext: strings.EqualFold(a.Target, "_blank"),
		})
	}
	page := result.PageResult{PageURL: seed, Links: w.validator.ValidateAll(ctx, records)}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("crawl %s: %w", seed, err)
	}
	return result.CrawlReport{page}, nil
}

// menuPages loads seed, waits for the network to settle and the menu to
// render, and returns the distinct menu URLs cut at the page extension.
func (w *Walker) menuPages(ctx context.Context, browser Browser, seed string) ([]string, error) {
	var pages []string
	err := w.withTab(ctx, browser, func(tab Tab) error {
		if err := tab.Navigate(ctx, seed, true); err != nil {
			return browserErr("navigate to "+seed, err)
		}
		if w.cfg.MenuReadySelector != "" {
			if err := tab.WaitFor(ctx, w.cfg.MenuReadySelector); err != nil {
				return browserErr("wait for menu", err)
			}
		}
		anchors, err := tab.Anchors(ctx, w.cfg.MenuSelector)
		if err != nil {
			return browserErr("read menu", err)
		}

		seen := make(map[string]struct{}, len(anchors))
		for _, a := range anchors {
			if a.Href == "" {
				continue
			}
			pageURL := urlutil.TruncateAtMarker(a.Href, w.cfg.PageExtension)
			if _, dup := seen[pageURL]; dup {
				continue
			}
			seen[pageURL] = struct{}{}
			pages = append(pages, pageURL)
		}
		return nil
	})
	return pages, err
}

// pageLinks loads one menu page in a fresh tab and returns its distinct
// link URLs in document order.
func (w *Walker) pageLinks(ctx context.Context, browser Browser, pageURL string) ([]string, error) {
	links := []string{}
	err := w.withTab(ctx, browser, func(tab Tab) error {
		start := time.Now()
		if err := tab.Navigate(ctx, pageURL, false); err != nil {
			return browserErr("navigate to "+pageURL, err)
		}
		if err := tab.WaitFor(ctx, w.cfg.ContentSelector); err != nil {
			return browserErr("wait for content on "+pageURL, err)
		}
		anchors, err := tab.Anchors(ctx, "a")
		if err != nil {
			return browserErr("read anchors on "+pageURL, err)
		}

		seen := make(map[string]struct{}, len(anchors))
		for _, a := range anchors {
			if a.Href == "" {
				continue
			}
			if _, dup := seen[a.Href]; dup {
				continue
			}
			seen[a.Href] = struct{}{}
			links = append(links, a.Href)
		}
		w.logger.Debug().
			Str("page", pageURL).
			Int("links", len(links)).
			Dur("took", time.Since(start)).
			Msg("menu page visited")
		return nil
	})
	return links, err
}

// withDeadline applies the overall crawl deadline to ctx.
func (w *Walker) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.CrawlTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, w.cfg.CrawlTimeout)
}

// withTab opens a tab, runs fn and closes the tab whatever fn returns.
func (w *Walker) withTab(ctx context.Context, browser Browser, fn func(Tab) error) error {
	tab, err := browser.NewTab(ctx)
	if err != nil {
		return browserErr("open tab", err)
	}
	defer func() {
		if closeErr := tab.Close(); closeErr != nil {
			w.logger.Debug().Err(closeErr).Msg("close tab")
		}
	}()
	return fn(tab)
}

func (w *Walker) launch(ctx context.Context) (Browser, error) {
	browser, err := w.launcher.Launch(ctx)
	if err != nil {
		return nil, browserErr("launch", err)
	}
	return browser, nil
}

func (w *Walker) closeBrowser(browser Browser) {
	if err := browser.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("close browser")
	}
}

func browserErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBrowser, step, err)
}
