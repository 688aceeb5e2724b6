package walker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher drives Chromium through playwright-go. The browser
// binaries must already be installed.
type PlaywrightLauncher struct {
	Headless bool
	Timeout  time.Duration // default for navigations and waits
}

func (l PlaywrightLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &pwBrowser{pw: pw, browser: browser, timeout: l.Timeout}, nil
}

type pwBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	timeout time.Duration
}

func (b *pwBrowser) NewTab(ctx context.Context) (Tab, error) {
	bctx, err := b.browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	if b.timeout > 0 {
		ms := float64(b.timeout.Milliseconds())
		bctx.SetDefaultNavigationTimeout(ms)
		bctx.SetDefaultTimeout(ms)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	// playwright calls do not take a context; closing the browsing context
	// aborts whatever is in flight.
	stop := context.AfterFunc(ctx, func() { _ = bctx.Close() })
	return &pwTab{bctx: bctx, page: page, stop: stop}, nil
}

func (b *pwBrowser) Close() error {
	return errors.Join(b.browser.Close(), b.pw.Stop())
}

type pwTab struct {
	bctx playwright.BrowserContext
	page playwright.Page
	stop func() bool
}

func (t *pwTab) Navigate(ctx context.Context, rawURL string, waitIdle bool) error {
	opts := playwright.PageGotoOptions{}
	if waitIdle {
		opts.WaitUntil = playwright.WaitUntilStateNetworkidle
	}
	if _, err := t.page.Goto(rawURL, opts); err != nil {
		return contextErr(ctx, err)
	}
	return nil
}

func (t *pwTab) WaitFor(ctx context.Context, selector string) error {
	if err := t.page.Locator(selector).First().WaitFor(); err != nil {
		return contextErr(ctx, err)
	}
	return nil
}

func (t *pwTab) Anchors(ctx context.Context, selector string) ([]Anchor, error) {
	raw, err := t.page.Locator(selector).EvaluateAll(anchorsScript)
	if err != nil {
		return nil, contextErr(ctx, err)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected anchors result %T", raw)
	}
	anchors := make([]Anchor, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		href, _ := fields["href"].(string)
		target, _ := fields["target"].(string)
		anchors = append(anchors, Anchor{Href: href, Target: target})
	}
	return anchors, nil
}

func (t *pwTab) Close() error {
	t.stop()
	return t.bctx.Close()
}

// contextErr prefers the caller's cancellation over the browser's report of
// the closed page.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}
