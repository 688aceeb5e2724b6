package walker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromedpLauncher drives a local Chrome through the DevTools protocol.
type ChromedpLauncher struct {
	Headless  bool
	UserAgent string
	Timeout   time.Duration // bound for each navigation or wait
}

func (l ChromedpLauncher) Launch(ctx context.Context) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	// Run with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &cdpBrowser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		timeout:     l.Timeout,
	}, nil
}

type cdpBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
}

func (b *cdpBrowser) NewTab(ctx context.Context) (Tab, error) {
	// Each tab runs in its own browser context; canceling the tab disposes of it.
	tabCtx, cancel := chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	stop := context.AfterFunc(ctx, cancel)
	return &cdpTab{ctx: tabCtx, cancel: cancel, stop: stop, timeout: b.timeout}, nil
}

func (b *cdpBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if err != nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

type cdpTab struct {
	ctx     context.Context
	cancel  context.CancelFunc
	stop    func() bool
	timeout time.Duration
}

// run executes actions in the tab, bounded by the tab timeout and ctx.
func (t *cdpTab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := t.ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, t.timeout)
		defer cancel()
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return contextErr(ctx, err)
	}
	return nil
}

func (t *cdpTab) Navigate(ctx context.Context, rawURL string, waitIdle bool) error {
	if !waitIdle {
		return t.run(ctx, chromedp.Navigate(rawURL))
	}

	idle := make(chan struct{})
	var once sync.Once
	listenCtx, stopListening := context.WithCancel(t.ctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			once.Do(func() { close(idle) })
		}
	})

	return t.run(ctx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(rawURL),
		chromedp.ActionFunc(func(runCtx context.Context) error {
			select {
			case <-idle:
				return nil
			case <-runCtx.Done():
				return runCtx.Err()
			}
		}),
	)
}

func (t *cdpTab) WaitFor(ctx context.Context, selector string) error {
	return t.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (t *cdpTab) Anchors(ctx context.Context, selector string) ([]Anchor, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, fmt.Errorf("quote selector: %w", err)
	}
	script := fmt.Sprintf(`(%s)(Array.from(document.querySelectorAll(%s)))`, anchorsScript, quoted)

	var anchors []Anchor
	if err := t.run(ctx, chromedp.Evaluate(script, &anchors)); err != nil {
		return nil, err
	}
	return anchors, nil
}

func (t *cdpTab) Close() error {
	t.stop()
	err := chromedp.Cancel(t.ctx)
	t.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close tab: %w", err)
	}
	return nil
}
