package walker

import (
	"context"
	"errors"
)

// ErrBrowser wraps every launch, navigation and selector-wait failure.
var ErrBrowser = errors.New("browser failure")

// Anchor is an anchor element as the browser resolved it.
type Anchor struct {
	Href   string `json:"href"`
	Target string `json:"target"`
}

// Launcher starts a browser for one walk.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser instance shared by all tabs of one walk.
type Browser interface {
	// NewTab opens an isolated browsing context. Canceling ctx closes it.
	NewTab(ctx context.Context) (Tab, error)
	Close() error
}

// Tab is a single browsing context owned by one page visit.
type Tab interface {
	// Navigate loads rawURL. With waitIdle it returns only once the network
	// has gone quiet.
	Navigate(ctx context.Context, rawURL string, waitIdle bool) error
	// WaitFor blocks until selector matches an element.
	WaitFor(ctx context.Context, selector string) error
	// Anchors returns the elements matching selector in document order.
	Anchors(ctx context.Context, selector string) ([]Anchor, error)
	Close() error
}

// anchorsScript maps matched elements to Anchor objects. The argument is the
// list of elements.
const anchorsScript = `els => els.map(a => ({href: a.href || "", target: a.getAttribute("target") || ""}))`
