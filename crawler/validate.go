package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/lukemcguire/linkwalker/result"
)

// maxRedirects bounds redirect chains before a probe is abandoned.
const maxRedirects = 10

// NewHTTPClient returns the client shared by the fetcher and the validator.
// Redirect chains longer than maxRedirects fail with result.ErrRedirectLoop.
func NewHTTPClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%d redirects ending at %s: %w", len(via), req.URL, result.ErrRedirectLoop)
			}
			return nil
		},
	}
}

// Validator probes link reachability with HEAD requests, falling back to GET
// when a server refuses HEAD.
type Validator struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	concurrency int
	limiter     *rate.Limiter
	retry       RetryPolicy
}

// NewValidator builds a Validator from cfg. A zero RateLimit disables
// throttling.
func NewValidator(client *http.Client, cfg Config) *Validator {
	if client == nil {
		client = NewHTTPClient()
	}
	v := &Validator{
		client:      client,
		timeout:     cfg.ProbeTimeout,
		userAgent:   cfg.UserAgent,
		concurrency: cfg.Concurrency,
		retry:       cfg.Retry,
	}
	if v.concurrency <= 0 {
		v.concurrency = DefaultConcurrency
	}
	if cfg.RateLimit > 0 {
		burst := max(int(cfg.RateLimit), 1)
		v.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return v
}

// ValidateAll probes every link with at most the configured number of probes
// in flight. The result has the same length and order as links. A failing
// probe never affects the others.
func (v *Validator) ValidateAll(ctx context.Context, links []result.LinkRecord) []result.CheckedLink {
	checked := make([]result.CheckedLink, len(links))

	// Scoped to this call so one caller's cancellation never leaks into
	// another crawl's results.
	var group singleflight.Group
	var g errgroup.Group
	g.SetLimit(v.concurrency)
	for i, link := range links {
		g.Go(func() error {
			checked[i] = result.CheckedLink{
				LinkRecord:        link,
				ValidationOutcome: v.probeShared(ctx, &group, link.URL),
			}
			return nil
		})
	}
	_ = g.Wait()

	return checked
}

// probeShared collapses concurrent probes of the same URL within one batch
// into one request.
func (v *Validator) probeShared(ctx context.Context, group *singleflight.Group, rawURL string) result.ValidationOutcome {
	out, _, _ := group.Do(rawURL, func() (any, error) {
		return v.Probe(ctx, rawURL), nil
	})
	return out.(result.ValidationOutcome)
}

// Probe checks a single URL, retrying transient failures when the retry
// policy allows it.
func (v *Validator) Probe(ctx context.Context, rawURL string) result.ValidationOutcome {
	var failure *result.Failure
	var status int

	err := v.retry.Do(ctx, func() (bool, error) {
		if v.limiter != nil {
			if err := v.limiter.Wait(ctx); err != nil {
				return false, fmt.Errorf("rate limiter wait: %w", err)
			}
		}
		status, failure = v.check(ctx, rawURL)
		return shouldRetry(status, failure), nil
	})
	if err != nil && failure == nil {
		failure = result.TransportFailure(err)
	}

	return outcome(status, failure)
}

// check performs one HEAD probe, then GET if HEAD is not supported.
// It returns the final status, or a failure when no response arrived.
func (v *Validator) check(ctx context.Context, rawURL string) (int, *result.Failure) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	status, err := v.do(ctx, http.MethodHead, rawURL)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = v.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		return 0, result.TransportFailure(err)
	}
	return status, nil
}

// do sends one request and returns its status without reading the body.
func (v *Validator) do(ctx context.Context, method, rawURL string) (status int, err error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build %s request: %w", method, err)
	}
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close response body: %w", closeErr)
		}
	}()
	return resp.StatusCode, nil
}

// outcome classifies a probe. Any status below 400 counts as reachable.
func outcome(status int, failure *result.Failure) result.ValidationOutcome {
	if failure != nil {
		return result.ValidationOutcome{
			StatusCode:    0,
			Reachable:     false,
			ErrorMessage:  failure.Message,
			ErrorCategory: failure.Category(),
		}
	}
	if status >= 400 {
		return result.ValidationOutcome{
			StatusCode:    status,
			Reachable:     false,
			ErrorCategory: result.ClassifyError(nil, status),
		}
	}
	return result.ValidationOutcome{StatusCode: status, Reachable: true}
}

// isCanceled reports whether err stems from the caller giving up rather than
// the remote end failing.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
