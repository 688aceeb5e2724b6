package crawler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/lukemcguire/linkwalker/result"
)

// RetryPolicy configures retry behavior for failed probes.
// The zero value performs a single attempt.
type RetryPolicy struct {
	MaxRetries int           // Retries after the first attempt (2 = 3 total attempts)
	BaseDelay  time.Duration // Initial backoff delay
	MaxDelay   time.Duration // Maximum backoff cap
}

// DefaultRetryPolicy performs a single attempt. Backoff delays are preset so
// raising MaxRetries is enough to enable retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 0,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Do runs attempt until it reports no need to retry, the policy is exhausted,
// or ctx ends. Backoff doubles after every attempt up to MaxDelay.
func (p RetryPolicy) Do(ctx context.Context, attempt func() (retry bool, err error)) error {
	backoff := p.BaseDelay
	for n := 0; ; n++ {
		retry, err := attempt()
		if err != nil {
			return err
		}
		if !retry || n >= p.MaxRetries {
			return nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		if p.MaxDelay > 0 {
			backoff = min(backoff*2, p.MaxDelay)
		} else {
			backoff *= 2
		}
	}
}

// shouldRetry determines if a probe result should be retried.
// Returns true for:
// - Network errors (timeout, connection refused, DNS failure)
// - HTTP 429 (rate limited)
// - HTTP 5xx (server errors)
// Returns false for:
// - HTTP 4xx except 429 (client errors)
// - Redirect loops and caller cancellation
func shouldRetry(status int, failure *result.Failure) bool {
	if failure != nil {
		return isRetryableError(failure)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

// isRetryableError checks if a transport error is transient.
func isRetryableError(err error) bool {
	if err == nil || isCanceled(err) || errors.Is(err, result.ErrRedirectLoop) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Network operation errors (covers timeout, connection refused)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
