package crawler

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/lukemcguire/linkwalker/result"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		failure *result.Failure
		want    bool
	}{
		{"200 OK", 200, nil, false},
		{"404 not found", 404, nil, false},
		{"403 forbidden", 403, nil, false},
		{"429 too many requests", 429, nil, true},
		{"500 server error", 500, nil, true},
		{"503 unavailable", 503, nil, true},
		{"timeout", 0, result.TransportFailure(context.DeadlineExceeded), true},
		{"dns failure", 0, result.TransportFailure(&net.DNSError{Err: "no such host"}), true},
		{"dial error", 0, result.TransportFailure(&net.OpError{Op: "dial", Err: errors.New("connection refused")}), true},
		{"canceled", 0, result.TransportFailure(context.Canceled), false},
		{"redirect loop", 0, result.TransportFailure(result.ErrRedirectLoop), false},
		{"unknown error", 0, result.TransportFailure(errors.New("tls: bad certificate")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.status, tt.failure); got != tt.want {
				t.Errorf("shouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryPolicyDo(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("stops when no retry needed", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() (bool, error) {
			calls++
			return false, nil
		})
		if err != nil || calls != 1 {
			t.Errorf("calls = %d, err = %v; want 1, nil", calls, err)
		}
	})

	t.Run("exhausts retries", func(t *testing.T) {
		calls := 0
		_ = policy.Do(context.Background(), func() (bool, error) {
			calls++
			return true, nil
		})
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("returns attempt error", func(t *testing.T) {
		boom := errors.New("boom")
		err := policy.Do(context.Background(), func() (bool, error) { return true, boom })
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want %v", err, boom)
		}
	})

	t.Run("canceled context stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}
		calls := 0
		_ = slow.Do(ctx, func() (bool, error) {
			calls++
			return true, nil
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("zero value makes one attempt", func(t *testing.T) {
		calls := 0
		_ = RetryPolicy{}.Do(context.Background(), func() (bool, error) {
			calls++
			return true, nil
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}
