package result

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		want       ErrorCategory
	}{
		{"redirect loop", fmt.Errorf("get: %w", ErrRedirectLoop), 0, CategoryRedirectLoop},
		{"4xx status", nil, 404, Category4xx},
		{"5xx status", nil, 503, Category5xx},
		{"timeout error", context.DeadlineExceeded, 0, CategoryTimeout},
		{"wrapped timeout", fmt.Errorf("head: %w", context.DeadlineExceeded), 0, CategoryTimeout},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "example.invalid"}, 0, CategoryDNSFailure},
		{"no error no status", nil, 0, CategoryUnknown},
		{"3xx status is unknown", nil, 301, CategoryUnknown},
		{"plain error", errors.New("boom"), 0, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err, tt.statusCode); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyError_ConnectionRefused(t *testing.T) {
	err := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused")}
	if got := ClassifyError(err, 0); got != CategoryConnectionRefused {
		t.Errorf("ClassifyError(refused) = %v, want %v", got, CategoryConnectionRefused)
	}
}

func TestTransportFailure(t *testing.T) {
	timeout := TransportFailure(fmt.Errorf("head https://slow.test: %w", context.DeadlineExceeded))
	if timeout.Kind != FailureTimeout {
		t.Errorf("Kind = %q, want %q", timeout.Kind, FailureTimeout)
	}
	if !errors.Is(timeout, context.DeadlineExceeded) {
		t.Error("expected failure to unwrap to context.DeadlineExceeded")
	}
	if timeout.Category() != CategoryTimeout {
		t.Errorf("Category() = %q, want %q", timeout.Category(), CategoryTimeout)
	}

	dns := TransportFailure(&net.DNSError{Err: "no such host", Name: "nowhere.invalid"})
	if dns.Kind != FailureNetwork {
		t.Errorf("Kind = %q, want %q", dns.Kind, FailureNetwork)
	}
	if dns.Message == "" {
		t.Error("expected a non-empty message")
	}
	if dns.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", dns.StatusCode)
	}
}

func TestStatusFailure(t *testing.T) {
	f := StatusFailure(404, "404 Not Found")
	if f.Kind != FailureHTTPStatus || f.StatusCode != 404 {
		t.Fatalf("unexpected failure %+v", f)
	}
	if f.Category() != Category4xx {
		t.Errorf("Category() = %q, want %q", f.Category(), Category4xx)
	}
	if got := f.Error(); got != "http status 404: 404 Not Found" {
		t.Errorf("Error() = %q", got)
	}
	if got := StatusFailure(500, "").Message; got != "HTTP 500" {
		t.Errorf("default message = %q, want %q", got, "HTTP 500")
	}
}

func TestFormatCategory(t *testing.T) {
	tests := []struct {
		cat  ErrorCategory
		want string
	}{
		{CategoryTimeout, "Timeouts"},
		{CategoryDNSFailure, "DNS Failures"},
		{CategoryConnectionRefused, "Connection Refused"},
		{Category4xx, "Client Errors (4xx)"},
		{Category5xx, "Server Errors (5xx)"},
		{CategoryRedirectLoop, "Redirect Loops"},
		{CategoryUnknown, "Other Errors"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			if got := FormatCategory(tt.cat); got != tt.want {
				t.Errorf("FormatCategory(%v) = %v, want %v", tt.cat, got, tt.want)
			}
		})
	}
}
