package result

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrRedirectLoop marks a request that was abandoned after too many redirects.
var ErrRedirectLoop = errors.New("too many redirects")

// FailureKind is the closed set of reasons a fetch or probe can fail.
type FailureKind string

const (
	// FailureTimeout means no response arrived before the deadline.
	FailureTimeout FailureKind = "timeout"
	// FailureHTTPStatus means the server answered with a 4xx/5xx status
	// (or, for page fetches, any non-2xx status).
	FailureHTTPStatus FailureKind = "http_status"
	// FailureNetwork covers every other transport error: DNS, refused
	// connections, TLS, malformed URLs.
	FailureNetwork FailureKind = "network"
)

// Failure is produced once at the fetch/probe boundary and carried from there
// on. Callers switch on Kind instead of inspecting the underlying error.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	StatusCode int         `json:"statusCode,omitempty"`
	Message    string      `json:"message"`

	cause error
}

// StatusFailure builds a Failure for a server that answered with code.
func StatusFailure(code int, status string) *Failure {
	msg := status
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", code)
	}
	return &Failure{Kind: FailureHTTPStatus, StatusCode: code, Message: msg}
}

// TransportFailure builds a Failure for a request that got no response.
func TransportFailure(err error) *Failure {
	kind := FailureNetwork
	if isTimeout(err) {
		kind = FailureTimeout
	}
	return &Failure{Kind: kind, Message: err.Error(), cause: err}
}

func (f *Failure) Error() string {
	if f.Kind == FailureHTTPStatus {
		return fmt.Sprintf("http status %d: %s", f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// Category maps the failure onto the reporting categories.
func (f *Failure) Category() ErrorCategory {
	return ClassifyError(f.cause, f.StatusCode)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ErrorCategory represents the classification of a crawl error.
type ErrorCategory string

const (
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryDNSFailure        ErrorCategory = "dns_failure"
	CategoryConnectionRefused ErrorCategory = "connection_refused"
	Category4xx               ErrorCategory = "4xx"
	Category5xx               ErrorCategory = "5xx"
	CategoryRedirectLoop      ErrorCategory = "redirect_loop"
	CategoryUnknown           ErrorCategory = "unknown"
)

// ClassifyError determines the error category from the error and the HTTP
// status code. Redirect loops win over everything else, then status codes,
// then the transport error.
func ClassifyError(err error, statusCode int) ErrorCategory {
	if errors.Is(err, ErrRedirectLoop) {
		return CategoryRedirectLoop
	}

	if statusCode >= 400 && statusCode <= 499 {
		return Category4xx
	}
	if statusCode >= 500 {
		return Category5xx
	}

	if err == nil {
		return CategoryUnknown
	}

	if isTimeout(err) {
		return CategoryTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryDNSFailure
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && strings.Contains(opErr.Error(), "connection refused") {
		return CategoryConnectionRefused
	}

	return CategoryUnknown
}

// FormatCategory returns a human-readable label for an error category.
func FormatCategory(cat ErrorCategory) string {
	switch cat {
	case CategoryTimeout:
		return "Timeouts"
	case CategoryDNSFailure:
		return "DNS Failures"
	case CategoryConnectionRefused:
		return "Connection Refused"
	case Category4xx:
		return "Client Errors (4xx)"
	case Category5xx:
		return "Server Errors (5xx)"
	case CategoryRedirectLoop:
		return "Redirect Loops"
	default:
		return "Other Errors"
	}
}
