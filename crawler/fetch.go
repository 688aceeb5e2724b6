package crawler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/lukemcguire/linkwalker/result"
)

// Fetcher retrieves the raw content of a page.
// A failed fetch returns a *result.Failure.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// HTTPFetcher fetches pages with a plain GET. It never retries.
type HTTPFetcher struct {
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	maxBodyBytes int64
}

// NewHTTPFetcher returns a fetcher sharing client with the rest of the crawl.
func NewHTTPFetcher(client *http.Client, cfg Config) *HTTPFetcher {
	if client == nil {
		client = NewHTTPClient()
	}
	return &HTTPFetcher{
		client:       client,
		timeout:      cfg.FetchTimeout,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch downloads rawURL and returns its decoded body. Bodies larger than the
// configured limit are truncated rather than rejected.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (body string, err error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", result.TransportFailure(fmt.Errorf("build request: %w", err))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", result.TransportFailure(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = result.TransportFailure(fmt.Errorf("close response body: %w", closeErr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", result.StatusFailure(resp.StatusCode, resp.Status)
	}

	data, err := f.readBody(resp)
	if err != nil {
		return "", result.TransportFailure(err)
	}
	return string(data), nil
}

func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl, err := deflateReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("deflate decode: %w", err)
		}
		defer func() { _ = fl.Close() }()
		reader = fl
	}

	if f.maxBodyBytes > 0 {
		reader = io.LimitReader(reader, f.maxBodyBytes)
	}
	data, err := io.ReadAll(reader)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// deflateReader decodes an HTTP "deflate" body. The encoding is zlib-wrapped,
// but some servers send raw DEFLATE, so a body without a valid zlib header is
// read as raw flate.
func deflateReader(body io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(body)
	header, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(header) == 2 && header[0]&0x0f == 8 && (uint16(header[0])<<8|uint16(header[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}
