package crawler

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/lukemcguire/linkwalker/result"
	"github.com/lukemcguire/linkwalker/urlutil"
)

// newContextTarget is the anchor target that opens a new browsing context.
const newContextTarget = "_blank"

// ExtractOptions tunes ExtractLinks.
type ExtractOptions struct {
	// SkipNonHTTP drops links whose scheme is not http or https
	// (mailto:, tel:, javascript: ...).
	SkipNonHTTP bool
}

// ExtractLinks parses HTML from body and returns every anchor href resolved
// against base, in document order. Duplicates are kept. Anchors without an
// href are skipped. Unparsable hrefs are skipped as well and reported through
// the returned error, which never cuts extraction short.
func ExtractLinks(body io.Reader, base *url.URL, opts ExtractOptions) ([]result.LinkRecord, error) {
	tokenizer := html.NewTokenizer(body)
	links := []result.LinkRecord{}
	var errs []error

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != nil && !errors.Is(err, io.EOF) {
				errs = append(errs, fmt.Errorf("tokenize: %w", err))
			}
			if len(errs) > 0 {
				return links, fmt.Errorf("extract links from %s: %w", base, errors.Join(errs...))
			}
			return links, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}

			href, hasHref := attr(token, "href")
			if !hasHref {
				continue
			}
			target, _ := attr(token, "target")

			resolved, err := resolve(base, href)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if opts.SkipNonHTTP && !urlutil.IsHTTPScheme(resolved) {
				continue
			}
			links = append(links, result.LinkRecord{
				URL:               resolved,
				OpensInNewContext: strings.EqualFold(target, newContextTarget),
			})
		}
	}
}

func attr(token html.Token, key string) (string, bool) {
	for _, a := range token.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// resolve turns href into an absolute URL. An empty href points at the base.
func resolve(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return base.String(), nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}
