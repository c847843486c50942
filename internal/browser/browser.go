// Package browser describes the page automation capability the scraper
// consumes: load a URL, wait for and locate elements, read their text,
// attributes and markup. Backends live in the chrome and static subpackages.
package browser

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("element not found")
	ErrTimeout    = errors.New("timed out waiting for element")
	ErrNavigation = errors.New("navigation failed")
	ErrNoPage     = errors.New("no page loaded")
)

type Session interface {
	Load(ctx context.Context, url string) error
	// WaitFor blocks until selector matches or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	Find(ctx context.Context, selector string) (Element, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// URL is the address of the currently loaded page.
	URL() string
	Close() error
}

type Element interface {
	Text() (string, error)
	Attribute(name string) (string, bool, error)
	OuterHTML() (string, error)
}

const xpathPrefix = "xpath:"

// IsXPath reports whether selector is an XPath expression rather than CSS.
func IsXPath(selector string) bool {
	s := strings.TrimSpace(selector)

	return strings.HasPrefix(s, xpathPrefix) ||
		strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "(")
}

// XPath strips the optional "xpath:" prefix.
func XPath(selector string) string {
	s := strings.TrimSpace(selector)

	return strings.TrimSpace(strings.TrimPrefix(s, xpathPrefix))
}

// ResolveURL resolves href against the page it was found on.
func ResolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		return href
	}

	return b.ResolveReference(u).String()
}
