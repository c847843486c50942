// Package static implements browser.Session over plain HTTP. Pages are not
// rendered, so it only suits sites that serve chapter text in the initial
// HTML.
package static

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/brogergvhs/noveld/internal/browser"
)

type Session struct {
	fetcher Fetcher
	root    *html.Node
	url     string
}

func New(f Fetcher) *Session {
	return &Session{fetcher: f}
}

func (s *Session) Load(ctx context.Context, url string) error {
	body, final, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", browser.ErrNavigation, url, err)
	}

	root, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", browser.ErrNavigation, url, err)
	}

	if final == "" {
		final = url
	}
	s.root = root
	s.url = final

	return nil
}

// WaitFor checks once; a fetched document does not change while waiting.
func (s *Session) WaitFor(ctx context.Context, selector string, _ time.Duration) (browser.Element, error) {
	el, err := s.Find(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", browser.ErrTimeout, err)
	}

	return el, nil
}

func (s *Session) Find(ctx context.Context, selector string) (browser.Element, error) {
	all, err := s.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}

	return all[0], nil
}

func (s *Session) FindAll(_ context.Context, selector string) ([]browser.Element, error) {
	if s.root == nil {
		return nil, browser.ErrNoPage
	}

	nodes, err := query(s.root, selector)
	if err != nil {
		return nil, err
	}

	out := make([]browser.Element, len(nodes))
	for i, n := range nodes {
		out[i] = element{n: n}
	}

	return out, nil
}

func (s *Session) URL() string {
	return s.url
}

func (s *Session) Close() error {
	s.root = nil
	return nil
}

func query(root *html.Node, selector string) ([]*html.Node, error) {
	if browser.IsXPath(selector) {
		nodes, err := htmlquery.QueryAll(root, browser.XPath(selector))
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", selector, err)
		}
		return nodes, nil
	}

	return goquery.NewDocumentFromNode(root).Find(selector).Nodes, nil
}

type element struct {
	n *html.Node
}

func (e element) Text() (string, error) {
	return strings.TrimSpace(htmlquery.InnerText(e.n)), nil
}

func (e element) Attribute(name string) (string, bool, error) {
	for _, a := range e.n.Attr {
		if a.Key == name {
			return a.Val, true, nil
		}
	}

	return "", false, nil
}

func (e element) OuterHTML() (string, error) {
	return htmlquery.OutputHTML(e.n, true), nil
}
