// Package browsertest serves in-memory HTML pages through the static
// session so scraping logic can be tested without a browser or network.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/brogergvhs/noveld/internal/browser/static"
)

// Pages maps URLs to HTML documents and records every fetch.
type Pages struct {
	mu      sync.Mutex
	docs    map[string]string
	visited []string
}

func NewPages(docs map[string]string) *Pages {
	return &Pages{docs: docs}
}

func (p *Pages) Fetch(_ context.Context, url string) ([]byte, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.visited = append(p.visited, url)

	doc, ok := p.docs[url]
	if !ok {
		return nil, "", fmt.Errorf("HTTP 404 for %s", url)
	}

	return []byte(doc), url, nil
}

// Visited returns the fetched URLs in order.
func (p *Pages) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.visited...)
}

// Session returns a static session reading from p and counts Close calls.
func (p *Pages) Session() *Session {
	return &Session{Session: static.New(p)}
}

type Session struct {
	*static.Session
	Closed int
}

func (s *Session) Close() error {
	s.Closed++
	return s.Session.Close()
}

// ChapterPage renders a page in the layout of the default site profile.
// An empty next leaves the next-chapter link out.
func ChapterPage(title string, paragraphs []string, next string) string {
	body := ""
	for _, p := range paragraphs {
		body += `<p class="node-paragraph">` + p + `</p>`
	}

	nav := `<a class="ve_b6" disabled="true">Prev</a>`
	if next != "" {
		nav += `<a class="ve_b6" href="` + next + `">Next</a>`
	}

	return `<html><body>` +
		`<h1 class="lp_bu"> ` + title + ` </h1>` +
		`<div class="node-doc">` + body + `</div>` +
		`<nav>` + nav + `</nav>` +
		`</body></html>`
}
