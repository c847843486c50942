package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/brogergvhs/noveld/internal/book"
	"github.com/brogergvhs/noveld/internal/browser"
)

const DefaultWaitTimeout = 20 * time.Second

type Selectors struct {
	Title     string
	Content   string
	Paragraph string
}

type Extractor struct {
	sel  Selectors
	wait time.Duration
}

func New(sel Selectors, wait time.Duration) *Extractor {
	if wait <= 0 {
		wait = DefaultWaitTimeout
	}

	return &Extractor{sel: sel, wait: wait}
}

// Extract reads the chapter on the page currently loaded in s. It waits for
// the title element first since chapter content may render after load.
func (e *Extractor) Extract(ctx context.Context, s browser.Session) (book.Chapter, error) {
	titleEl, err := s.WaitFor(ctx, e.sel.Title, e.wait)
	if err != nil {
		return book.Chapter{}, fmt.Errorf("chapter title: %w", err)
	}

	title, err := titleEl.Text()
	if err != nil {
		return book.Chapter{}, fmt.Errorf("chapter title text: %w", err)
	}

	container, err := s.Find(ctx, e.sel.Content)
	if err != nil {
		return book.Chapter{}, fmt.Errorf("chapter content: %w", err)
	}

	markup, err := container.OuterHTML()
	if err != nil {
		return book.Chapter{}, fmt.Errorf("chapter content markup: %w", err)
	}

	paragraphs, err := Paragraphs(markup, e.sel.Paragraph)
	if err != nil {
		return book.Chapter{}, err
	}

	return book.Chapter{
		Title:   strings.TrimSpace(title),
		Content: strings.Join(paragraphs, "\n\n"),
	}, nil
}

// Paragraphs returns the text of every element in fragment matching
// selector, in document order. Paragraphs without text are skipped.
func Paragraphs(fragment, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse chapter content: %w", err)
	}

	out := []string{}
	doc.Find(selector).Each(func(_ int, p *goquery.Selection) {
		if text := Text(p); text != "" {
			out = append(out, text)
		}
	})

	return out, nil
}

// Text joins the trimmed text nodes under s with newlines, so markup line
// breaks (<br>, nested blocks) survive as "\n".
func Text(s *goquery.Selection) string {
	var parts []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range s.Nodes {
		walk(n)
	}

	return strings.Join(parts, "\n")
}
