package static

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Fetcher returns the raw document at url and the address it was served
// from after redirects.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, finalURL string, err error)
}

type CollyOptions struct {
	UserAgent string
	Transport http.RoundTripper
	Timeout   time.Duration
}

// CollyFetcher fetches pages synchronously through a single colly collector.
type CollyFetcher struct {
	c    *colly.Collector
	last *colly.Response
}

func NewCollyFetcher(ctx context.Context, opts CollyOptions) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)

	if opts.Transport != nil {
		c.WithTransport(opts.Transport)
	}
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}

	f := &CollyFetcher{c: c}
	c.OnResponse(func(r *colly.Response) {
		f.last = r
	})

	return f
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	f.last = nil
	if err := f.c.Visit(url); err != nil {
		return nil, "", err
	}
	if f.last == nil {
		return nil, "", fmt.Errorf("no response for %s", url)
	}

	return f.last.Body, f.last.Request.URL.String(), nil
}
