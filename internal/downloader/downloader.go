package downloader

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/brogergvhs/noveld/internal/book"
	"github.com/brogergvhs/noveld/internal/browser"
	"github.com/brogergvhs/noveld/internal/extract"
)

const DefaultDelay = 2 * time.Second

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}

// Progress is told about every stored chapter.
type Progress interface {
	ChapterDone(n int, title string)
}

type Options struct {
	NextSelector string
	Delay        time.Duration
	// Retries is the number of extra attempts for a chapter whose load or
	// extraction failed in a retryable way. Zero disables retrying.
	Retries int
	// MaxChapters stops the run after that many chapters. Zero means no limit.
	MaxChapters int
	Logger      Logger
	Progress    Progress
}

type Downloader struct {
	sess     browser.Session
	ext      *extract.Extractor
	next     string
	delay    time.Duration
	retries  int
	max      int
	log      Logger
	progress Progress
}

func New(sess browser.Session, ext *extract.Extractor, opts Options) *Downloader {
	d := &Downloader{
		sess:     sess,
		ext:      ext,
		next:     opts.NextSelector,
		delay:    opts.Delay,
		retries:  max(0, opts.Retries),
		max:      max(0, opts.MaxChapters),
		log:      opts.Logger,
		progress: opts.Progress,
	}
	if d.delay < 0 {
		d.delay = 0
	}
	if d.log == nil {
		d.log = noopLogger{}
	}

	return d
}

// Result holds the chapters in reading order and the URLs loaded to get
// them. On failure it still carries everything collected before the error.
type Result struct {
	Chapters []book.Chapter
	Visited  []string
}

// Run walks the chain of next-chapter links starting at startURL until a
// page has no next link. The session is not closed.
func (d *Downloader) Run(ctx context.Context, startURL string) (*Result, error) {
	res := &Result{}

	err := d.withRetry(ctx, 1, func(int) error {
		return d.load(ctx, res, startURL, 1)
	})
	if err != nil {
		return res, err
	}

	seen := map[string]bool{startURL: true, d.sess.URL(): true}
	url := startURL

	for n := 1; ; n++ {
		d.log.Debugf("Chapter %d...\n", n)

		ch, err := d.fetchChapter(ctx, res, url, n)
		if err != nil {
			return res, err
		}

		res.Chapters = append(res.Chapters, ch)
		d.log.Debugf("Chapter %d: %s (%d paragraphs)\n", n, ch.Title, len(ch.Paragraphs()))
		if d.progress != nil {
			d.progress.ChapterDone(n, ch.Title)
		}

		if d.max > 0 && n >= d.max {
			d.log.Infof("Reached the limit of %d chapters\n", d.max)
			break
		}

		next, err := d.nextURL(ctx, n)
		if err != nil {
			return res, err
		}
		if next == "" {
			d.log.Debugf("No next chapter after chapter %d\n", n)
			break
		}
		if seen[next] {
			d.log.Warnf("Next link of chapter %d points back to %s, stopping\n", n, next)
			break
		}
		seen[next] = true

		err = d.withRetry(ctx, n+1, func(int) error {
			if err := d.load(ctx, res, next, n+1); err != nil {
				return err
			}
			return d.pause(ctx, next, n+1)
		})
		if err != nil {
			return res, err
		}

		url = next
	}

	return res, nil
}

func (d *Downloader) fetchChapter(ctx context.Context, res *Result, url string, n int) (book.Chapter, error) {
	var ch book.Chapter

	err := d.withRetry(ctx, n, func(attempt int) error {
		if attempt > 0 {
			if err := d.load(ctx, res, url, n); err != nil {
				return err
			}
		}

		c, err := d.ext.Extract(ctx, d.sess)
		if err != nil {
			return classify(err, n, url)
		}

		ch = c
		return nil
	})

	return ch, err
}

// nextURL returns the resolved target of the first enabled next link, or ""
// when the page has none.
func (d *Downloader) nextURL(ctx context.Context, n int) (string, error) {
	links, err := d.sess.FindAll(ctx, d.next)
	if err != nil {
		return "", classify(err, n, d.sess.URL())
	}

	for _, link := range links {
		if v, ok, _ := link.Attribute("disabled"); ok && strings.Contains(v, "true") {
			continue
		}

		href, ok, err := link.Attribute("href")
		if err != nil {
			return "", classify(err, n, d.sess.URL())
		}

		href = strings.TrimSpace(href)
		if strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return "", nil
		}
		if !ok || href == "" {
			return "", &book.Error{
				Kind:    book.KindNavigation,
				Chapter: n,
				URL:     d.sess.URL(),
				Err:     errors.New("next chapter link has no target"),
			}
		}

		return browser.ResolveURL(d.sess.URL(), href), nil
	}

	return "", nil
}

func (d *Downloader) load(ctx context.Context, res *Result, url string, n int) error {
	res.Visited = append(res.Visited, url)

	if err := d.sess.Load(ctx, url); err != nil {
		return classify(err, n, url)
	}

	return nil
}

func (d *Downloader) pause(ctx context.Context, url string, n int) error {
	if d.delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return &book.Error{Chapter: n, URL: url, Err: ctx.Err()}
	case <-time.After(d.delay):
		return nil
	}
}

func (d *Downloader) withRetry(ctx context.Context, n int, op func(attempt int) error) error {
	for attempt := 0; ; attempt++ {
		err := op(attempt)
		if err == nil {
			return nil
		}

		var be *book.Error
		if !errors.As(err, &be) || !be.Retryable() || attempt >= d.retries || ctx.Err() != nil {
			return err
		}

		d.log.Warnf("Chapter %d: attempt %d/%d failed: %v\n", n, attempt+1, d.retries+1, err)
		if err := d.pause(ctx, be.URL, n); err != nil {
			return err
		}
	}
}

func classify(err error, n int, url string) error {
	var be *book.Error
	if errors.As(err, &be) {
		return err
	}

	kind := book.KindUnknown
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	case errors.Is(err, browser.ErrNotFound), errors.Is(err, browser.ErrTimeout):
		kind = book.KindElementNotFound
	case errors.Is(err, browser.ErrNavigation):
		kind = book.KindNavigation
	}

	return &book.Error{Kind: kind, Chapter: n, URL: url, Err: err}
}
