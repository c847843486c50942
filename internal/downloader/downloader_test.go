package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/brogergvhs/noveld/internal/book"
	"github.com/brogergvhs/noveld/internal/browser"
	"github.com/brogergvhs/noveld/internal/browser/browsertest"
	"github.com/brogergvhs/noveld/internal/browser/static"
	"github.com/brogergvhs/noveld/internal/extract"
	"github.com/brogergvhs/noveld/internal/fb2"
)

const nextXPath = "//a[contains(@class, 've_b6') and not(contains(@disabled, 'true'))]"

func newExtractor() *extract.Extractor {
	return extract.New(extract.Selectors{
		Title:     ".lp_bu",
		Content:   ".node-doc",
		Paragraph: "p.node-paragraph",
	}, 10*time.Millisecond)
}

func chain(m int) (map[string]string, []string) {
	docs := map[string]string{}
	urls := make([]string, m)
	for i := range m {
		urls[i] = fmt.Sprintf("https://site/c%d", i+1)
	}
	for i, u := range urls {
		next := ""
		if i+1 < m {
			next = urls[i+1]
		}
		docs[u] = browsertest.ChapterPage(fmt.Sprintf("Chapter %d", i+1), []string{fmt.Sprintf("text %d", i+1)}, next)
	}

	return docs, urls
}

type recorder struct {
	titles []string
}

func (r *recorder) ChapterDone(n int, title string) {
	r.titles = append(r.titles, fmt.Sprintf("%d:%s", n, title))
}

func TestRunFollowsChain(t *testing.T) {
	for _, m := range []int{1, 2, 7} {
		t.Run(fmt.Sprintf("m=%d", m), func(t *testing.T) {
			docs, urls := chain(m)
			pages := browsertest.NewPages(docs)
			sess := pages.Session()
			rec := &recorder{}

			d := New(sess, newExtractor(), Options{NextSelector: nextXPath, Progress: rec})
			res, err := d.Run(context.Background(), urls[0])
			if err != nil {
				t.Fatalf("Run: %v", err)
			}

			if len(res.Chapters) != m {
				t.Fatalf("expected %d chapters, got %d", m, len(res.Chapters))
			}
			for i, ch := range res.Chapters {
				if want := fmt.Sprintf("Chapter %d", i+1); ch.Title != want {
					t.Errorf("chapter %d title = %q, want %q", i+1, ch.Title, want)
				}
			}

			if !reflect.DeepEqual(pages.Visited(), urls) {
				t.Errorf("visited %v, want %v", pages.Visited(), urls)
			}
			if !reflect.DeepEqual(res.Visited, urls) {
				t.Errorf("result visited %v, want %v", res.Visited, urls)
			}
			if len(rec.titles) != m || rec.titles[0] != "1:Chapter 1" {
				t.Errorf("progress = %v", rec.titles)
			}
			if sess.Closed != 0 {
				t.Error("Run must not close the session it was given")
			}
		})
	}
}

func TestRunResolvesRelativeLinksAndSkipsDisabled(t *testing.T) {
	docs := map[string]string{
		"https://site/book/c1": `<html><body><h1 class="lp_bu">One</h1><div class="node-doc"><p class="node-paragraph">a</p></div>
<a class="next" disabled="true" href="/book/wrong">x</a>
<a class="next" href="c2">Next</a></body></html>`,
		"https://site/book/c2": browsertest.ChapterPage("Two", []string{"b"}, ""),
	}
	pages := browsertest.NewPages(docs)

	res, err := New(pages.Session(), newExtractor(), Options{NextSelector: "a.next"}).Run(context.Background(), "https://site/book/c1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"https://site/book/c1", "https://site/book/c2"}
	if !reflect.DeepEqual(pages.Visited(), want) {
		t.Errorf("visited %v, want %v", pages.Visited(), want)
	}
	if len(res.Chapters) != 2 {
		t.Errorf("expected 2 chapters, got %d", len(res.Chapters))
	}
}

func TestRunStopsOnCycle(t *testing.T) {
	docs := map[string]string{
		"https://site/c1": browsertest.ChapterPage("One", []string{"a"}, "https://site/c2"),
		"https://site/c2": browsertest.ChapterPage("Two", []string{"b"}, "https://site/c1"),
	}
	pages := browsertest.NewPages(docs)

	res, err := New(pages.Session(), newExtractor(), Options{NextSelector: nextXPath}).Run(context.Background(), "https://site/c1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Chapters) != 2 || len(pages.Visited()) != 2 {
		t.Errorf("chapters=%d visited=%v", len(res.Chapters), pages.Visited())
	}
}

func TestRunMaxChapters(t *testing.T) {
	docs, urls := chain(5)
	pages := browsertest.NewPages(docs)

	res, err := New(pages.Session(), newExtractor(), Options{NextSelector: nextXPath, MaxChapters: 3}).Run(context.Background(), urls[0])
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Chapters) != 3 {
		t.Errorf("expected 3 chapters, got %d", len(res.Chapters))
	}
	if !reflect.DeepEqual(pages.Visited(), urls[:3]) {
		t.Errorf("visited %v", pages.Visited())
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(docs map[string]string)
		kind     book.ErrorKind
		chapter  int
		partial  int
		sentinel error
	}{
		{
			name: "missing title",
			mutate: func(docs map[string]string) {
				docs["https://site/c3"] = `<html><body><div class="node-doc"></div></body></html>`
			},
			kind:     book.KindElementNotFound,
			chapter:  3,
			partial:  2,
			sentinel: browser.ErrTimeout,
		},
		{
			name: "broken next link",
			mutate: func(docs map[string]string) {
				delete(docs, "https://site/c3")
			},
			kind:     book.KindNavigation,
			chapter:  3,
			partial:  2,
			sentinel: browser.ErrNavigation,
		},
		{
			name: "next link without href",
			mutate: func(docs map[string]string) {
				docs["https://site/c1"] = strings.Replace(docs["https://site/c1"], `href="https://site/c2"`, "", 1)
			},
			kind:    book.KindNavigation,
			chapter: 1,
			partial: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, urls := chain(4)
			tt.mutate(docs)
			pages := browsertest.NewPages(docs)

			res, err := New(pages.Session(), newExtractor(), Options{NextSelector: nextXPath}).Run(context.Background(), urls[0])
			if err == nil {
				t.Fatal("expected an error")
			}

			var be *book.Error
			if !errors.As(err, &be) {
				t.Fatalf("expected *book.Error, got %T: %v", err, err)
			}
			if be.Kind != tt.kind || be.Chapter != tt.chapter {
				t.Errorf("got kind=%v chapter=%d, want kind=%v chapter=%d", be.Kind, be.Chapter, tt.kind, tt.chapter)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v in chain: %v", tt.sentinel, err)
			}
			if res == nil || len(res.Chapters) != tt.partial {
				t.Errorf("expected %d partial chapters, got %+v", tt.partial, res)
			}
		})
	}
}

// flaky fails the first n fetches of one URL.
type flaky struct {
	*browsertest.Pages
	url   string
	fails int
}

func (f *flaky) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if url == f.url && f.fails > 0 {
		f.fails--
		return nil, "", errors.New("connection reset")
	}

	return f.Pages.Fetch(ctx, url)
}

func TestRunRetries(t *testing.T) {
	tests := []struct {
		name    string
		fails   int
		retries int
		wantErr bool
	}{
		{"no retry by default", 1, 0, true},
		{"retry recovers", 1, 1, false},
		{"retries exhausted", 3, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, urls := chain(3)
			f := &flaky{Pages: browsertest.NewPages(docs), url: urls[1], fails: tt.fails}

			res, err := New(static.New(f), newExtractor(), Options{NextSelector: nextXPath, Retries: tt.retries}).Run(context.Background(), urls[0])
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %t", err, tt.wantErr)
			}

			if tt.wantErr {
				if book.KindOf(err) != book.KindNavigation {
					t.Errorf("kind = %v", book.KindOf(err))
				}
				return
			}
			if len(res.Chapters) != 3 {
				t.Errorf("expected 3 chapters, got %d", len(res.Chapters))
			}
		})
	}
}

func TestRunHonoursContextDuringDelay(t *testing.T) {
	docs, urls := chain(3)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := New(browsertest.NewPages(docs).Session(), newExtractor(), Options{NextSelector: nextXPath, Delay: time.Minute}).Run(ctx, urls[0])
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("delay did not stop on cancellation")
	}
	if len(res.Chapters) != 1 {
		t.Errorf("expected 1 chapter before cancellation, got %d", len(res.Chapters))
	}
}

func TestEndToEndDocument(t *testing.T) {
	docs := map[string]string{
		"https://site/c1": browsertest.ChapterPage("Chapter 1", []string{"Hello<br>World"}, "https://site/c2"),
		"https://site/c2": browsertest.ChapterPage("Chapter 2", []string{"Bye"}, ""),
	}

	res, err := New(browsertest.NewPages(docs).Session(), newExtractor(), Options{NextSelector: nextXPath}).Run(context.Background(), "https://site/c1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Chapters[0].Content != "Hello\nWorld" {
		t.Errorf("chapter 1 content = %q", res.Chapters[0].Content)
	}

	out, err := fb2.Build(book.Metadata{Title: "Test", Author: "A", Date: time.Now()}, res.Chapters)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	assertTwoSections(t, out)
}

func TestEndToEndOverHTTP(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/read/c1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(browsertest.ChapterPage("Chapter 1", []string{"Hello<br>World"}, "/read/c2")))
	})
	mux.HandleFunc("/read/c2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(browsertest.ChapterPage("Chapter 2", []string{"Bye"}, "")))
	})

	ctx := context.Background()
	sess := static.New(static.NewCollyFetcher(ctx, static.CollyOptions{UserAgent: "noveld-test", Timeout: 5 * time.Second}))
	defer func() { _ = sess.Close() }()

	res, err := New(sess, newExtractor(), Options{NextSelector: nextXPath}).Run(ctx, srv.URL+"/read/c1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{srv.URL + "/read/c1", srv.URL + "/read/c2"}
	if !reflect.DeepEqual(res.Visited, want) {
		t.Errorf("visited %v, want %v", res.Visited, want)
	}

	out, err := fb2.Build(book.Metadata{Title: "Test", Date: time.Now()}, res.Chapters)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	assertTwoSections(t, out)
}

func assertTwoSections(t *testing.T, out []byte) {
	t.Helper()

	doc, err := xmlquery.Parse(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	sections := xmlquery.Find(doc, "//section")
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}

	want := []struct {
		title string
		paras []string
	}{
		{"Chapter 1", []string{"Hello", "World"}},
		{"Chapter 2", []string{"Bye"}},
	}

	for i, sec := range sections {
		if got := xmlquery.FindOne(sec, "title/p").InnerText(); got != want[i].title {
			t.Errorf("section %d title = %q", i+1, got)
		}

		var paras []string
		for _, p := range xmlquery.Find(sec, "p") {
			paras = append(paras, p.InnerText())
		}
		if !reflect.DeepEqual(paras, want[i].paras) {
			t.Errorf("section %d paragraphs = %q, want %q", i+1, paras, want[i].paras)
		}
	}
}
