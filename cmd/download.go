package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/brogergvhs/noveld/internal/book"
	"github.com/brogergvhs/noveld/internal/browser"
	"github.com/brogergvhs/noveld/internal/browser/chrome"
	"github.com/brogergvhs/noveld/internal/browser/static"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/downloader"
	"github.com/brogergvhs/noveld/internal/extract"
	"github.com/brogergvhs/noveld/internal/fb2"
	"github.com/brogergvhs/noveld/internal/ui"
	"github.com/brogergvhs/noveld/internal/util"

	"github.com/spf13/cobra"
)

var (
	// source
	flagURL     string
	flagSite    string
	flagMaxChap int

	// selectors
	flagTitleSel     string
	flagContentSel   string
	flagParagraphSel string
	flagNextSel      string

	// book
	flagOutput string
	flagTitle  string
	flagAuthor string
	flagLang   string

	// runtime
	flagDelay       float64
	flagWaitTimeout float64
	flagRetries     int
	flagPartialSave bool
	flagDryRun      bool

	// browser
	flagBackend     string
	flagShowBrowser bool
	flagBrowserBin  string

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download a novel chapter by chapter into one FB2 file. Uses the defaults from the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	f := downloadCmd.Flags()

	// source
	f.StringVar(&flagURL, "url", "", "URL of the first chapter to read")
	f.StringVar(&flagSite, "site", "", "site profile with the selectors to use (see `noveld sites`)")
	f.IntVar(&flagMaxChap, "max-chapters", 0, "stop after this many chapters (0 = follow the chain to the end)")

	// selectors
	f.StringVar(&flagTitleSel, "title-selector", "", "CSS or XPath selector of the chapter title")
	f.StringVar(&flagContentSel, "content-selector", "", "CSS or XPath selector of the chapter body")
	f.StringVar(&flagParagraphSel, "paragraph-selector", "", "CSS selector of paragraphs inside the body")
	f.StringVar(&flagNextSel, "next-selector", "", "CSS or XPath selector of the next chapter link")

	// book
	f.StringVar(&flagOutput, "output", "", "output .fb2 file or folder (default <title>.fb2)")
	f.StringVar(&flagTitle, "title", "", "book title")
	f.StringVar(&flagAuthor, "author", "", "book author")
	f.StringVar(&flagLang, "lang", "", "book language code (default ru)")

	// runtime
	f.Float64Var(&flagDelay, "delay", 2, "seconds to wait after loading each next chapter")
	f.Float64Var(&flagWaitTimeout, "wait-timeout", 20, "seconds to wait for the chapter title to appear")
	f.IntVar(&flagRetries, "retries", 0, "extra attempts for a chapter that failed to load")
	f.BoolVar(&flagPartialSave, "partial-save", false, "write the chapters collected so far when the run fails")
	f.BoolVar(&flagDryRun, "dry-run", false, "show the effective settings, don’t download")

	// browser
	f.StringVar(&flagBackend, "backend", "", "page backend: chrome (headless browser) or static (plain HTTP)")
	f.BoolVar(&flagShowBrowser, "show-browser", false, "show the Chrome window")
	f.StringVar(&flagBrowserBin, "browser-bin", "", "path to the Chrome/Chromium binary")

	// headers/auth
	f.StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	f.StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	f.StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	opts := config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		StartURL:     flagURL,
		OutputPath:   flagOutput,
		BookTitle:    flagTitle,
		BookAuthor:   flagAuthor,
		Lang:         flagLang,
		Site:         flagSite,
		Selectors: config.Selectors{
			Title:     flagTitleSel,
			Content:   flagContentSel,
			Paragraph: flagParagraphSel,
			Next:      flagNextSel,
		},
		Backend:     flagBackend,
		ShowBrowser: flagShowBrowser,
		BrowserBin:  flagBrowserBin,
		UserAgent:   flagUserAgent,
		Cookie:      flagCookie,
		CookieFile:  flagCookieFile,
		PartialSave: flagPartialSave,
	}

	if cmd.Flags().Changed("delay") {
		opts.Delay = &flagDelay
	}
	if cmd.Flags().Changed("wait-timeout") {
		opts.WaitTime = &flagWaitTimeout
	}
	if cmd.Flags().Changed("retries") {
		opts.Retries = &flagRetries
	}
	if cmd.Flags().Changed("max-chapters") {
		opts.MaxChapters = &flagMaxChap
	}

	cfg, usedPath, err := config.LoadMerged(config.DefaultStore(), opts)
	if err != nil {
		return err
	}

	logSvc := ui.NewLogger(cfg.Debug)
	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}

	fmt.Println("Full config:")
	cfg.Print(os.Stdout)
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if flagDryRun {
		fmt.Printf("Dry-run: would read from %s into %s using the %s backend.\n", cfg.StartURL, cfg.Output(), cfg.Backend)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := openSession(ctx, cfg, logSvc)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logSvc.Debugf("closing session: %v\n", err)
		}
	}()

	stop := util.SetupInterruptHandler(filepath.Dir(cfg.Output()), cancel, func() { _ = sess.Close() })
	defer stop()

	var progress *ui.ChapterProgress
	if !cfg.Debug {
		progress = ui.NewChapterProgress(os.Stdout, cfg.BookTitle)
	}

	run := &bookRun{cfg: cfg, log: logSvc, out: os.Stdout, now: time.Now}
	if progress != nil {
		run.progress = progress
		run.finish = progress.Finish
	}

	return run.Run(ctx, sess)
}

// openSession starts the configured page backend. The caller closes it.
func openSession(ctx context.Context, cfg *config.Config, log *ui.Logger) (browser.Session, error) {
	ua := util.PickUserAgent(cfg.UserAgent)

	switch cfg.Backend {
	case config.BackendStatic:
		rt := util.NewTransport(util.TransportOptions{
			UserAgent:   ua,
			Cookie:      cfg.Cookie,
			CookieFile:  cfg.CookieFile,
			DebugLogger: log,
		})
		f := static.NewCollyFetcher(ctx, static.CollyOptions{
			UserAgent: ua,
			Transport: rt,
			Timeout:   cfg.WaitTimeout(),
		})
		return static.New(f), nil

	default:
		sess, err := chrome.Launch(ctx, chrome.Options{
			UserAgent:   ua,
			Bin:         cfg.BrowserBin,
			ShowBrowser: cfg.ShowBrowser,
			Logger:      log,
		})
		if err != nil {
			return nil, fmt.Errorf("cannot start browser: %w", err)
		}
		return sess, nil
	}
}

// bookRun drives one download over an open session and writes the book.
type bookRun struct {
	cfg      *config.Config
	log      *ui.Logger
	out      io.Writer
	now      func() time.Time
	progress downloader.Progress
	finish   func(ok bool)
}

func (r *bookRun) Run(ctx context.Context, sess browser.Session) error {
	start := r.now()
	sel := r.cfg.SiteSelectors()

	ext := extract.New(extract.Selectors{
		Title:     sel.Title,
		Content:   sel.Content,
		Paragraph: sel.Paragraph,
	}, r.cfg.WaitTimeout())

	dl := downloader.New(sess, ext, downloader.Options{
		NextSelector: sel.Next,
		Delay:        r.cfg.ChapterDelay(),
		Retries:      r.cfg.Retries,
		MaxChapters:  r.cfg.MaxChapters,
		Logger:       r.log,
		Progress:     r.progress,
	})

	r.log.Infof("Reading %s\n", r.cfg.StartURL)
	res, runErr := dl.Run(ctx, r.cfg.StartURL)
	if r.finish != nil {
		r.finish(runErr == nil)
	}

	if runErr != nil {
		if !r.cfg.PartialSave || res == nil || len(res.Chapters) == 0 {
			return fmt.Errorf("download failed, nothing written: %w", runErr)
		}

		r.log.Warnf("Download stopped after %d chapters: %v\n", len(res.Chapters), runErr)
		if _, err := r.write(res.Chapters, start); err != nil {
			return errors.Join(runErr, err)
		}
		return fmt.Errorf("partial book written (%d chapters): %w", len(res.Chapters), runErr)
	}

	stats, err := r.write(res.Chapters, start)
	if err != nil {
		return err
	}

	stats.Elapsed = r.now().Sub(start)
	stats.Print(r.out)

	return nil
}

func (r *bookRun) write(chapters []book.Chapter, start time.Time) (ui.Stats, error) {
	data, err := fb2.Build(r.cfg.Metadata(start), chapters)
	if err != nil {
		return ui.Stats{}, err
	}

	path := r.cfg.Output()
	if err := util.WriteBook(path, data); err != nil {
		return ui.Stats{}, fmt.Errorf("cannot write %s: %w", path, err)
	}
	r.log.Debugf("Wrote %s (%s)\n", path, ui.Human(int64(len(data))))

	stats := ui.Stats{
		Chapters: len(chapters),
		Bytes:    int64(len(data)),
		Output:   path,
	}
	for _, ch := range chapters {
		stats.Paragraphs += len(ch.Paragraphs())
	}

	return stats, nil
}
