// Package chrome implements browser.Session on a headless Chrome driven
// through the DevTools protocol.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/brogergvhs/noveld/internal/browser"
)

type Options struct {
	UserAgent   string
	Bin         string
	ShowBrowser bool
	UserDataDir string
	Logger      interface {
		Debugf(string, ...any)
	}
}

type Session struct {
	l       *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
	url     string
}

// Launch starts Chrome and opens one blank tab. The caller owns the
// session and must Close it.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(!opts.ShowBrowser).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("mute-audio").
		NoSandbox(true).
		Leakless(false)

	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}
	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err == nil {
			l = l.UserDataDir(opts.UserDataDir)
		}
	}

	bin := opts.Bin
	if bin == "" {
		if path, ok := launcher.LookPath(); ok {
			bin = path
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	if opts.Logger != nil {
		opts.Logger.Debugf("Launching browser (bin=%q, headless=%t)\n", bin, !opts.ShowBrowser)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	return &Session{l: l, browser: b, page: page}, nil
}

func (s *Session) Load(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("%w: %s: %v", browser.ErrNavigation, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %s: %v", browser.ErrNavigation, url, err)
	}

	s.url = url
	if info, err := p.Info(); err == nil && info.URL != "" {
		s.url = info.URL
	}

	return nil
}

func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := s.page.Context(tctx)

	var (
		el  *rod.Element
		err error
	)
	if browser.IsXPath(selector) {
		el, err = p.ElementX(browser.XPath(selector))
	} else {
		el, err = p.Element(selector)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s after %s", browser.ErrTimeout, selector, timeout)
		}
		return nil, err
	}

	return element{el: el.Context(ctx)}, nil
}

func (s *Session) Find(ctx context.Context, selector string) (browser.Element, error) {
	p := s.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	if browser.IsXPath(selector) {
		has, el, err = p.HasX(browser.XPath(selector))
	} else {
		has, el, err = p.Has(selector)
	}

	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}

	return element{el: el}, nil
}

func (s *Session) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	p := s.page.Context(ctx)

	var (
		els rod.Elements
		err error
	)
	if browser.IsXPath(selector) {
		els, err = p.ElementsX(browser.XPath(selector))
	} else {
		els, err = p.Elements(selector)
	}
	if err != nil {
		return nil, err
	}

	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = element{el: el}
	}

	return out, nil
}

func (s *Session) URL() string {
	return s.url
}

// Close shuts the browser down and removes its temporary profile.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.l != nil {
		s.l.Kill()
		s.l.Cleanup()
		s.l = nil
	}

	return err
}

type element struct {
	el *rod.Element
}

func (e element) Text() (string, error) {
	return e.el.Text()
}

func (e element) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}

	return *v, true, nil
}

func (e element) OuterHTML() (string, error) {
	return e.el.HTML()
}
