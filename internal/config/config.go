package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brogergvhs/noveld/internal/book"
	"github.com/brogergvhs/noveld/internal/providers"
)

const (
	BackendChrome = "chrome"
	BackendStatic = "static"
)

type Selectors struct {
	Title     string `yaml:"title,omitempty"`
	Content   string `yaml:"content,omitempty"`
	Paragraph string `yaml:"paragraph,omitempty"`
	Next      string `yaml:"next,omitempty"`
}

type Config struct {
	StartURL   string `yaml:"start_url"`
	OutputPath string `yaml:"output_path"`

	ChapterDelaySeconds       float64 `yaml:"chapter_delay_seconds"`
	ElementWaitTimeoutSeconds float64 `yaml:"element_wait_timeout_seconds"`

	BookTitle  string `yaml:"book_title"`
	BookAuthor string `yaml:"book_author"`
	Lang       string `yaml:"lang"`

	Site      string    `yaml:"site"`
	Selectors Selectors `yaml:"selectors"`

	Backend     string `yaml:"backend"`
	ShowBrowser bool   `yaml:"show_browser"`
	BrowserBin  string `yaml:"browser_bin"`
	UserAgent   string `yaml:"user_agent"`
	Cookie      string `yaml:"cookie"`
	CookieFile  string `yaml:"cookie_file"`

	Retries     int  `yaml:"retries"`
	PartialSave bool `yaml:"partial_save"`
	MaxChapters int  `yaml:"max_chapters"`
	Debug       bool `yaml:"debug"`
}

// Options are the CLI values merged over the loaded file. Zero values mean
// "not given".
type Options struct {
	IgnoreConfig bool
	Debug        bool

	StartURL   string
	OutputPath string
	Delay      *float64
	WaitTime   *float64

	BookTitle  string
	BookAuthor string
	Lang       string

	Site      string
	Selectors Selectors

	Backend     string
	ShowBrowser bool
	BrowserBin  string
	UserAgent   string
	Cookie      string
	CookieFile  string

	Retries     *int
	PartialSave bool
	MaxChapters *int
}

func DefaultConfig() *Config {
	return &Config{
		ChapterDelaySeconds:       2,
		ElementWaitTimeoutSeconds: 20,
		Lang:                      book.DefaultLang,
		Site:                      providers.DefaultSite,
		Backend:                   BackendChrome,
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadMerged loads the active profile of st (or defaults), applies opts and
// normalizes the result. The returned string describes where the config
// came from.
func LoadMerged(st *Store, opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := st.ActiveConfigPath()
	if errors.Is(err, ErrNoConfig) || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `noveld config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setString(&c.StartURL, o.StartURL)
	setString(&c.OutputPath, o.OutputPath)
	setString(&c.BookTitle, o.BookTitle)
	setString(&c.BookAuthor, o.BookAuthor)
	setString(&c.Lang, o.Lang)
	setString(&c.Site, o.Site)
	setString(&c.Selectors.Title, o.Selectors.Title)
	setString(&c.Selectors.Content, o.Selectors.Content)
	setString(&c.Selectors.Paragraph, o.Selectors.Paragraph)
	setString(&c.Selectors.Next, o.Selectors.Next)
	setString(&c.Backend, o.Backend)
	setString(&c.BrowserBin, o.BrowserBin)
	setString(&c.UserAgent, o.UserAgent)
	setString(&c.Cookie, o.Cookie)
	setString(&c.CookieFile, o.CookieFile)

	if o.Delay != nil {
		c.ChapterDelaySeconds = *o.Delay
	}
	if o.WaitTime != nil {
		c.ElementWaitTimeoutSeconds = *o.WaitTime
	}
	if o.Retries != nil {
		c.Retries = *o.Retries
	}
	if o.MaxChapters != nil {
		c.MaxChapters = *o.MaxChapters
	}
	if o.ShowBrowser {
		c.ShowBrowser = true
	}
	if o.PartialSave {
		c.PartialSave = true
	}
	if o.Debug {
		c.Debug = true
	}
}

func normalizeDefaults(c *Config) {
	if c.ChapterDelaySeconds < 0 {
		c.ChapterDelaySeconds = 0
	}
	if c.ElementWaitTimeoutSeconds <= 0 {
		c.ElementWaitTimeoutSeconds = 20
	}
	if c.Lang == "" {
		c.Lang = book.DefaultLang
	}
	if c.Site == "" {
		c.Site = providers.DefaultSite
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendChrome
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.MaxChapters < 0 {
		c.MaxChapters = 0
	}
}

// Validate checks the options a download cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StartURL) == "" {
		return errors.New("missing --url and no start_url in config")
	}
	if strings.TrimSpace(c.BookTitle) == "" && c.OutputPath == "" {
		return errors.New("missing --title and no book_title in config")
	}
	switch c.Backend {
	case BackendChrome, BackendStatic:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendChrome, BackendStatic)
	}
	if c.Site != "" {
		if _, ok := providers.Get(c.Site); !ok {
			return fmt.Errorf("unknown site %q (see `noveld sites`)", c.Site)
		}
	}

	return nil
}

func (c *Config) ChapterDelay() time.Duration {
	return time.Duration(c.ChapterDelaySeconds * float64(time.Second))
}

func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.ElementWaitTimeoutSeconds * float64(time.Second))
}

// SiteSelectors returns the selectors of the configured site with the
// per-run overrides applied. An explicit site wins over host detection
// only when it differs from the default.
func (c *Config) SiteSelectors() providers.Site {
	site := providers.Lookup(c.StartURL)
	if c.Site != "" && c.Site != providers.DefaultSite {
		if s, ok := providers.Get(c.Site); ok {
			site = s
		}
	}

	return site.Override(providers.Site{
		Title:     c.Selectors.Title,
		Content:   c.Selectors.Content,
		Paragraph: c.Selectors.Paragraph,
		Next:      c.Selectors.Next,
	})
}

func (c *Config) Metadata(now time.Time) book.Metadata {
	return book.Metadata{
		Title:  c.BookTitle,
		Author: c.BookAuthor,
		Lang:   c.Lang,
		Date:   now,
	}
}

// Output returns the book path: output_path if set, otherwise the file name
// derived from the title in the working directory.
func (c *Config) Output() string {
	if c.OutputPath != "" {
		if strings.HasSuffix(c.OutputPath, string(os.PathSeparator)) {
			return filepath.Join(c.OutputPath, c.Metadata(time.Time{}).FileName())
		}
		if fi, err := os.Stat(c.OutputPath); err == nil && fi.IsDir() {
			return filepath.Join(c.OutputPath, c.Metadata(time.Time{}).FileName())
		}
		return c.OutputPath
	}

	return c.Metadata(time.Time{}).FileName()
}

func (c *Config) Print(w io.Writer) {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	if c.StartURL != "" {
		p(" -start_url: %s\n", c.StartURL)
	}
	p(" -output: %s\n", c.Output())
	if c.BookTitle != "" {
		p(" -book_title: %s\n", c.BookTitle)
	}
	if c.BookAuthor != "" {
		p(" -book_author: %s\n", c.BookAuthor)
	}
	p(" -lang: %s\n", c.Lang)
	p(" -site: %s\n", c.Site)
	p(" -backend: %s\n", c.Backend)
	p(" -chapter_delay_seconds: %g\n", c.ChapterDelaySeconds)
	p(" -element_wait_timeout_seconds: %g\n", c.ElementWaitTimeoutSeconds)

	sel := c.SiteSelectors()
	p(" -selectors: title=%q content=%q paragraph=%q next=%q\n", sel.Title, sel.Content, sel.Paragraph, sel.Next)

	if c.ShowBrowser {
		p(" -show_browser: %t\n", c.ShowBrowser)
	}
	if c.BrowserBin != "" {
		p(" -browser_bin: %s\n", c.BrowserBin)
	}
	if c.UserAgent != "" {
		p(" -user_agent: %s\n", c.UserAgent)
	}
	if c.CookieFile != "" {
		p(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.Retries > 0 {
		p(" -retries: %d\n", c.Retries)
	}
	if c.PartialSave {
		p(" -partial_save: %t\n", c.PartialSave)
	}
	if c.MaxChapters > 0 {
		p(" -max_chapters: %d\n", c.MaxChapters)
	}
	if c.Debug {
		p(" -debug: %t\n", c.Debug)
	}
}
