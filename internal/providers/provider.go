package providers

import (
	"net/url"
	"sort"
	"strings"
)

// Site is the set of selectors that locate chapter parts on one reading
// site. Selectors starting with "/" or "xpath:" are XPath, the rest CSS.
type Site struct {
	Name      string
	Hosts     []string
	Title     string
	Content   string
	Paragraph string
	Next      string
}

const DefaultSite = "ranobelib"

var registry = map[string]Site{
	"ranobelib": {
		Name:      "ranobelib",
		Hosts:     []string{"ranobelib.me"},
		Title:     ".lp_bu",
		Content:   ".node-doc",
		Paragraph: "p.node-paragraph",
		Next:      "//a[contains(@class, 've_b6') and not(contains(@disabled, 'true'))]",
	},
}

// Get returns the site registered under name.
func Get(name string) (Site, bool) {
	s, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Lookup returns the site whose host matches rawURL, or the default site.
func Lookup(rawURL string) Site {
	u, err := url.Parse(rawURL)
	if err == nil {
		host := strings.ToLower(u.Hostname())
		for _, s := range All() {
			for _, h := range s.Hosts {
				if host == h || strings.HasSuffix(host, "."+h) {
					return s
				}
			}
		}
	}

	return registry[DefaultSite]
}

// All returns the registered sites sorted by name.
func All() []Site {
	out := make([]Site, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Override replaces every non-empty selector in o.
func (s Site) Override(o Site) Site {
	if o.Title != "" {
		s.Title = o.Title
	}
	if o.Content != "" {
		s.Content = o.Content
	}
	if o.Paragraph != "" {
		s.Paragraph = o.Paragraph
	}
	if o.Next != "" {
		s.Next = o.Next
	}

	return s
}
