package providers

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://ranobelib.me/ru/26690--omniscient-readers-viewpoint-novel/read/v1/c0?bid=17824", "ranobelib"},
		{"https://www.ranobelib.me/ru/x", "ranobelib"},
		{"https://unknown.example/c1", DefaultSite},
		{"::not a url", DefaultSite},
	}

	for _, tt := range tests {
		if got := Lookup(tt.url).Name; got != tt.want {
			t.Errorf("Lookup(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestGet(t *testing.T) {
	s, ok := Get(" RanobeLib ")
	if !ok || s.Title != ".lp_bu" {
		t.Errorf("Get() = %+v, %t", s, ok)
	}
	if _, ok := Get("nope"); ok {
		t.Error("unexpected site")
	}
}

func TestOverride(t *testing.T) {
	base, _ := Get(DefaultSite)
	got := base.Override(Site{Title: "h1", Next: "a.next"})

	if got.Title != "h1" || got.Next != "a.next" {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.Content != base.Content || got.Paragraph != base.Paragraph {
		t.Errorf("empty overrides must keep defaults: %+v", got)
	}
	if len(All()) == 0 {
		t.Error("registry is empty")
	}
}
