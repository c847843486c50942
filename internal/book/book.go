package book

import (
	"strings"
	"time"
)

// Chapter is one page worth of title and body text. Content holds the
// extracted paragraphs joined by a blank line.
type Chapter struct {
	Title   string
	Content string
}

// Paragraphs re-splits the content on line breaks and drops blank lines.
func (c Chapter) Paragraphs() []string {
	out := []string{}
	for line := range strings.SplitSeq(c.Content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}

	return out
}

type Metadata struct {
	Title  string
	Author string
	Lang   string
	Date   time.Time
}

const DefaultLang = "ru"

func (m Metadata) FileName() string {
	repl := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
	)

	name := repl.Replace(strings.TrimSpace(m.Title))
	if name == "" {
		name = "book"
	}

	return name + ".fb2"
}
