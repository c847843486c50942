package ui

import (
	"fmt"
	"io"
	"time"
)

type Stats struct {
	Chapters   int
	Paragraphs int
	Bytes      int64
	Elapsed    time.Duration
	Output     string
}

func (s Stats) Print(w io.Writer) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Download Summary:")
	_, _ = fmt.Fprintf(w, "Chapters:   %d\n", s.Chapters)
	_, _ = fmt.Fprintf(w, "Paragraphs: %d\n", s.Paragraphs)
	_, _ = fmt.Fprintf(w, "Data:       %s\n", Human(s.Bytes))
	_, _ = fmt.Fprintf(w, "Time:       %s\n", s.Elapsed.Round(time.Second))
	_, _ = fmt.Fprintf(w, "\nSuccessfully downloaded %d chapters into: %s\n", s.Chapters, s.Output)
}

func Human(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
