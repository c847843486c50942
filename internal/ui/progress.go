package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ChapterProgress shows a running chapter count. The total is unknown
// until the last page has no next link.
type ChapterProgress struct {
	p     *mpb.Progress
	bar   *mpb.Bar
	title atomic.Value
	done  atomic.Bool
}

func NewChapterProgress(out io.Writer, label string) *ChapterProgress {
	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(out),
		mpb.WithRefreshRate(120*time.Millisecond),
	)

	cp := &ChapterProgress{p: p}
	cp.title.Store("")

	cp.bar = p.New(
		0,
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(label+"  "),
			decor.CurrentNoUnit("%d chapters", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				t, _ := cp.title.Load().(string)
				if t == "" {
					return ""
				}
				return " | " + truncate(t, 40)
			}),
		),
	)

	return cp
}

func (cp *ChapterProgress) ChapterDone(_ int, title string) {
	if cp.done.Load() {
		return
	}

	cp.title.Store(title)
	cp.bar.Increment()
}

// Finish completes the bar (or drops it when ok is false) and waits for the
// final render.
func (cp *ChapterProgress) Finish(ok bool) {
	if cp.done.Swap(true) {
		return
	}

	if ok {
		cp.bar.SetTotal(-1, true)
	} else {
		cp.bar.Abort(false)
	}
	cp.p.Wait()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return fmt.Sprintf("%s…", string(r[:n-1]))
}
