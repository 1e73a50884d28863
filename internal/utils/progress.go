package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// Progress is an mpb progress bar that is safe to advance from several goroutines.
// A disabled Progress accepts every call and draws nothing.
type Progress struct {
	container *mpb.Progress
	bar       *mpb.Bar
	out       io.Writer

	mu          sync.Mutex
	description string
}

var descLength = 24

// NewProgress creates a progress bar on stderr. It is only drawn when enabled
// and stderr is a terminal.
func NewProgress(total int, enabled bool) *Progress {
	return newProgress(os.Stderr, total, enabled && isTerminal())
}

func newProgress(out io.Writer, total int, enabled bool) *Progress {
	p := &Progress{out: out}
	if !enabled {
		return p
	}

	fmt.Fprintln(out)

	p.container = mpb.New(
		mpb.WithOutput(out),
		mpb.WithWidth(64),
		mpb.WithRefreshRate(100*time.Millisecond),
	)

	p.bar = p.container.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				return p.currentDescription()
			}, decor.WC{W: descLength, C: decor.DindentRight}),
			decor.Name("  "),
			decor.CountersNoUnit("%d/%d", decor.WC{C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	return p
}

// Enabled reports whether the bar is drawn
func (p *Progress) Enabled() bool {
	return p.bar != nil
}

// Increment advances the bar by one and shows description next to it
func (p *Progress) Increment(description string) {
	if p.bar == nil {
		return
	}

	p.mu.Lock()
	p.description = description
	p.mu.Unlock()

	p.bar.Increment()
}

// Finish completes the progress bar and shuts down the container
func (p *Progress) Finish() {
	if p.container == nil {
		return
	}

	// A batch cut short by an error leaves the bar incomplete; Abort keeps Wait from blocking.
	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.container.Wait()

	fmt.Fprintln(p.out)
}

func (p *Progress) currentDescription() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.description) > descLength {
		return ".." + p.description[len(p.description)-descLength+2:]
	}
	return p.description
}

// isTerminal checks if stderr is a terminal (TTY)
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
