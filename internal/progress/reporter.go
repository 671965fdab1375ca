// Package progress renders a spinner and completed/total line while the
// enrichment pool runs. Purely observational: it polls a counter and never
// touches pipeline state.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

const defaultInterval = 100 * time.Millisecond

// Reporter owns the interactive progress line on the error stream. It is a
// no-op when the stream is not a terminal.
type Reporter struct {
	out      io.Writer
	enabled  bool
	width    int
	interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// New returns a reporter for f, enabled only when f is an interactive
// terminal.
func New(f *os.File) *Reporter {
	enabled := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	width := 80
	if enabled {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	return newReporter(f, enabled, width)
}

func newReporter(out io.Writer, enabled bool, width int) *Reporter {
	return &Reporter{
		out:      out,
		enabled:  enabled,
		width:    width,
		interval: defaultInterval,
		done:     make(chan struct{}),
	}
}

// Start begins polling current against total at a fixed interval. The
// callback is read from the reporter's goroutine, so it must be safe to call
// concurrently (an atomic counter load).
func (r *Reporter) Start(total int64, current func() int64) {
	if !r.enabled {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		frame := 0
		for {
			select {
			case <-r.done:
				r.clearLine()
				return
			case <-ticker.C:
				r.render(spinnerFrames[frame%len(spinnerFrames)], current(), total)
				frame++
			}
		}
	}()
}

// Stop terminates the render loop and waits for it, so the caller can write
// to the terminal without racing the cursor. Safe to call more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.done)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Reporter) render(frame string, current, total int64) {
	line := fmt.Sprintf("%s Scanning applications... %d/%d", frame, current, total)
	if len(line) > r.width-1 && r.width > 4 {
		line = line[:r.width-1]
	}
	fmt.Fprintf(r.out, "\r%s", line)
}

func (r *Reporter) clearLine() {
	width := r.width
	if width > 120 {
		width = 120
	}
	if width < 2 {
		width = 2
	}
	fmt.Fprintf(r.out, "\r%s\r", strings.Repeat(" ", width-1))
}
