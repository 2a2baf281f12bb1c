// Package progress renders a single-line terminal progress indicator
// shared by the concurrent workers of one sync phase.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	clearLine = "\x1b[2K\r"
	errPrefix = "\x1b[31;1mERROR:\x1b[0m"
)

// Tracker holds the counters for one phase of work. All mutations and the
// re-render they trigger happen under a single lock, so the progress line
// cannot be corrupted by concurrent workers. started reflects the number
// of items currently in flight, not cumulative starts: FinishedOne both
// increments done and decrements started.
type Tracker struct {
	mu      sync.Mutex
	out     io.Writer
	label   string
	total   int
	started int
	done    int
}

// NewTracker creates a tracker writing to out, or stdout when out is nil.
func NewTracker(label string, out io.Writer) *Tracker {
	if out == nil {
		out = os.Stdout
	}
	return &Tracker{out: out, label: label}
}

// Reset clears the counters and switches to a new phase label.
func (t *Tracker) Reset(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.label = label
	t.total = 0
	t.started = 0
	t.done = 0
}

// AddToTotal grows the expected item count for the current phase.
func (t *Tracker) AddToTotal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total += n
	t.render(true)
}

// AddOneStarted marks one item as in flight.
func (t *Tracker) AddOneStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.started++
	t.render(true)
}

// FinishedOne marks one in-flight item as done.
func (t *Tracker) FinishedOne() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done++
	t.started--
	t.render(true)
}

// Counts returns the current counters.
func (t *Tracker) Counts() (started, done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started, t.done, t.total
}

// Logf clears the progress line, prints a message, and redraws the
// progress line underneath it.
func (t *Tracker) Logf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, clearLine+format+"\n", args...)
	t.render(false)
}

// Errorf is Logf with an error prefix.
func (t *Tracker) Errorf(format string, args ...any) {
	t.Logf(errPrefix+" "+format, args...)
}

// render must be called with the lock held. clear controls whether the
// current line is wiped first; after Logf the cursor is already on a
// fresh line.
func (t *Tracker) render(clear bool) {
	if t.done < t.total {
		prefix := ""
		if clear {
			prefix = clearLine
		}
		fmt.Fprintf(t.out, "%s%s \x1b[32;1m%d\x1b[1m/\x1b[32m%d\x1b[0m (%d in progress)",
			prefix, t.label, t.done, t.total, t.started)
	} else {
		fmt.Fprintf(t.out, clearLine+"✨ Finished\n")
	}
}
