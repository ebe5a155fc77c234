// Package timer schedules one-shot callbacks. Production code in the TUI
// routes fired callbacks back through the event loop; tests use Fake.
package timer

import (
	"sort"
	"sync"
	"time"
)

// Service fires fire once after d. There is no cancel: callers invalidate
// stale callbacks with their own generation or sequence counters.
type Service interface {
	After(d time.Duration, fire func())
}

// Real runs fire on its own goroutine via time.AfterFunc.
type Real struct{}

func (Real) After(d time.Duration, fire func()) { time.AfterFunc(d, fire) }

// Func adapts a plain function to Service.
type Func func(d time.Duration, fire func())

func (f Func) After(d time.Duration, fire func()) { f(d, fire) }

// Fake is a manual clock. Callbacks only run from Advance, on the caller's
// goroutine.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []scheduled
}

type scheduled struct {
	at   time.Duration
	seq  int
	fire func()
}

func (f *Fake) After(d time.Duration, fire func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d < 0 {
		d = 0
	}
	f.seq++
	f.pending = append(f.pending, scheduled{at: f.now + d, seq: f.seq, fire: fire})
}

// Advance moves the clock forward and runs every callback that became due, in
// deadline order (scheduling order among equal deadlines). Callbacks may
// schedule further callbacks; those run too if they fall inside the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()

	for {
		f.mu.Lock()
		sort.SliceStable(f.pending, func(i, j int) bool {
			if f.pending[i].at != f.pending[j].at {
				return f.pending[i].at < f.pending[j].at
			}
			return f.pending[i].seq < f.pending[j].seq
		})
		if len(f.pending) == 0 || f.pending[0].at > target {
			f.now = target
			f.mu.Unlock()
			return
		}
		next := f.pending[0]
		f.pending = f.pending[1:]
		f.now = next.at
		f.mu.Unlock()

		next.fire()
	}
}

// Pending reports how many callbacks have not fired yet.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Elapsed is the total time advanced so far.
func (f *Fake) Elapsed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}
