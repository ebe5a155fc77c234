package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// timerFiredMsg carries a due timer callback into Update, so callbacks never
// race with key handling.
type timerFiredMsg struct {
	fire func()
}

// loopTimer is a timer.Service whose callbacks run on the bubbletea event
// loop. Callbacks due before the program is attached are dropped.
type loopTimer struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (t *loopTimer) After(d time.Duration, fire func()) {
	time.AfterFunc(d, func() {
		t.mu.Lock()
		send := t.send
		t.mu.Unlock()
		if send != nil {
			send(timerFiredMsg{fire: fire})
		}
	})
}

func (t *loopTimer) attach(send func(tea.Msg)) {
	t.mu.Lock()
	t.send = send
	t.mu.Unlock()
}
