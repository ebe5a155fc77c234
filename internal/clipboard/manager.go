// Package clipboard owns the lifetime of a copied secret: at most one secret
// is resident at a time and it never outlives its ttl unless superseded.
package clipboard

import (
	"sync"
	"time"

	"pass-tui/internal/timer"

	"go.uber.org/zap"
)

// DefaultTTL matches pass's own PASSWORD_STORE_CLIP_TIME default.
const DefaultTTL = 45 * time.Second

// State is a snapshot for rendering.
type State struct {
	Held       bool
	Deadline   time.Time // zero when nothing is held or there is no expiry
	Generation uint64
}

// Remaining is the time left before the scheduled clear, rounded up to the
// second.
func (s State) Remaining(now time.Time) time.Duration {
	if !s.Held || s.Deadline.IsZero() {
		return 0
	}
	d := s.Deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return (d + time.Second - 1) / time.Second * time.Second
}

// Manager serialises clipboard writes. The mutex only protects the fields;
// correctness of scheduled clears comes from the generation counter.
type Manager struct {
	sink  Sink
	timer timer.Service
	log   *zap.Logger
	now   func() time.Time

	mu       sync.Mutex
	gen      uint64
	held     bool
	deadline time.Time
}

func NewManager(sink Sink, t timer.Service, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if t == nil {
		t = timer.Real{}
	}
	return &Manager{sink: sink, timer: t, log: log, now: time.Now}
}

// Copy writes secret and schedules a clear after ttl (ttl <= 0 keeps it until
// the next Copy or Clear). The returned generation identifies this copy.
func (m *Manager) Copy(secret string, ttl time.Duration) (uint64, error) {
	m.mu.Lock()
	if err := m.sink.Set(secret); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.gen++
	gen := m.gen
	m.held = true
	m.deadline = time.Time{}
	if ttl > 0 {
		m.deadline = m.now().Add(ttl)
	}
	m.mu.Unlock()

	m.log.Debug("clipboard set", zap.Uint64("generation", gen), zap.Duration("ttl", ttl))
	if ttl > 0 {
		m.timer.After(ttl, func() { m.ClearIfCurrent(gen) })
	}
	return gen, nil
}

// ClearIfCurrent clears the clipboard only when gen is still the live
// generation. A stale generation is a silent no-op. It reports whether the
// clipboard was cleared.
func (m *Manager) ClearIfCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || !m.held {
		m.log.Debug("stale clipboard clear ignored", zap.Uint64("generation", gen), zap.Uint64("live", m.gen))
		return false
	}
	m.deadline = time.Time{}
	if err := m.sink.Clear(); err != nil {
		// The secret may still be resident; keep reporting it as held.
		m.log.Warn("clipboard clear failed", zap.Uint64("generation", gen), zap.Error(err))
		return false
	}
	m.held = false
	m.log.Debug("clipboard expired", zap.Uint64("generation", gen))
	return true
}

// Clear empties the clipboard unconditionally and invalidates any pending
// scheduled clear. Nothing is written when no secret is held. A failed clear
// leaves the secret reported as held.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if !m.held {
		return nil
	}
	m.deadline = time.Time{}
	if err := m.sink.Clear(); err != nil {
		return err
	}
	m.held = false
	return nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Held: m.held, Deadline: m.deadline, Generation: m.gen}
}
