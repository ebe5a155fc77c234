package session

import (
	"fmt"
	"time"

	"pass-tui/internal/dispatch"
	"pass-tui/internal/storetree"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Complete folds a finished action back into the session. It is the only
// place results touch the tree, the clipboard or the selection.
func (m *Machine) Complete(res dispatch.Result) Effect {
	req := res.Request
	if _, ok := m.inflight[req.ID]; !ok {
		m.log.Warn("completion for unknown request", zap.Uint64("id", req.ID))
	}

	if res.Kind == dispatch.Locked && !m.terminating && !m.done {
		// Still in flight: the host unlocks, then reports through Unlocked.
		m.setStatus("Unlocking key for "+req.Target, LevelInfo)
		return Effect{Unlock: &req}
	}
	delete(m.inflight, req.ID)

	if m.settle != nil {
		if err := m.settle.Settle(m.tree, res); err != nil {
			if !errors.Is(err, storetree.ErrInconsistent) {
				m.log.Warn("settle failed", zap.Error(err))
			}
			m.resync()
		}
	}
	m.apply(res)
	m.finishIfIdle()
	return Effect{}
}

// Unlocked reports the outcome of the interactive unlock for req. On
// success the read is retried once.
func (m *Machine) Unlocked(req dispatch.Request, err error) Effect {
	if err != nil || m.terminating || m.done {
		delete(m.inflight, req.ID)
		if err != nil {
			m.setStatus(req.Target+": unlock failed", LevelError)
		}
		m.finishIfIdle()
		return Effect{}
	}
	req.Unlocked = true
	m.inflight[req.ID] = req
	return Effect{Dispatch: &req}
}

func (m *Machine) finishIfIdle() {
	if m.terminating && len(m.inflight) == 0 {
		m.done = true
	}
}

func (m *Machine) resync() {
	if m.rescan == nil {
		return
	}
	tree, err := m.rescan()
	if err != nil {
		m.log.Warn("rescan after failed patch", zap.Error(err))
		return
	}
	m.tree = tree
	m.log.Info("tree rebuilt from store")
}

func (m *Machine) apply(res dispatch.Result) {
	req := res.Request
	switch res.Kind {
	case dispatch.OK:
	case dispatch.EnvFailure:
		m.Fail(res.Message)
		return
	case dispatch.Expected:
		m.setStatus(res.Message, LevelInfo)
		return
	default:
		m.setStatus(res.Message, LevelError)
		return
	}

	switch req.Action {
	case dispatch.Show, dispatch.QR:
		m.preview = &Preview{Path: req.Target, Text: res.Payload, QR: req.Action == dispatch.QR}
		m.status = Status{}
		return
	case dispatch.Copy:
		m.copySecret(res.Message, res.Payload)
		return
	case dispatch.Insert:
		m.jumpTo(ref{Path: req.Target})
	case dispatch.Generate:
		m.jumpTo(ref{Path: req.Target})
		if m.opts.CopyGenerated && res.Payload != "" {
			m.copySecret(res.Message, res.Payload)
			return
		}
	case dispatch.Rename, dispatch.Move:
		m.rebase(req.Target, req.Input, req.TargetIsCategory)
		m.preview = nil
		if moved := (ref{Path: req.Input, Dir: req.TargetIsCategory}); m.sel == moved {
			m.jumpTo(moved)
		}
	case dispatch.Remove:
		m.preview = nil
	}
	m.reconcile()
	if m.mode == Searching {
		m.updateResults()
	}
	m.setStatus(res.Message, LevelInfo)
}

func (m *Machine) copySecret(msg, secret string) {
	if m.clip == nil {
		m.setStatus("Clipboard unavailable", LevelError)
		return
	}
	if _, err := m.clip.Copy(secret, m.opts.ClipTTL); err != nil {
		m.log.Warn("clipboard write failed", zap.Error(err))
		m.setStatus("Clipboard unavailable", LevelError)
		return
	}
	if m.opts.ClipTTL > 0 {
		msg = fmt.Sprintf("%s (clears in %s)", msg, m.opts.ClipTTL.Round(time.Second))
	}
	m.setStatus(msg, LevelInfo)
}
