package tui

import (
	"context"
	"time"

	"pass-tui/internal/dispatch"
	"pass-tui/internal/gitstatus"
	"pass-tui/internal/session"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.gitStatusCmd(m.gitSeq))
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg)...)

	case actionDoneMsg:
		cmds = append(cmds, m.complete(msg.res)...)

	case execDoneMsg:
		cmds = append(cmds, m.complete(m.disp.Finish(msg.req, msg.err))...)

	case unlockDoneMsg:
		if msg.err != nil {
			m.log.Info("unlock failed", zap.String("path", msg.req.Target), zap.Error(msg.err))
		}
		cmds = append(cmds, m.run(m.sm.Unlocked(msg.req, msg.err)))

	case timerFiredMsg:
		msg.fire()

	case clipTickMsg:
		m.clipTicking = false

	case gitStatusMsg:
		if msg.seq == m.gitSeq {
			m.git = msg.st
		}
		return m, nil
	}

	if m.sm.Done() {
		return m, tea.Quit
	}
	cmds = append(cmds, m.scheduleClipTick())
	return m, tea.Batch(cmds...)
}

func (m *appModel) handleKey(msg tea.KeyMsg) []tea.Cmd {
	mode := m.sm.Mode()
	if m.showHelp {
		// Any key closes the overlay; only quit also goes through.
		m.showHelp = false
		if !key.Matches(msg, m.keys.ForceQ) {
			return nil
		}
	} else if mode == session.Browse && key.Matches(msg, m.keys.Help) {
		m.showHelp = true
		return nil
	}

	if runes := pasted(mode, msg); runes != nil {
		var cmds []tea.Cmd
		for _, r := range runes {
			cmds = append(cmds, m.run(m.sm.Handle(session.Rune(r))))
		}
		return cmds
	}
	ev, ok := m.keys.translate(mode, msg)
	if !ok {
		return nil
	}
	return []tea.Cmd{m.run(m.sm.Handle(ev))}
}

func (m *appModel) complete(res dispatch.Result) []tea.Cmd {
	cmds := []tea.Cmd{m.run(m.sm.Complete(res))}
	if res.Request.Action.Structural() && res.Kind != dispatch.Rejected {
		cmds = append(cmds, m.refreshGitStatus())
	}
	return cmds
}

// run turns a session effect into a command. Plain pass calls run on a
// goroutine; edit/insert and the key unlock take over the terminal.
func (m *appModel) run(eff session.Effect) tea.Cmd {
	switch {
	case eff.Dispatch != nil:
		req := *eff.Dispatch
		if req.Action.Interactive() {
			cmd, res, ok := m.disp.Command(req)
			if !ok {
				return func() tea.Msg { return actionDoneMsg{res: res} }
			}
			return tea.ExecProcess(cmd, func(err error) tea.Msg {
				return execDoneMsg{req: req, err: err}
			})
		}
		disp := m.disp
		return func() tea.Msg {
			return actionDoneMsg{res: disp.Dispatch(context.Background(), req)}
		}

	case eff.Unlock != nil:
		req := *eff.Unlock
		cmd, err := m.disp.UnlockCommand(req)
		if err != nil {
			return func() tea.Msg { return unlockDoneMsg{req: req, err: err} }
		}
		return tea.ExecProcess(cmd, func(err error) tea.Msg {
			return unlockDoneMsg{req: req, err: err}
		})
	}
	return nil
}

func (m *appModel) scheduleClipTick() tea.Cmd {
	if st := m.sm.Clipboard(); m.clipTicking || !st.Held || st.Deadline.IsZero() {
		return nil
	}
	m.clipTicking = true
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return clipTickMsg{} })
}

func (m *appModel) refreshGitStatus() tea.Cmd {
	if !m.gitEnabled {
		return nil
	}
	m.gitSeq++
	return m.gitStatusCmd(m.gitSeq)
}

func (m appModel) gitStatusCmd(seq uint64) tea.Cmd {
	if !m.gitEnabled {
		return nil
	}
	dir := m.store
	log := m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), gitStatusTimeout)
		defer cancel()
		st, err := gitstatus.Get(ctx, dir)
		if err != nil {
			log.Debug("git status", zap.Error(err))
		}
		return gitStatusMsg{seq: seq, st: st}
	}
}
