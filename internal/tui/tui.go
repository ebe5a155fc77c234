// Package tui is the terminal front end: it turns key presses into session
// events, runs the effects the session asks for, and draws its snapshots.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func Run(opts Options) error {
	if opts.Scan == nil || opts.Dispatcher == nil {
		return errors.New("tui: scan and dispatcher are required")
	}
	tree, err := opts.Scan()
	if err != nil {
		return err
	}

	applyColorProfilePreference()
	applyBackgroundPreference(opts.Background)

	lt := &loopTimer{}
	m := newAppModel(opts, tree, lt)
	p := tea.NewProgram(m, tea.WithAltScreen())
	lt.attach(p.Send)

	final, err := p.Run()
	if err != nil {
		return errors.Wrap(err, "run terminal ui")
	}
	if fm, ok := final.(appModel); ok && fm.sm.Terminating() && fm.sm.InFlight() > 0 {
		fm.log.Warn("exited with pass calls still running", zap.Int("inflight", fm.sm.InFlight()))
	}
	return nil
}
