package tui

import (
	"pass-tui/internal/dispatch"
	"pass-tui/internal/session"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Quit     key.Binding
	ForceQ   key.Binding
	Help     key.Binding
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Descend  key.Binding
	Back     key.Binding
	Search   key.Binding
	Refresh  key.Binding
	ClearClp key.Binding

	Show     key.Binding
	QR       key.Binding
	Copy     key.Binding
	Edit     key.Binding
	Insert   key.Binding
	Generate key.Binding
	Rename   key.Binding
	Move     key.Binding
	Remove   key.Binding

	// Search/prompt mode: plain letters are text there, so actions move to ctrl.
	Accept     key.Binding
	Cancel     key.Binding
	Erase      key.Binding
	PrevResult key.Binding
	NextResult key.Binding
	SearchCopy key.Binding
	SearchShow key.Binding
	SearchEdit key.Binding
	Toggle     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQ:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Descend:  key.NewBinding(key.WithKeys("enter", "right", "l"), key.WithHelp("enter/l", "open")),
		Back:     key.NewBinding(key.WithKeys("left", "h", "backspace"), key.WithHelp("h", "back")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Refresh:  key.NewBinding(key.WithKeys("ctrl+r", "R"), key.WithHelp("R", "reload")),
		ClearClp: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear clipboard")),

		Show:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "show")),
		QR:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "qr code")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Insert:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Generate: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "generate")),
		Rename:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		Move:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move")),
		Remove:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),

		Accept:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "accept")),
		Cancel:     key.NewBinding(key.WithKeys("esc", "ctrl+g"), key.WithHelp("esc", "cancel")),
		Erase:      key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "erase")),
		PrevResult: key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "previous")),
		NextResult: key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "next")),
		SearchCopy: key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy match")),
		SearchShow: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "show match")),
		SearchEdit: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "edit match")),
		Toggle:     key.NewBinding(key.WithKeys("tab", "shift+tab", "left", "right"), key.WithHelp("tab", "focus")),
	}
}

// translate maps a key press to a session event for the given mode. ok is
// false for keys the mode does not use (and for the help toggle, which never
// reaches the session).
func (k keyMap) translate(mode session.Mode, msg tea.KeyMsg) (session.Event, bool) {
	if key.Matches(msg, k.ForceQ) {
		return session.Key(session.Quit), true
	}
	switch mode {
	case session.Browse:
		return k.browse(msg)
	case session.Searching:
		return k.search(msg)
	case session.AwaitingInput:
		return k.input(msg)
	case session.Confirming:
		return k.confirm(msg)
	}
	return session.Event{}, false
}

func (k keyMap) browse(msg tea.KeyMsg) (session.Event, bool) {
	actions := []struct {
		b key.Binding
		a dispatch.Action
	}{
		{k.Show, dispatch.Show},
		{k.QR, dispatch.QR},
		{k.Copy, dispatch.Copy},
		{k.Edit, dispatch.Edit},
		{k.Insert, dispatch.Insert},
		{k.Generate, dispatch.Generate},
		{k.Rename, dispatch.Rename},
		{k.Move, dispatch.Move},
		{k.Remove, dispatch.Remove},
	}
	for _, a := range actions {
		if key.Matches(msg, a.b) {
			return session.Act(a.a), true
		}
	}
	switch {
	case key.Matches(msg, k.Quit):
		return session.Key(session.Quit), true
	case key.Matches(msg, k.Up):
		return session.Key(session.Up), true
	case key.Matches(msg, k.Down):
		return session.Key(session.Down), true
	case key.Matches(msg, k.Top):
		return session.Key(session.Top), true
	case key.Matches(msg, k.Bottom):
		return session.Key(session.Bottom), true
	case key.Matches(msg, k.Descend):
		return session.Key(session.Descend), true
	case key.Matches(msg, k.Back):
		return session.Key(session.Back), true
	case key.Matches(msg, k.Search):
		return session.Key(session.EnterSearch), true
	case key.Matches(msg, k.Refresh):
		return session.Key(session.Refresh), true
	case key.Matches(msg, k.ClearClp):
		return session.Key(session.ClearClipboard), true
	case key.Matches(msg, k.Cancel):
		return session.Key(session.Cancel), true
	}
	return session.Event{}, false
}

func (k keyMap) search(msg tea.KeyMsg) (session.Event, bool) {
	switch {
	case key.Matches(msg, k.Accept):
		return session.Key(session.Confirm), true
	case key.Matches(msg, k.Cancel):
		return session.Key(session.Cancel), true
	case key.Matches(msg, k.Erase):
		return session.Key(session.Backspace), true
	case key.Matches(msg, k.PrevResult):
		return session.Key(session.Up), true
	case key.Matches(msg, k.NextResult):
		return session.Key(session.Down), true
	case key.Matches(msg, k.SearchCopy):
		return session.Act(dispatch.Copy), true
	case key.Matches(msg, k.SearchShow):
		return session.Act(dispatch.Show), true
	case key.Matches(msg, k.SearchEdit):
		return session.Act(dispatch.Edit), true
	}
	return textRune(msg)
}

func (k keyMap) input(msg tea.KeyMsg) (session.Event, bool) {
	switch {
	case key.Matches(msg, k.Accept):
		return session.Key(session.Confirm), true
	case key.Matches(msg, k.Cancel):
		return session.Key(session.Cancel), true
	case key.Matches(msg, k.Erase):
		return session.Key(session.Backspace), true
	}
	return textRune(msg)
}

func (k keyMap) confirm(msg tea.KeyMsg) (session.Event, bool) {
	switch {
	case key.Matches(msg, k.Accept):
		return session.Key(session.Confirm), true
	case key.Matches(msg, k.Cancel):
		return session.Key(session.Cancel), true
	case key.Matches(msg, k.Toggle):
		return session.Key(session.Toggle), true
	}
	if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
		return session.Rune(msg.Runes[0]), true
	}
	return session.Event{}, false
}

// textRune accepts a single typed character; pasted text arrives as one
// KeyRunes message and only its first rune would fit an Event, so it is
// handled by the caller.
func textRune(msg tea.KeyMsg) (session.Event, bool) {
	switch msg.Type {
	case tea.KeySpace:
		return session.Rune(' '), true
	case tea.KeyRunes:
		if len(msg.Runes) == 1 && !msg.Alt {
			return session.Rune(msg.Runes[0]), true
		}
	}
	return session.Event{}, false
}

// pasted returns the runes of a multi-rune paste in a text mode.
func pasted(mode session.Mode, msg tea.KeyMsg) []rune {
	if mode != session.Searching && mode != session.AwaitingInput {
		return nil
	}
	if msg.Type != tea.KeyRunes || len(msg.Runes) < 2 {
		return nil
	}
	return msg.Runes
}
