package session

import "pass-tui/internal/dispatch"

type Mode int

const (
	Browse Mode = iota
	Searching
	Confirming
	AwaitingInput
)

func (m Mode) String() string {
	switch m {
	case Browse:
		return "browse"
	case Searching:
		return "search"
	case Confirming:
		return "confirm"
	case AwaitingInput:
		return "input"
	default:
		return "unknown"
	}
}

// Modes lists every mode.
func Modes() []Mode { return []Mode{Browse, Searching, Confirming, AwaitingInput} }

type EventKind int

const (
	Up EventKind = iota
	Down
	Top
	Bottom
	Descend
	Back
	EnterSearch
	Char
	Backspace
	Confirm
	Cancel
	Toggle
	Request
	Refresh
	ClearClipboard
	Quit
)

// EventKinds lists every event kind.
func EventKinds() []EventKind {
	return []EventKind{
		Up, Down, Top, Bottom, Descend, Back, EnterSearch, Char, Backspace,
		Confirm, Cancel, Toggle, Request, Refresh, ClearClipboard, Quit,
	}
}

var eventNames = [...]string{
	Up:             "up",
	Down:           "down",
	Top:            "top",
	Bottom:         "bottom",
	Descend:        "descend",
	Back:           "back",
	EnterSearch:    "enter-search",
	Char:           "char",
	Backspace:      "backspace",
	Confirm:        "confirm",
	Cancel:         "cancel",
	Toggle:         "toggle",
	Request:        "request",
	Refresh:        "refresh",
	ClearClipboard: "clear-clipboard",
	Quit:           "quit",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is one discrete input. Rune is set for Char, Action for Request.
type Event struct {
	Kind   EventKind
	Rune   rune
	Action dispatch.Action
}

func Key(k EventKind) Event       { return Event{Kind: k} }
func Rune(r rune) Event           { return Event{Kind: Char, Rune: r} }
func Act(a dispatch.Action) Event { return Event{Kind: Request, Action: a} }

// Effect is work the machine asks its host to perform outside the event
// loop. At most one field is set.
type Effect struct {
	// Dispatch is a request to run through the dispatcher.
	Dispatch *dispatch.Request
	// Unlock asks the host to run the interactive unlock for a read that came
	// back Locked, then report through Machine.Unlocked.
	Unlock *dispatch.Request
}

func (e Effect) None() bool { return e.Dispatch == nil && e.Unlock == nil }
