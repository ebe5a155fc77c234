// Package dispatch turns session intents into exactly one pass invocation
// each and classifies what came back.
package dispatch

type Action int

const (
	Show Action = iota
	QR
	Copy
	Edit
	Insert
	Generate
	Rename
	Move
	Remove
)

var actionNames = [...]string{
	Show:     "show",
	QR:       "qr",
	Copy:     "copy",
	Edit:     "edit",
	Insert:   "insert",
	Generate: "generate",
	Rename:   "rename",
	Move:     "move",
	Remove:   "remove",
}

// Actions lists every action in declaration order.
func Actions() []Action {
	return []Action{Show, QR, Copy, Edit, Insert, Generate, Rename, Move, Remove}
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Structural actions change the shape of the store. At most one may be in
// flight.
func (a Action) Structural() bool {
	switch a {
	case Insert, Generate, Rename, Move, Remove:
		return true
	}
	return false
}

// Interactive actions need the terminal: pass prompts or opens $EDITOR.
func (a Action) Interactive() bool {
	return a == Edit || a == Insert
}

// Destructive actions ask for confirmation first.
func (a Action) Destructive() bool {
	return a == Remove || a == Move
}

// ReadOnly actions decrypt and nothing else. They run under the read timeout
// and may be retried after an interactive unlock.
func (a Action) ReadOnly() bool {
	return a == Show || a == QR || a == Copy
}

// Kind classifies a Result.
type Kind int

const (
	OK Kind = iota
	// Expected failures are normal outcomes: entry not found, nothing changed.
	Expected
	// ToolFailure is a non-zero exit pass did not explain in a known way.
	ToolFailure
	// Locked means a read failed because GPG could not prompt for the key.
	Locked
	// EnvFailure means pass itself could not be run.
	EnvFailure
	// Rejected means another structural action is still in flight.
	Rejected
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case Expected:
		return "expected"
	case ToolFailure:
		return "tool-failure"
	case Locked:
		return "locked"
	case EnvFailure:
		return "env-failure"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}
