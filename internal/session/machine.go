// Package session is the interactive state machine: navigation, search,
// multi-step action prompts and the bookkeeping of in-flight pass calls.
//
// A Machine is not safe for concurrent use. Its host feeds it events,
// completions and timer callbacks one at a time from a single loop.
package session

import (
	"time"

	"pass-tui/internal/clipboard"
	"pass-tui/internal/dispatch"
	"pass-tui/internal/search"
	"pass-tui/internal/storetree"
	"pass-tui/internal/timer"

	"go.uber.org/zap"
)

type Options struct {
	ClipTTL   time.Duration
	StatusTTL time.Duration
	QuitGrace time.Duration
	// HistoryLimit bounds back-navigation history (0 = unbounded).
	HistoryLimit int
	DirsFirst    bool

	GenerateLength int
	NoSymbols      bool
	// CopyGenerated puts a freshly generated password on the clipboard.
	CopyGenerated bool
	Multiline     bool
}

func DefaultOptions() Options {
	return Options{
		ClipTTL:        clipboard.DefaultTTL,
		StatusTTL:      5 * time.Second,
		QuitGrace:      5 * time.Second,
		HistoryLimit:   100,
		DirsFirst:      true,
		GenerateLength: 25,
		CopyGenerated:  true,
	}
}

// Settler applies a finished Result to the tree and frees the structural
// slot. *dispatch.Dispatcher implements it.
type Settler interface {
	Settle(tree *storetree.Tree, res dispatch.Result) error
}

type Deps struct {
	Tree      *storetree.Tree
	Rescan    func() (*storetree.Tree, error)
	Clipboard *clipboard.Manager
	Search    search.Engine
	Settler   Settler
	Timer     timer.Service
	Log       *zap.Logger
}

// ref names a node. Entries and categories may share a path, so the kind is
// part of the reference.
type ref struct {
	Path string
	Dir  bool
}

type location struct {
	dir string
	sel ref
}

type Machine struct {
	opts   Options
	tree   *storetree.Tree
	rescan func() (*storetree.Tree, error)
	clip   *clipboard.Manager
	search search.Engine
	settle Settler
	timer  timer.Service
	log    *zap.Logger

	mode Mode

	// Browse position: the listed category, the selected row and its index
	// (kept to land on a neighbour when the selected row disappears).
	dir     string
	sel     ref
	cursor  int
	history []location

	query        string
	results      []search.Result
	resultCursor int

	pending    *pending
	input      string
	confirmYes bool

	preview   *Preview
	status    Status
	statusSeq uint64

	nextID      uint64
	inflight    map[uint64]dispatch.Request
	terminating bool
	done        bool
	fatal       string
}

func New(opts Options, deps Deps) *Machine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	t := deps.Timer
	if t == nil {
		t = timer.Real{}
	}
	tree := deps.Tree
	if tree == nil {
		tree, _ = storetree.FromListing(nil)
	}
	m := &Machine{
		opts:     opts,
		tree:     tree,
		rescan:   deps.Rescan,
		clip:     deps.Clipboard,
		search:   deps.Search,
		settle:   deps.Settler,
		timer:    t,
		log:      log,
		inflight: map[uint64]dispatch.Request{},
	}
	m.reconcile()
	return m
}

func (m *Machine) Mode() Mode            { return m.mode }
func (m *Machine) Tree() *storetree.Tree { return m.tree }
func (m *Machine) Done() bool            { return m.done }
func (m *Machine) Terminating() bool     { return m.terminating }
func (m *Machine) InFlight() int         { return len(m.inflight) }

func (m *Machine) Clipboard() clipboard.State {
	if m.clip == nil {
		return clipboard.State{}
	}
	return m.clip.State()
}

// Current is the selected row, or the listed category when it is empty.
func (m *Machine) Current() *storetree.Node {
	if n, ok := m.find(m.sel); ok {
		return n
	}
	n, _ := m.tree.FindCategory(m.dir)
	return n
}

// Fail records an environment failure (pass missing). Afterwards only Quit
// is accepted.
func (m *Machine) Fail(msg string) {
	m.fatal = msg
	m.log.Error("environment failure", zap.String("message", msg))
}

// Handle applies one input event. Every (mode, event) pair is defined;
// pairs without a transition leave the state untouched.
func (m *Machine) Handle(ev Event) Effect {
	if ev.Kind == Quit {
		m.quit()
		return Effect{}
	}
	if m.done || m.terminating || m.fatal != "" {
		return Effect{}
	}
	if ev.Kind == ClearClipboard {
		m.clearClipboard()
		return Effect{}
	}
	switch m.mode {
	case Browse:
		return m.handleBrowse(ev)
	case Searching:
		return m.handleSearch(ev)
	case Confirming:
		return m.handleConfirm(ev)
	case AwaitingInput:
		return m.handleInput(ev)
	}
	return Effect{}
}

func (m *Machine) setMode(next Mode) {
	if next == m.mode {
		return
	}
	m.log.Debug("mode", zap.Stringer("from", m.mode), zap.Stringer("to", next))
	m.mode = next
}

func (m *Machine) quit() {
	if err := m.clearClipboardState(); err != nil {
		m.log.Warn("clipboard clear on quit failed", zap.Error(err))
	}
	if m.terminating || len(m.inflight) == 0 {
		m.done = true
		return
	}
	m.terminating = true
	m.setStatus("Waiting for pass to finish (q again to force)", LevelInfo)
	grace := m.opts.QuitGrace
	m.log.Info("quit deferred", zap.Int("inflight", len(m.inflight)), zap.Duration("grace", grace))
	if grace <= 0 {
		m.done = true
		return
	}
	m.timer.After(grace, func() {
		if !m.done {
			m.log.Warn("quit grace expired", zap.Int("inflight", len(m.inflight)))
		}
		m.done = true
	})
}

func (m *Machine) clearClipboard() {
	if err := m.clearClipboardState(); err != nil {
		m.setStatus("Clipboard unavailable", LevelError)
		return
	}
	m.setStatus("Clipboard cleared", LevelInfo)
}

func (m *Machine) clearClipboardState() error {
	if m.clip == nil {
		return nil
	}
	return m.clip.Clear()
}

func (m *Machine) find(r ref) (*storetree.Node, bool) {
	if r.Path == "" && !r.Dir {
		return nil, false
	}
	if r.Dir {
		return m.tree.FindCategory(r.Path)
	}
	return m.tree.FindEntry(r.Path)
}

func refOf(n *storetree.Node) ref {
	if n == nil {
		return ref{}
	}
	return ref{Path: n.Path(), Dir: n.IsCategory()}
}
