package tui

import (
	"time"

	"pass-tui/internal/clipboard"
	"pass-tui/internal/dispatch"
	"pass-tui/internal/gitstatus"
	"pass-tui/internal/search"
	"pass-tui/internal/session"
	"pass-tui/internal/storetree"
	"pass-tui/internal/timer"

	"github.com/charmbracelet/bubbles/spinner"
	"go.uber.org/zap"
)

// Options is everything the interactive browser needs from the command line
// layer. Scan is called once at start and again whenever the tree must be
// rebuilt.
type Options struct {
	StoreDir   string
	Scan       func() (*storetree.Tree, error)
	Dispatcher *dispatch.Dispatcher
	Clipboard  clipboard.Sink
	Search     search.Engine
	Session    session.Options
	// ToolErr, when set, is shown as a blocking message; only quit works.
	ToolErr error
	// Git enables the header badge for stores kept in git.
	Git        bool
	Background string
	Log        *zap.Logger
}

type appModel struct {
	store string
	sm    *session.Machine
	disp  *dispatch.Dispatcher
	log   *zap.Logger
	keys  keyMap
	spin  spinner.Model

	width  int
	height int

	showHelp bool

	// clipTicking is set while a once-a-second repaint of the clipboard
	// countdown is scheduled.
	clipTicking bool

	gitEnabled bool
	git        gitstatus.Status
	// gitSeq drops results of superseded git queries.
	gitSeq uint64
}

type actionDoneMsg struct {
	res dispatch.Result
}

// execDoneMsg reports an interactive pass call that ran on the terminal.
type execDoneMsg struct {
	req dispatch.Request
	err error
}

type unlockDoneMsg struct {
	req dispatch.Request
	err error
}

type clipTickMsg struct{}

type gitStatusMsg struct {
	seq uint64
	st  gitstatus.Status
}

func newAppModel(opts Options, tree *storetree.Tree, t timer.Service) appModel {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	var clip *clipboard.Manager
	if opts.Clipboard != nil {
		clip = clipboard.NewManager(opts.Clipboard, t, log.Named("clipboard"))
	}
	sm := session.New(opts.Session, session.Deps{
		Tree:      tree,
		Rescan:    opts.Scan,
		Clipboard: clip,
		Search:    opts.Search,
		Settler:   opts.Dispatcher,
		Timer:     t,
		Log:       log.Named("session"),
	})
	if opts.ToolErr != nil {
		sm.Fail(opts.ToolErr.Error())
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styleAccent()

	return appModel{
		store:      opts.StoreDir,
		sm:         sm,
		disp:       opts.Dispatcher,
		log:        log,
		keys:       defaultKeyMap(),
		spin:       sp,
		gitEnabled: opts.Git,
	}
}

const gitStatusTimeout = 2 * time.Second
