package dispatch

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"pass-tui/internal/passcli"
	"pass-tui/internal/storetree"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Runner is what the dispatcher needs from pass: captured invocations and
// terminal-attached commands.
type Runner interface {
	passcli.Invoker
	Command(call passcli.Call) *exec.Cmd
}

type Options struct {
	// ReadTimeout bounds Show/QR/Copy. Structural and interactive actions are
	// never killed mid-write.
	ReadTimeout time.Duration
	Log         *zap.Logger
}

type Dispatcher struct {
	run         Runner
	readTimeout time.Duration
	log         *zap.Logger

	mu   sync.Mutex
	busy bool
	slot uint64 // request id holding the structural slot
}

func New(run Runner, opts Options) *Dispatcher {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{run: run, readTimeout: opts.ReadTimeout, log: log}
}

// Busy reports whether a structural action holds the slot.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

func (d *Dispatcher) claim(req Request) bool {
	if !req.Action.Structural() {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy && d.slot != req.ID {
		return false
	}
	d.busy = true
	d.slot = req.ID
	return true
}

func (d *Dispatcher) release(req Request) {
	if !req.Action.Structural() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy && d.slot == req.ID {
		d.busy = false
		d.slot = 0
	}
}

func rejected(req Request) Result {
	return Result{
		Request: req,
		Kind:    Rejected,
		Message: ErrBusy.Error(),
		Err:     ErrBusy,
	}
}

func invalid(req Request, err error) Result {
	return Result{Request: req, Kind: Expected, Message: err.Error(), Err: err}
}

// Dispatch runs a non-interactive request to completion. It is safe to call
// from a goroutine; Settle must then be called on the event loop with the
// returned Result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	c, err := call(req)
	if err != nil {
		return invalid(req, err)
	}
	if req.Action.Interactive() {
		return invalid(req, errors.Wrapf(errInvalid, "%s needs the terminal", req.Action))
	}
	if !d.claim(req) {
		d.log.Info("structural action rejected", zap.String("action", req.Action.String()), zap.Uint64("id", req.ID))
		return rejected(req)
	}

	if req.Action.ReadOnly() && d.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.readTimeout)
		defer cancel()
	}
	if !req.Action.ReadOnly() {
		// Cancelling the session must not interrupt a write.
		ctx = context.WithoutCancel(ctx)
	}

	out, err := d.run.Invoke(ctx, c)
	res := d.fromError(req, c, out, err)
	d.log.Info("action finished",
		zap.String("action", req.Action.String()),
		zap.String("path", req.Target),
		zap.String("result", res.Kind.String()),
		zap.Int("exit", res.ExitCode),
		zap.Duration("took", res.Duration),
	)
	return res
}

func (d *Dispatcher) fromError(req Request, c passcli.Call, out passcli.Output, err error) Result {
	if err == nil {
		return classify(req, c, out)
	}
	res := Result{Request: req, Err: err, Duration: out.Duration}
	var inv *passcli.InvocationError
	switch {
	case errors.As(err, &inv):
		res.Kind = EnvFailure
		res.Message = fmt.Sprintf("%s could not be run; is pass installed?", inv.Bin)
	case errors.Is(err, context.DeadlineExceeded):
		res.Kind = ToolFailure
		res.Message = fmt.Sprintf("pass %s timed out", c.Subcommand)
	case errors.Is(err, context.Canceled):
		res.Kind = ToolFailure
		res.Message = fmt.Sprintf("pass %s cancelled", c.Subcommand)
	default:
		res.Kind = ToolFailure
		res.Message = fmt.Sprintf("pass %s failed", c.Subcommand)
	}
	return res
}

// Command prepares an interactive request (Edit, Insert) for the terminal.
// Structural requests claim the slot here; the caller reports the process
// outcome through Finish and then Settle.
func (d *Dispatcher) Command(req Request) (*exec.Cmd, Result, bool) {
	c, err := call(req)
	if err != nil {
		return nil, invalid(req, err), false
	}
	if !req.Action.Interactive() {
		return nil, invalid(req, errors.Wrapf(errInvalid, "%s does not use the terminal", req.Action)), false
	}
	if !d.claim(req) {
		return nil, rejected(req), false
	}
	return d.run.Command(c), Result{}, true
}

// UnlockCommand re-runs the read on the terminal with its output discarded so
// gpg's pinentry can ask for the passphrase. The original request is retried
// afterwards with Unlocked set.
func (d *Dispatcher) UnlockCommand(req Request) (*exec.Cmd, error) {
	c, err := call(req)
	if err != nil {
		return nil, err
	}
	if !req.Action.ReadOnly() {
		return nil, errors.Wrapf(errInvalid, "%s cannot be unlocked", req.Action)
	}
	cmd := d.run.Command(c)
	cmd.Stdout = io.Discard
	return cmd, nil
}

// Finish classifies the exit of an interactive command. Its stderr went to
// the terminal, so only the exit status is known.
func (d *Dispatcher) Finish(req Request, runErr error) Result {
	res := Result{Request: req}
	if runErr == nil {
		res.Kind = OK
		res.Message = successMessage(req)
		d.logFinish(res)
		return res
	}
	res.Err = runErr
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		res.Kind = EnvFailure
		res.Message = "pass could not be run; is pass installed?"
		d.logFinish(res)
		return res
	}
	res.ExitCode = exitErr.ExitCode()
	switch {
	case req.Action == Edit && res.ExitCode == 1:
		res.Kind = Expected
		res.Message = fmt.Sprintf("%s: no changes", req.Target)
	default:
		c, _ := call(req)
		res.Kind = ToolFailure
		res.Message = fmt.Sprintf("pass %s failed (exit %d)", c.Subcommand, res.ExitCode)
	}
	d.logFinish(res)
	return res
}

func (d *Dispatcher) logFinish(res Result) {
	d.log.Info("interactive action finished",
		zap.String("action", res.Request.Action.String()),
		zap.String("path", res.Request.Target),
		zap.String("result", res.Kind.String()),
		zap.Int("exit", res.ExitCode),
	)
}

// Settle runs on the event loop once per Result: it releases the structural
// slot and patches tree to mirror what pass did. storetree.ErrInconsistent
// means the caller must rebuild the tree from a fresh scan.
func (d *Dispatcher) Settle(tree *storetree.Tree, res Result) error {
	if res.Kind == Rejected {
		return nil
	}
	req := res.Request
	d.release(req)
	if res.Kind != OK || tree == nil {
		return nil
	}

	var err error
	switch req.Action {
	case Insert:
		err = tree.ApplyInsert(req.Target)
	case Generate:
		if req.InPlace {
			if _, ok := tree.FindEntry(req.Target); !ok {
				err = tree.ApplyInsert(req.Target)
			}
		} else {
			err = tree.ApplyInsert(req.Target)
		}
	case Rename, Move:
		if req.TargetIsCategory {
			err = tree.ApplyCategoryRename(req.Target, req.Input)
		} else {
			err = tree.ApplyRename(req.Target, req.Input)
		}
	case Remove:
		if req.TargetIsCategory {
			err = tree.ApplyCategoryRemoval(req.Target)
		} else {
			err = tree.ApplyRemoval(req.Target)
		}
	}
	if err != nil {
		d.log.Warn("tree patch failed; rescan needed",
			zap.String("action", req.Action.String()),
			zap.String("path", req.Target),
			zap.Error(err),
		)
	}
	return err
}
