package dispatch

import (
	"strconv"
	"time"

	"pass-tui/internal/passcli"

	"github.com/pkg/errors"
)

// Request is one committed intent.
type Request struct {
	ID     uint64
	Action Action
	// Target is the store path acted on (the new path for Insert/Generate).
	Target           string
	TargetIsCategory bool
	// Input is the destination path for Rename and Move.
	Input string

	// Generate options.
	Length    int
	NoSymbols bool
	InPlace   bool

	// Multiline selects `pass insert -m`.
	Multiline bool

	// Unlocked marks the retry after an interactive unlock; a second Locked
	// outcome is reported as a failure instead.
	Unlocked bool
}

// Result is the classified outcome of a Request.
type Result struct {
	Request Request
	Kind    Kind
	// Message is a status line. It never contains secret material or raw
	// stderr.
	Message string
	// Payload carries decrypted output (Show, QR), the first line (Copy) or a
	// generated password (Generate). Never log it.
	Payload  string
	ExitCode int
	Err      error
	Duration time.Duration
}

func (r Result) OK() bool { return r.Kind == OK }

var (
	// ErrBusy rejects a structural request while another is in flight.
	ErrBusy = errors.New("another change is still running")

	errInvalid = errors.New("invalid request")
)

// call maps a request to its single pass invocation.
func call(req Request) (passcli.Call, error) {
	if req.Target == "" {
		return passcli.Call{}, errors.Wrap(errInvalid, "no target")
	}
	switch req.Action {
	case Show, Copy:
		return passcli.Call{Subcommand: "show", Args: []string{req.Target}}, nil
	case QR:
		return passcli.Call{Subcommand: "show", Args: []string{"--qrcode", req.Target}}, nil
	case Edit:
		return passcli.Call{Subcommand: "edit", Args: []string{req.Target}}, nil
	case Insert:
		var args []string
		if req.Multiline {
			args = append(args, "-m")
		}
		return passcli.Call{Subcommand: "insert", Args: append(args, req.Target)}, nil
	case Generate:
		if req.Length <= 0 {
			return passcli.Call{}, errors.Wrapf(errInvalid, "length %d", req.Length)
		}
		var args []string
		if req.NoSymbols {
			args = append(args, "-n")
		}
		if req.InPlace {
			args = append(args, "-i")
		}
		args = append(args, req.Target, strconv.Itoa(req.Length))
		return passcli.Call{Subcommand: "generate", Args: args}, nil
	case Rename, Move:
		if req.Input == "" {
			return passcli.Call{}, errors.Wrap(errInvalid, "no destination")
		}
		if req.Input == req.Target {
			return passcli.Call{}, errors.Wrap(errInvalid, "destination equals source")
		}
		return passcli.Call{Subcommand: "mv", Args: []string{sourceArg(req), req.Input}}, nil
	case Remove:
		args := []string{"-f"}
		if req.TargetIsCategory {
			args = append(args, "-r")
		}
		return passcli.Call{Subcommand: "rm", Args: append(args, sourceArg(req))}, nil
	default:
		return passcli.Call{}, errors.Wrapf(errInvalid, "unknown action %d", int(req.Action))
	}
}

// sourceArg names the target the way pass expects: a trailing slash selects
// the directory when an entry of the same name sits beside it.
func sourceArg(req Request) string {
	if req.TargetIsCategory {
		return req.Target + "/"
	}
	return req.Target
}
