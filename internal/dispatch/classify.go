package dispatch

import (
	"fmt"
	"strings"

	"pass-tui/internal/passcli"

	"github.com/charmbracelet/x/ansi"
)

// lockedExit is what `pass show` returns when gpg fails without a usable
// agent, typically because pinentry could not reach a terminal.
const lockedExit = 2

type stderrRule struct {
	needle string
	kind   Kind
	phrase string
}

// Known pass/gpg diagnostics. Anything else is summarised by exit code so raw
// stderr never reaches the status line.
var stderrRules = []stderrRule{
	{"is not in the password store", Expected, "entry not found"},
	{"already exists", Expected, "target already exists"},
	{"password unchanged", Expected, "no changes"},
	{"bad passphrase", ToolFailure, "passphrase rejected"},
	{"operation cancelled", ToolFailure, "passphrase rejected"},
	{"no secret key", ToolFailure, "decryption failed"},
	{"decryption failed", ToolFailure, "decryption failed"},
	{"you must run", EnvFailure, "store is not initialised (pass init)"},
}

// classify turns a finished non-interactive invocation into a Result.
func classify(req Request, c passcli.Call, out passcli.Output) Result {
	res := Result{Request: req, ExitCode: out.ExitCode, Duration: out.Duration}
	if out.OK() {
		res.Kind = OK
		res.Message = successMessage(req)
		res.Payload = payload(req, out.Stdout)
		if req.Action == Copy && res.Payload == "" {
			res.Kind = Expected
			res.Message = fmt.Sprintf("%s has an empty first line", req.Target)
		}
		return res
	}

	if req.Action.ReadOnly() && out.ExitCode == lockedExit && !req.Unlocked {
		res.Kind = Locked
		res.Message = fmt.Sprintf("%s: key locked", req.Target)
		return res
	}

	lower := strings.ToLower(out.Stderr)
	for _, r := range stderrRules {
		if strings.Contains(lower, r.needle) {
			res.Kind = r.kind
			res.Message = fmt.Sprintf("%s: %s", req.Target, r.phrase)
			return res
		}
	}
	res.Kind = ToolFailure
	res.Message = fmt.Sprintf("pass %s failed (exit %d)", c.Subcommand, out.ExitCode)
	return res
}

func successMessage(req Request) string {
	switch req.Action {
	case Show, QR:
		return ""
	case Copy:
		return fmt.Sprintf("Copied %s to clipboard", req.Target)
	case Edit:
		return fmt.Sprintf("Saved %s", req.Target)
	case Insert:
		return fmt.Sprintf("Added %s", req.Target)
	case Generate:
		if req.InPlace {
			return fmt.Sprintf("Regenerated %s", req.Target)
		}
		return fmt.Sprintf("Generated %s", req.Target)
	case Rename:
		return fmt.Sprintf("Renamed %s to %s", req.Target, req.Input)
	case Move:
		return fmt.Sprintf("Moved %s to %s", req.Target, req.Input)
	case Remove:
		return fmt.Sprintf("Removed %s", req.Target)
	}
	return ""
}

func payload(req Request, stdout []byte) string {
	switch req.Action {
	case Show, QR:
		return string(stdout)
	case Copy:
		return firstLine(string(stdout))
	case Generate:
		return generatedPassword(stdout)
	}
	return ""
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimRight(line, "\r")
}

// generatedPassword extracts the password from `pass generate` output:
//
//	The generated password for foo is:
//	<colour>s3cr3t<reset>
func generatedPassword(stdout []byte) string {
	lines := strings.Split(ansi.Strip(string(stdout)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
