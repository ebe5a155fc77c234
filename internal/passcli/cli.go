// Package passcli runs the pass(1) command line tool.
package passcli

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultBin = "pass"

// Call is one pass invocation: `pass <Subcommand> <Args...>`.
type Call struct {
	Subcommand string
	Args       []string
	// Stdin is fed to the process when non-empty.
	Stdin string
}

func (c Call) argv() []string {
	out := make([]string, 0, len(c.Args)+1)
	if c.Subcommand != "" {
		out = append(out, c.Subcommand)
	}
	return append(out, c.Args...)
}

func (c Call) String() string { return strings.Join(append([]string{DefaultBin}, c.argv()...), " ") }

// Output is what a finished process produced. Stdout may hold secret
// material and must never be logged.
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   string
	Duration time.Duration
}

func (o Output) OK() bool { return o.ExitCode == 0 }

type Invoker interface {
	Invoke(ctx context.Context, call Call) (Output, error)
}

// CLI invokes the real pass binary.
type CLI struct {
	// Bin defaults to "pass" resolved on PATH.
	Bin string
	// StoreDir is exported as PASSWORD_STORE_DIR when set.
	StoreDir string
	// Editor is exported as EDITOR when set (used by `pass edit`).
	Editor string
	Log    *zap.Logger
}

func (c CLI) bin() string {
	if strings.TrimSpace(c.Bin) == "" {
		return DefaultBin
	}
	return c.Bin
}

// Check resolves the binary without running it.
func (c CLI) Check() error {
	if _, err := exec.LookPath(c.bin()); err != nil {
		return &InvocationError{Bin: c.bin(), Err: err}
	}
	return nil
}

// Invoke runs call to completion. A non-zero exit is not an error: it is
// reported through Output.ExitCode. Errors mean the process could not run.
func (c CLI) Invoke(ctx context.Context, call Call) (Output, error) {
	cmd := exec.CommandContext(ctx, c.bin(), call.argv()...)
	cmd.Env = c.env()
	if call.Stdin != "" {
		cmd.Stdin = strings.NewReader(call.Stdin)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Output{
		Stdout:   stdout.Bytes(),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			out.ExitCode = exitErr.ExitCode()
		} else if ctxErr := ctx.Err(); ctxErr != nil {
			return out, errors.Wrapf(ctxErr, "pass %s", call.Subcommand)
		} else {
			return out, &InvocationError{Bin: c.bin(), Err: err}
		}
	}
	c.logger().Debug("pass finished",
		zap.String("subcommand", call.Subcommand),
		zap.Int("exit", out.ExitCode),
		zap.Duration("took", out.Duration),
	)
	return out, nil
}

// Command builds an *exec.Cmd for calls that need the terminal (pinentry,
// $EDITOR, password prompts). Stdio is left for the caller to attach.
func (c CLI) Command(call Call) *exec.Cmd {
	cmd := exec.Command(c.bin(), call.argv()...)
	cmd.Env = c.env()
	return cmd
}

func (c CLI) env() []string {
	env := os.Environ()
	if c.StoreDir != "" {
		env = append(env, "PASSWORD_STORE_DIR="+c.StoreDir)
	}
	if c.Editor != "" {
		env = append(env, "EDITOR="+c.Editor)
	}
	return env
}

func (c CLI) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
