// Package gitstatus reads the state of a git-backed password store for the
// header line. It only queries; pass makes the commits.
package gitstatus

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Status struct {
	IsRepo bool

	Branch   string
	Upstream string
	Head     string

	// Dirty ignores untracked files: pass commits every change it makes, so
	// only tracked modifications mean someone edited the store by hand.
	Dirty    bool
	Unmerged bool

	InProgress    string // merge|rebase|cherry-pick|revert, or ""
	Ahead, Behind int
}

// Get inspects dir. A directory outside any repository is a zero Status,
// not an error.
func Get(ctx context.Context, dir string) (Status, error) {
	if _, err := git(ctx, dir, "rev-parse", "--show-toplevel"); err != nil {
		return Status{}, nil
	}
	st := Status{IsRepo: true}

	branch, _ := git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	st.Branch = strings.TrimSpace(branch)
	head, _ := git(ctx, dir, "rev-parse", "--short", "HEAD")
	st.Head = strings.TrimSpace(head)
	upstream, _ := git(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	st.Upstream = strings.TrimSpace(upstream)

	porcelain, err := git(ctx, dir, "status", "--porcelain=v1", "--untracked-files=no")
	if err != nil {
		return st, err
	}
	st.Dirty, st.Unmerged = parsePorcelain(porcelain)
	st.InProgress = inProgress(ctx, dir)

	if st.Upstream != "" {
		if counts, err := git(ctx, dir, "rev-list", "--left-right", "--count", "HEAD...@{u}"); err == nil {
			if a, b, ok := parseAheadBehind(counts); ok {
				st.Ahead, st.Behind = a, b
			}
		}
	}
	return st, nil
}

// Badge is the short header text, or "" outside a repository.
func (s Status) Badge() string {
	switch {
	case !s.IsRepo:
		return ""
	case s.Unmerged || s.InProgress != "":
		return "git: conflict"
	case s.Dirty:
		return "git: uncommitted"
	case s.Behind > 0 && s.Ahead > 0:
		return fmt.Sprintf("git: ↑%d ↓%d", s.Ahead, s.Behind)
	case s.Behind > 0:
		return fmt.Sprintf("git: ↓%d", s.Behind)
	case s.Ahead > 0:
		return fmt.Sprintf("git: ↑%d", s.Ahead)
	case s.Upstream == "":
		return "git: " + s.Branch
	default:
		return "git: synced"
	}
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

func parsePorcelain(out string) (dirty, unmerged bool) {
	for _, ln := range strings.Split(out, "\n") {
		ln = strings.TrimRight(ln, "\r")
		if len(ln) < 2 || strings.TrimSpace(ln[:2]) == "" {
			continue
		}
		dirty = true
		xy := ln[:2]
		switch xy {
		case "DD", "AA":
			unmerged = true
		}
		if xy[0] == 'U' || xy[1] == 'U' {
			unmerged = true
		}
	}
	return dirty, unmerged
}

func inProgress(ctx context.Context, dir string) string {
	for _, ref := range []struct{ name, kind string }{
		{"MERGE_HEAD", "merge"},
		{"REBASE_HEAD", "rebase"},
		{"CHERRY_PICK_HEAD", "cherry-pick"},
		{"REVERT_HEAD", "revert"},
	} {
		cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", "-q", ref.name)
		cmd.Dir = dir
		if cmd.Run() == nil {
			return ref.kind
		}
	}
	return ""
}

// parseAheadBehind reads `git rev-list --left-right --count` output:
// "<ahead>\t<behind>\n".
func parseAheadBehind(out string) (ahead, behind int, ok bool) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, false
	}
	a, err1 := strconv.Atoi(fields[0])
	b, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}
