package gitstatus

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestGet_NonRepo(t *testing.T) {
	t.Parallel()

	st, err := Get(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.IsRepo || st.Badge() != "" {
		t.Fatalf("expected non-repo status, got %+v", st)
	}
}

func TestGet_StoreRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Parallel()

	ctx := context.Background()
	store := t.TempDir()
	run(t, store, "git", "init")
	run(t, store, "git", "config", "user.email", "test@example.com")
	run(t, store, "git", "config", "user.name", "Test")
	writeFile(t, filepath.Join(store, "email.gpg"), "cipher\n")
	run(t, store, "git", "add", ".")
	run(t, store, "git", "commit", "-m", "Add given password for email to store.")

	st, err := Get(ctx, store)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !st.IsRepo || st.Dirty || st.Head == "" || st.Branch == "" {
		t.Fatalf("unexpected clean status: %+v", st)
	}
	if st.Badge() != "git: "+st.Branch {
		t.Fatalf("badge=%q", st.Badge())
	}

	// Untracked files are not reported; edits to tracked secrets are.
	writeFile(t, filepath.Join(store, "stray.gpg"), "x\n")
	if st, _ = Get(ctx, store); st.Dirty {
		t.Fatalf("untracked file reported dirty")
	}
	writeFile(t, filepath.Join(store, "email.gpg"), "changed\n")
	if st, _ = Get(ctx, store); !st.Dirty || st.Badge() != "git: uncommitted" {
		t.Fatalf("expected dirty: %+v", st)
	}
}

func TestBadge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		st   Status
		want string
	}{
		{Status{}, ""},
		{Status{IsRepo: true, Branch: "main"}, "git: main"},
		{Status{IsRepo: true, Upstream: "origin/main"}, "git: synced"},
		{Status{IsRepo: true, Upstream: "origin/main", Ahead: 2}, "git: ↑2"},
		{Status{IsRepo: true, Upstream: "origin/main", Behind: 1}, "git: ↓1"},
		{Status{IsRepo: true, Upstream: "origin/main", Ahead: 1, Behind: 3}, "git: ↑1 ↓3"},
		{Status{IsRepo: true, Dirty: true, Ahead: 1}, "git: uncommitted"},
		{Status{IsRepo: true, InProgress: "rebase"}, "git: conflict"},
	}
	for _, tt := range tests {
		if got := tt.st.Badge(); got != tt.want {
			t.Fatalf("Badge(%+v)=%q, want %q", tt.st, got, tt.want)
		}
	}
}

func TestParsePorcelain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in              string
		dirty, unmerged bool
	}{
		{"", false, false},
		{" M email.gpg\n", true, false},
		{"UU email.gpg\n", true, true},
		{"AA new.gpg\r\n", true, true},
	}
	for _, tt := range tests {
		d, u := parsePorcelain(tt.in)
		if d != tt.dirty || u != tt.unmerged {
			t.Fatalf("parsePorcelain(%q)=%v,%v want %v,%v", tt.in, d, u, tt.dirty, tt.unmerged)
		}
	}
}

func TestParseAheadBehind(t *testing.T) {
	t.Parallel()

	if a, b, ok := parseAheadBehind("3\t1\n"); !ok || a != 3 || b != 1 {
		t.Fatalf("got %d %d %v", a, b, ok)
	}
	if _, _, ok := parseAheadBehind("garbage"); ok {
		t.Fatalf("expected failure")
	}
}

func run(t *testing.T, dir, bin string, args ...string) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("%s %v: %v\n%s", bin, args, err, out)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
