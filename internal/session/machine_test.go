package session

import (
	"context"
	"os/exec"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"pass-tui/internal/clipboard"
	"pass-tui/internal/dispatch"
	"pass-tui/internal/passcli"
	"pass-tui/internal/search"
	"pass-tui/internal/storetree"
	"pass-tui/internal/timer"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	out   map[string][]passcli.Output
	err   error
}

func (f *fakeRunner) record(c passcli.Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.Join(append([]string{c.Subcommand}, c.Args...), " "))
}

func (f *fakeRunner) Invoke(_ context.Context, c passcli.Call) (passcli.Output, error) {
	f.record(c)
	if f.err != nil {
		return passcli.Output{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.out[c.Subcommand]
	if len(q) == 0 {
		return passcli.Output{}, nil
	}
	out := q[0]
	if len(q) > 1 {
		f.out[c.Subcommand] = q[1:]
	}
	return out, nil
}

func (f *fakeRunner) Command(c passcli.Call) *exec.Cmd {
	f.record(c)
	return exec.Command("true")
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type memSink struct{ text string }

func (s *memSink) Set(text string) error { s.text = text; return nil }
func (s *memSink) Clear() error          { s.text = ""; return nil }

type harness struct {
	t      *testing.T
	m      *Machine
	d      *dispatch.Dispatcher
	runner *fakeRunner
	sink   *memSink
	clock  *timer.Fake
	scans  int
}

func storeListing() []storetree.Item {
	return []storetree.Item{
		{Path: "bank.gpg"},
		{Path: "email", IsDir: true},
		{Path: "email/personal.gpg"},
		{Path: "email/work.gpg"},
		{Path: "servers", IsDir: true},
		{Path: "servers/prod", IsDir: true},
		{Path: "servers/prod/web.gpg"},
	}
}

// sameNameListing holds an entry and a category that share a name.
func sameNameListing() []storetree.Item {
	return []storetree.Item{
		{Path: "email", IsDir: true},
		{Path: "email/personal.gpg"},
		{Path: "email.gpg"},
		{Path: "servers", IsDir: true},
		{Path: "servers/web.gpg"},
	}
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	return newHarnessWith(t, storeListing(), mutate)
}

func newHarnessWith(t *testing.T, listing []storetree.Item, mutate func(*Options)) *harness {
	t.Helper()
	tree, err := storetree.FromListing(listing)
	if err != nil {
		t.Fatalf("FromListing: %v", err)
	}
	h := &harness{
		t:      t,
		runner: &fakeRunner{out: map[string][]passcli.Output{}},
		sink:   &memSink{},
		clock:  &timer.Fake{},
	}
	h.d = dispatch.New(h.runner, dispatch.Options{})
	opts := DefaultOptions()
	opts.ClipTTL = 45 * time.Second
	if mutate != nil {
		mutate(&opts)
	}
	h.m = New(opts, Deps{
		Tree: tree,
		Rescan: func() (*storetree.Tree, error) {
			h.scans++
			return storetree.FromListing(listing)
		},
		Clipboard: clipboard.NewManager(h.sink, h.clock, nil),
		Search:    search.New(search.DefaultOptions()),
		Settler:   h.d,
		Timer:     h.clock,
	})
	return h
}

// send handles events in order and runs every resulting effect to completion.
func (h *harness) send(evs ...Event) {
	h.t.Helper()
	for _, ev := range evs {
		h.run(h.m.Handle(ev))
	}
}

func (h *harness) run(eff Effect) {
	h.t.Helper()
	for !eff.None() {
		if eff.Unlock != nil {
			eff = h.m.Unlocked(*eff.Unlock, nil)
			continue
		}
		eff = h.m.Complete(h.execute(*eff.Dispatch))
	}
}

func (h *harness) execute(req dispatch.Request) dispatch.Result {
	if req.Action.Interactive() {
		cmd, res, ok := h.d.Command(req)
		if !ok {
			return res
		}
		_ = cmd
		return h.d.Finish(req, nil)
	}
	return h.d.Dispatch(context.Background(), req)
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.send(Rune(r))
	}
}

func (h *harness) clearInput() {
	for range []rune(h.m.Snapshot().Input) {
		h.send(Key(Backspace))
	}
}

func (h *harness) current() string {
	n := h.m.Current()
	if n == nil {
		return "<nil>"
	}
	return n.Path()
}

// openWork navigates root -> email -> email/work.
func (h *harness) openWork() {
	h.t.Helper()
	h.send(Key(Top), Key(Descend), Key(Down))
	if got := h.current(); got != "email/work" {
		h.t.Fatalf("expected email/work selected, got %q", got)
	}
}

func TestMachine_InitialListingIsDirsFirst(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	var names []string
	for _, r := range h.m.Snapshot().Rows {
		names = append(names, r.Name)
	}
	if want := []string{"email", "servers", "bank"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("rows=%v, want %v", names, want)
	}
	if h.current() != "email" {
		t.Fatalf("current=%q", h.current())
	}
}

func TestMachine_EnterSearchThenCancel(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.send(Key(Down))
	before := h.m.Current()

	h.send(Key(EnterSearch))
	if h.m.Mode() != Searching {
		t.Fatalf("mode=%s, want search", h.m.Mode())
	}
	h.typeText("web")
	if v := h.m.Snapshot(); v.Query != "web" || len(v.Results) == 0 {
		t.Fatalf("expected query and results, got %+v", v)
	}

	h.send(Key(Cancel))
	v := h.m.Snapshot()
	if v.Mode != Browse || v.Query != "" || len(v.Results) != 0 {
		t.Fatalf("expected browse with empty query, got mode=%s query=%q", v.Mode, v.Query)
	}
	if h.m.Current() != before {
		t.Fatalf("current changed: %q", h.current())
	}
}

func TestMachine_EndToEndCopy(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.runner.out["show"] = []passcli.Output{{Stdout: []byte("hunter2\nlogin: me\n")}}

	h.send(Key(Top), Key(Descend))
	if got := h.m.Snapshot().Dir; got != "email" {
		t.Fatalf("dir=%q", got)
	}
	h.send(Key(EnterSearch))
	h.typeText("pers")
	v := h.m.Snapshot()
	if len(v.Results) == 0 || v.Results[0].Path() != "email/personal" {
		t.Fatalf("expected email/personal as top match, got %v", v.Results)
	}

	h.send(Key(Confirm))
	if h.m.Mode() != Browse || h.current() != "email/personal" {
		t.Fatalf("mode=%s current=%q", h.m.Mode(), h.current())
	}

	h.send(Act(dispatch.Copy))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"show email/personal"}) {
		t.Fatalf("calls=%v", got)
	}
	if h.sink.text != "hunter2" {
		t.Fatalf("clipboard=%q", h.sink.text)
	}
	st := h.m.Snapshot()
	if !st.Clipboard.Held || !strings.Contains(st.Status.Text, "clears in 45s") {
		t.Fatalf("unexpected snapshot %+v", st)
	}
	if strings.Contains(st.Status.Text, "hunter2") {
		t.Fatalf("status leaks secret")
	}

	h.clock.Advance(44 * time.Second)
	if h.sink.text != "hunter2" {
		t.Fatalf("cleared too early")
	}
	h.clock.Advance(time.Second)
	if h.sink.text != "" || h.m.Snapshot().Clipboard.Held {
		t.Fatalf("clipboard not cleared after ttl")
	}
}

func TestMachine_RemoveCancelThenConfirm(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.openWork()

	h.send(Act(dispatch.Remove))
	v := h.m.Snapshot()
	if v.Mode != Confirming || v.Prompt != "Remove email/work?" {
		t.Fatalf("mode=%s prompt=%q", v.Mode, v.Prompt)
	}
	h.send(Key(Cancel))
	if h.m.Mode() != Browse {
		t.Fatalf("mode=%s", h.m.Mode())
	}
	if _, ok := h.m.Tree().Find("email/work"); !ok {
		t.Fatalf("tree changed on cancel")
	}
	if len(h.runner.Calls()) != 0 {
		t.Fatalf("pass invoked on cancel: %v", h.runner.Calls())
	}

	h.send(Act(dispatch.Remove), Key(Confirm))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"rm -f email/work"}) {
		t.Fatalf("calls=%v", got)
	}
	if _, ok := h.m.Tree().Find("email/work"); ok {
		t.Fatalf("email/work still present")
	}
	if h.current() != "email/personal" {
		t.Fatalf("selection did not fall back to sibling: %q", h.current())
	}
}

func TestMachine_RemoveCategoryFallsBackToAncestor(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.send(Key(Down), Key(Descend)) // servers -> prod
	if h.current() != "servers/prod" {
		t.Fatalf("current=%q", h.current())
	}
	h.send(Act(dispatch.Remove))
	if p := h.m.Snapshot().Prompt; p != "Remove servers/prod/ and its 1 entry?" {
		t.Fatalf("prompt=%q", p)
	}
	h.send(Rune('y'))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"rm -f -r servers/prod/"}) {
		t.Fatalf("calls=%v", got)
	}
	// servers is pruned too, so the listing falls back to the root.
	if v := h.m.Snapshot(); v.Dir != "" {
		t.Fatalf("dir=%q", v.Dir)
	}
	if _, ok := h.m.Tree().Find("servers"); ok {
		t.Fatalf("empty category not pruned")
	}
}

// Every (mode, event) pair must be handled without leaving the state
// inconsistent.
func TestMachine_TransitionsAreTotal(t *testing.T) {
	t.Parallel()

	enter := map[Mode][]Event{
		Browse:        nil,
		Searching:     {Key(EnterSearch), Rune('e')},
		Confirming:    {Key(Top), Act(dispatch.Remove)},
		AwaitingInput: {Act(dispatch.Insert)},
	}
	var events []Event
	for _, k := range EventKinds() {
		switch k {
		case Request:
			for _, a := range dispatch.Actions() {
				events = append(events, Act(a))
			}
		case Char:
			events = append(events, Rune('y'), Rune('n'), Rune('/'))
		default:
			events = append(events, Key(k))
		}
	}

	for _, mode := range Modes() {
		for _, ev := range events {
			h := newHarness(t, nil)
			h.send(enter[mode]...)
			if h.m.Mode() != mode {
				t.Fatalf("setup: mode=%s, want %s", h.m.Mode(), mode)
			}
			h.send(ev)

			got := h.m.Mode()
			valid := false
			for _, m := range Modes() {
				if got == m {
					valid = true
				}
			}
			if !valid {
				t.Fatalf("%s + %s: invalid mode %d", mode, ev.Kind, got)
			}
			cur := h.m.Current()
			if cur == nil {
				t.Fatalf("%s + %s: no current node", mode, ev.Kind)
			}
			if n, ok := h.m.Tree().Find(cur.Path()); !ok || (cur.IsEntry() && n != cur) {
				t.Fatalf("%s + %s: current %q not reachable", mode, ev.Kind, cur.Path())
			}
			if v := h.m.Snapshot(); v.Mode != Searching && v.Query != "" {
				t.Fatalf("%s + %s: query %q outside search", mode, ev.Kind, v.Query)
			}
		}
	}
}

func TestMachine_BackReturnsToPreviousLocation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.send(Key(Down)) // servers
	h.send(Key(EnterSearch))
	h.typeText("personal")
	h.send(Key(Confirm))
	if h.current() != "email/personal" {
		t.Fatalf("current=%q", h.current())
	}

	h.send(Key(Back))
	if v := h.m.Snapshot(); v.Dir != "" || h.current() != "servers" {
		t.Fatalf("back went to dir=%q current=%q", v.Dir, h.current())
	}

	// Empty history at the root is a no-op.
	h.send(Key(Back))
	if v := h.m.Snapshot(); v.Dir != "" || h.current() != "servers" || v.HistoryDepth != 0 {
		t.Fatalf("unexpected state after back at root: %+v", v)
	}
}

func TestMachine_BackWithoutHistoryGoesUp(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.m.jumpTo(ref{Path: "servers/prod/web"})
	h.m.history = nil
	h.send(Key(Back))
	if v := h.m.Snapshot(); v.Dir != "servers" || h.current() != "servers/prod" {
		t.Fatalf("dir=%q current=%q", v.Dir, h.current())
	}
}

func TestMachine_BackSkipsVanishedLocations(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.send(Key(Down), Key(Descend), Key(Descend)) // servers/prod/web
	h.send(Key(Back))                             // servers
	h.send(Key(Top), Key(Descend))                // into prod again
	if err := h.m.Tree().ApplyCategoryRemoval("servers"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	h.m.reconcile()
	h.send(Key(Back))
	if v := h.m.Snapshot(); v.Dir != "" {
		t.Fatalf("dir=%q", v.Dir)
	}
}

func TestMachine_SearchConfirmRecordsHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.openWork()
	depth := h.m.Snapshot().HistoryDepth
	h.send(Key(EnterSearch))
	h.typeText("pers")
	h.send(Key(Confirm))
	if h.current() != "email/personal" {
		t.Fatalf("current=%q", h.current())
	}
	if d := h.m.Snapshot().HistoryDepth; d != depth+1 {
		t.Fatalf("history depth=%d, want %d", d, depth+1)
	}
	h.send(Key(Back))
	if v := h.m.Snapshot(); v.Dir != "email" || h.current() != "email/work" {
		t.Fatalf("back went to dir=%q current=%q", v.Dir, h.current())
	}
}

func TestMachine_HistoryIsBounded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(o *Options) { o.HistoryLimit = 2 })
	for _, p := range []string{"email/work", "servers/prod/web", "email/personal", "bank"} {
		h.m.jumpTo(ref{Path: p})
	}
	if d := h.m.Snapshot().HistoryDepth; d != 2 {
		t.Fatalf("history depth=%d, want 2", d)
	}
}

func TestMachine_RenameEntry(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.openWork()
	h.send(Act(dispatch.Rename))
	if v := h.m.Snapshot(); v.Mode != AwaitingInput || v.Input != "work" {
		t.Fatalf("mode=%s input=%q", v.Mode, v.Input)
	}

	// Unchanged and conflicting names keep the prompt open.
	h.send(Key(Confirm))
	if h.m.Mode() != AwaitingInput {
		t.Fatalf("unchanged name accepted")
	}
	h.clearInput()
	h.typeText("personal")
	h.send(Key(Confirm))
	if h.m.Mode() != AwaitingInput || h.m.Snapshot().Status.Level != LevelError {
		t.Fatalf("conflicting name accepted")
	}

	h.clearInput()
	h.typeText("job")
	h.send(Key(Confirm))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"mv email/work email/job"}) {
		t.Fatalf("calls=%v", got)
	}
	if h.current() != "email/job" {
		t.Fatalf("selection not rebased: %q", h.current())
	}
}

func TestMachine_RenameCategoryRebasesHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.send(Key(Down), Key(Descend), Key(Descend)) // servers/prod/web
	if h.current() != "servers/prod/web" {
		t.Fatalf("current=%q", h.current())
	}
	h.m.rebase("servers", "srv", true)
	if err := h.m.Tree().ApplyCategoryRename("servers", "srv"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	h.m.reconcile()
	if v := h.m.Snapshot(); v.Dir != "srv/prod" || h.current() != "srv/prod/web" {
		t.Fatalf("dir=%q current=%q", v.Dir, h.current())
	}
	h.send(Key(Back))
	if v := h.m.Snapshot(); v.Dir != "srv" || h.current() != "srv/prod" {
		t.Fatalf("history not rebased: dir=%q current=%q", v.Dir, h.current())
	}
}

func TestMachine_MoveIntoDirectory(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.openWork()
	h.send(Act(dispatch.Move))
	h.clearInput()
	h.typeText("servers/")
	h.send(Key(Confirm))
	v := h.m.Snapshot()
	if v.Mode != Confirming || v.Prompt != "Move email/work to servers/work?" {
		t.Fatalf("mode=%s prompt=%q", v.Mode, v.Prompt)
	}
	h.send(Key(Confirm))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"mv email/work servers/work"}) {
		t.Fatalf("calls=%v", got)
	}
	if _, ok := h.m.Tree().FindEntry("servers/work"); !ok {
		t.Fatalf("tree not patched")
	}
	if h.current() != "servers/work" {
		t.Fatalf("current=%q", h.current())
	}
}

func TestMachine_MoveOntoCategoryMovesInside(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.openWork()
	h.send(Act(dispatch.Move))
	h.clearInput()
	h.typeText("servers")
	h.send(Key(Confirm))
	if p := h.m.Snapshot().Prompt; p != "Move email/work to servers/work?" {
		t.Fatalf("prompt=%q", p)
	}
	h.send(Key(Confirm))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"mv email/work servers/work"}) {
		t.Fatalf("calls=%v", got)
	}
	if _, ok := h.m.Tree().FindEntry("servers/work"); !ok {
		t.Fatalf("tree not patched")
	}
	if _, ok := h.m.Tree().FindEntry("servers"); ok {
		t.Fatalf("entry created beside the category")
	}
	if h.scans != 0 {
		t.Fatalf("unexpected rescan")
	}
}

func TestMachine_RenameEntryOntoCategoryRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.send(Key(Bottom))
	if h.current() != "bank" {
		t.Fatalf("current=%q", h.current())
	}
	h.send(Act(dispatch.Rename))
	h.clearInput()
	h.typeText("servers")
	h.send(Key(Confirm))
	v := h.m.Snapshot()
	if v.Mode != AwaitingInput || v.Status.Text != "servers is a directory" {
		t.Fatalf("mode=%s status=%q", v.Mode, v.Status.Text)
	}
	if len(h.runner.Calls()) != 0 {
		t.Fatalf("pass invoked: %v", h.runner.Calls())
	}
}

func TestMachine_SameNameCategoryRemoveKeepsEntry(t *testing.T) {
	t.Parallel()

	h := newHarnessWith(t, sameNameListing(), nil)
	h.m.jumpTo(ref{Path: "email", Dir: true})
	h.send(Act(dispatch.Remove), Rune('y'))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"rm -f -r email/"}) {
		t.Fatalf("calls=%v", got)
	}
	if _, ok := h.m.Tree().FindCategory("email"); ok {
		t.Fatalf("category still present")
	}
	if _, ok := h.m.Tree().FindEntry("email"); !ok {
		t.Fatalf("same-named entry removed")
	}
}

func TestMachine_SameNameCategoryRenameAndMove(t *testing.T) {
	t.Parallel()

	h := newHarnessWith(t, sameNameListing(), nil)
	h.m.jumpTo(ref{Path: "email", Dir: true})
	h.send(Act(dispatch.Rename))
	h.clearInput()
	h.typeText("mail")
	h.send(Key(Confirm))
	if _, ok := h.m.Tree().FindEntry("mail/personal"); !ok {
		t.Fatalf("category not renamed")
	}
	if _, ok := h.m.Tree().FindEntry("email"); !ok {
		t.Fatalf("same-named entry moved with the category")
	}

	h.m.jumpTo(ref{Path: "mail", Dir: true})
	h.send(Act(dispatch.Move))
	h.clearInput()
	h.typeText("servers/")
	h.send(Key(Confirm), Key(Confirm))
	want := []string{"mv email/ mail", "mv mail/ servers/mail"}
	if got := h.runner.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls=%v, want %v", got, want)
	}
	if _, ok := h.m.Tree().FindEntry("servers/mail/personal"); !ok {
		t.Fatalf("category not moved")
	}
	if h.scans != 0 {
		t.Fatalf("unexpected rescan")
	}
}

func TestMachine_SameNameEntryRemoveKeepsCategory(t *testing.T) {
	t.Parallel()

	h := newHarnessWith(t, sameNameListing(), nil)
	h.m.jumpTo(ref{Path: "email"})
	h.send(Act(dispatch.Remove), Rune('y'))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"rm -f email"}) {
		t.Fatalf("calls=%v", got)
	}
	if _, ok := h.m.Tree().FindCategory("email"); !ok {
		t.Fatalf("same-named category removed")
	}
}

func TestMachine_MoveRejectsItselfAndExisting(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.send(Key(Down)) // servers
	h.send(Act(dispatch.Move))
	h.clearInput()
	h.typeText("servers/prod/")
	h.send(Key(Confirm))
	if h.m.Mode() != AwaitingInput {
		t.Fatalf("moving into itself accepted")
	}
	h.clearInput()
	h.typeText("email")
	h.send(Key(Confirm))
	if h.m.Mode() != AwaitingInput {
		t.Fatalf("moving onto an existing category accepted")
	}
	h.clearInput()
	h.typeText("bank")
	h.send(Key(Confirm))
	if h.m.Mode() != Confirming {
		t.Fatalf("a category may sit next to a same-named entry, mode=%s", h.m.Mode())
	}
}

func TestMachine_GenerateNewEntryCopiesPassword(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.runner.out["generate"] = []passcli.Output{{Stdout: []byte("The generated password for email/new is:\nXyz123\n")}}

	h.send(Key(Top), Key(Descend), Act(dispatch.Generate))
	if v := h.m.Snapshot(); v.Input != "email/" || v.Prompt != "Generate at:" {
		t.Fatalf("input=%q prompt=%q", v.Input, v.Prompt)
	}
	h.typeText("new")
	h.send(Key(Confirm))
	if v := h.m.Snapshot(); v.Input != "25" || v.Prompt != "Length:" {
		t.Fatalf("input=%q prompt=%q", v.Input, v.Prompt)
	}
	h.send(Key(Confirm))

	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"generate email/new 25"}) {
		t.Fatalf("calls=%v", got)
	}
	if h.current() != "email/new" {
		t.Fatalf("current=%q", h.current())
	}
	if h.sink.text != "Xyz123" {
		t.Fatalf("clipboard=%q", h.sink.text)
	}
}

func TestMachine_GenerateExistingAsksBeforeReplacing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(o *Options) { o.NoSymbols = true })
	h.openWork()
	h.send(Act(dispatch.Generate))
	h.clearInput()
	h.typeText("email/work")
	h.send(Key(Confirm))
	h.clearInput()
	h.typeText("abc")
	h.send(Key(Confirm))
	if h.m.Mode() != AwaitingInput {
		t.Fatalf("non-numeric length accepted")
	}
	h.clearInput()
	h.typeText("12")
	h.send(Key(Confirm))
	if h.m.Mode() != Confirming {
		t.Fatalf("mode=%s, want confirm", h.m.Mode())
	}
	h.send(Rune('y'))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"generate -n -i email/work 12"}) {
		t.Fatalf("calls=%v", got)
	}
}

func TestMachine_InsertRunsInteractively(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(o *Options) { o.Multiline = true })
	h.send(Key(Top), Key(Descend), Act(dispatch.Insert))
	h.typeText("personal")
	h.send(Key(Confirm))
	if h.m.Mode() != AwaitingInput {
		t.Fatalf("existing path accepted")
	}
	h.typeText("2")
	h.send(Key(Confirm))
	if got := h.runner.Calls(); !reflect.DeepEqual(got, []string{"insert -m email/personal2"}) {
		t.Fatalf("calls=%v", got)
	}
	if h.current() != "email/personal2" {
		t.Fatalf("current=%q", h.current())
	}
}

func TestMachine_OneStructuralActionAtATime(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.openWork()
	h.send(Act(dispatch.Remove))
	eff := h.m.Handle(Key(Confirm))
	if eff.Dispatch == nil {
		t.Fatalf("expected dispatch")
	}

	h.send(Key(Up), Act(dispatch.Rename))
	v := h.m.Snapshot()
	if v.Mode != Browse || v.Status.Text != dispatch.ErrBusy.Error() || !v.Busy {
		t.Fatalf("second structural action not rejected: %+v", v)
	}

	// Reads still go through.
	h.runner.out["show"] = []passcli.Output{{Stdout: []byte("secret\n")}}
	h.send(Act(dispatch.Show))
	if p := h.m.Snapshot().Preview; p == nil || p.Text != "secret\n" {
		t.Fatalf("preview=%+v", p)
	}

	h.run(eff)
	if h.m.Snapshot().Busy {
		t.Fatalf("still busy after completion")
	}
}

func TestMachine_LockedReadUnlocksAndRetries(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.runner.out["show"] = []passcli.Output{
		{ExitCode: 2, Stderr: "gpg: decryption failed: No secret key"},
		{Stdout: []byte("pw\n")},
	}
	h.openWork()
	eff := h.m.Handle(Act(dispatch.Copy))
	eff = h.m.Complete(h.execute(*eff.Dispatch))
	if eff.Unlock == nil || eff.Unlock.Target != "email/work" {
		t.Fatalf("expected unlock effect, got %+v", eff)
	}
	if h.m.InFlight() != 1 {
		t.Fatalf("request dropped while unlocking")
	}
	eff = h.m.Unlocked(*eff.Unlock, nil)
	if eff.Dispatch == nil || !eff.Dispatch.Unlocked {
		t.Fatalf("expected retry, got %+v", eff)
	}
	h.run(eff)
	if h.sink.text != "pw" || h.m.InFlight() != 0 {
		t.Fatalf("clipboard=%q inflight=%d", h.sink.text, h.m.InFlight())
	}
}

func TestMachine_UnlockFailureReportsStatus(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.runner.out["show"] = []passcli.Output{{ExitCode: 2}}
	h.openWork()
	eff := h.m.Handle(Act(dispatch.Show))
	eff = h.m.Complete(h.execute(*eff.Dispatch))
	eff = h.m.Unlocked(*eff.Unlock, exec.ErrNotFound)
	if !eff.None() || h.m.InFlight() != 0 {
		t.Fatalf("eff=%+v inflight=%d", eff, h.m.InFlight())
	}
	if st := h.m.Snapshot().Status; st.Level != LevelError || st.Text != "email/work: unlock failed" {
		t.Fatalf("status=%+v", st)
	}
}

func TestMachine_MissingToolIsFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.runner.err = &passcli.InvocationError{Bin: "pass", Err: exec.ErrNotFound}
	h.openWork()
	h.send(Act(dispatch.Show))
	if v := h.m.Snapshot(); v.Fatal == "" {
		t.Fatalf("expected fatal message")
	}
	h.send(Key(Up))
	if h.current() != "email/work" {
		t.Fatalf("navigation accepted after fatal error")
	}
	h.send(Key(Quit))
	if !h.m.Done() {
		t.Fatalf("quit not accepted")
	}
}

func TestMachine_QuitWaitsForInFlightAction(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.openWork()
	h.send(Act(dispatch.Remove))
	eff := h.m.Handle(Key(Confirm))

	h.send(Key(Quit))
	if h.m.Done() || !h.m.Terminating() {
		t.Fatalf("quit did not wait for in-flight action")
	}
	h.send(Key(Down))
	h.run(eff)
	if !h.m.Done() {
		t.Fatalf("not done after last action settled")
	}
	if _, ok := h.m.Tree().Find("email/work"); ok {
		t.Fatalf("in-flight removal not applied")
	}
}

func TestMachine_QuitGraceExpires(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.openWork()
	_ = h.m.Handle(Act(dispatch.Show))
	h.send(Key(Quit))
	if h.m.Done() {
		t.Fatalf("done too early")
	}
	h.clock.Advance(5 * time.Second)
	if !h.m.Done() {
		t.Fatalf("grace period did not end the session")
	}
}

func TestMachine_QuitClearsClipboard(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.runner.out["show"] = []passcli.Output{{Stdout: []byte("s3cret\n")}}
	h.openWork()
	h.send(Act(dispatch.Copy))
	if h.sink.text != "s3cret" {
		t.Fatalf("clipboard=%q", h.sink.text)
	}
	h.send(Key(Quit))
	if !h.m.Done() || h.sink.text != "" {
		t.Fatalf("done=%v clipboard=%q", h.m.Done(), h.sink.text)
	}
}

func TestMachine_ClearClipboardInAnyMode(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.runner.out["show"] = []passcli.Output{{Stdout: []byte("s3cret\n")}}
	h.openWork()
	h.send(Act(dispatch.Copy), Key(EnterSearch), Key(ClearClipboard))
	if h.sink.text != "" || h.m.Mode() != Searching {
		t.Fatalf("clipboard=%q mode=%s", h.sink.text, h.m.Mode())
	}
}

func TestMachine_StatusAutoDismisses(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(o *Options) { o.StatusTTL = 3 * time.Second })
	h.send(Key(Refresh))
	if h.m.Snapshot().Status.Text != "Store reloaded" || h.scans != 1 {
		t.Fatalf("status=%q scans=%d", h.m.Snapshot().Status.Text, h.scans)
	}
	h.clock.Advance(3 * time.Second)
	if h.m.Snapshot().Status.Text != "" {
		t.Fatalf("status not dismissed")
	}
}

func TestMachine_InconsistentPatchTriggersRescan(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.openWork()
	h.send(Act(dispatch.Remove))
	eff := h.m.Handle(Key(Confirm))
	// The entry disappears behind the session's back.
	if err := h.m.Tree().ApplyRemoval("email/work"); err != nil {
		t.Fatalf("ApplyRemoval: %v", err)
	}
	h.run(eff)
	if h.scans != 1 {
		t.Fatalf("expected a rescan, got %d", h.scans)
	}
}

func TestMachine_DescendOnEntryShows(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.runner.out["show"] = []passcli.Output{{Stdout: []byte("pw\n")}}
	h.openWork()
	h.send(Key(Descend))
	if p := h.m.Snapshot().Preview; p == nil || p.Path != "email/work" {
		t.Fatalf("preview=%+v", p)
	}
	h.send(Key(Up))
	if h.m.Snapshot().Preview != nil {
		t.Fatalf("preview survived cursor move")
	}
}
