package session

import (
	"fmt"
	"strconv"
	"strings"

	"pass-tui/internal/dispatch"
	"pass-tui/internal/storetree"

	"go.uber.org/zap"
)

type step int

const (
	stepPath step = iota
	stepLength
	stepName
	stepDestination
	stepConfirm
)

// pending is the context of a multi-step action.
type pending struct {
	action  dispatch.Action
	step    step
	target  ref
	dest    string
	length  int
	inPlace bool
	prompt  string
	entries int
}

func (m *Machine) request(a dispatch.Action) Effect {
	if a.Structural() && m.structuralInFlight() {
		m.setStatus(dispatch.ErrBusy.Error(), LevelError)
		return Effect{}
	}
	sel, hasSel := m.find(m.sel)

	switch a {
	case dispatch.Show, dispatch.QR, dispatch.Copy, dispatch.Edit:
		if !hasSel || !sel.IsEntry() {
			m.setStatus("Select an entry first", LevelInfo)
			return Effect{}
		}
		return m.dispatch(dispatch.Request{Action: a, Target: sel.Path()})

	case dispatch.Insert, dispatch.Generate:
		m.startInput(&pending{action: a, step: stepPath}, dirPrefix(m.dir))

	case dispatch.Rename:
		if !hasSel {
			m.setStatus("Nothing selected", LevelInfo)
			return Effect{}
		}
		m.startInput(&pending{action: a, step: stepName, target: refOf(sel)}, sel.Name())

	case dispatch.Move:
		if !hasSel {
			m.setStatus("Nothing selected", LevelInfo)
			return Effect{}
		}
		m.startInput(&pending{action: a, step: stepDestination, target: refOf(sel)}, sel.Path())

	case dispatch.Remove:
		if !hasSel {
			m.setStatus("Nothing selected", LevelInfo)
			return Effect{}
		}
		p := &pending{action: a, step: stepConfirm, target: refOf(sel)}
		if sel.IsCategory() {
			p.entries = sel.EntryCount()
			p.prompt = fmt.Sprintf("Remove %s/ and its %d %s?", sel.Path(), p.entries, plural(p.entries, "entry", "entries"))
		} else {
			p.prompt = fmt.Sprintf("Remove %s?", sel.Path())
		}
		m.startConfirm(p)
	}
	return Effect{}
}

func (m *Machine) structuralInFlight() bool {
	for _, req := range m.inflight {
		if req.Action.Structural() {
			return true
		}
	}
	return false
}

func (m *Machine) dispatch(req dispatch.Request) Effect {
	m.nextID++
	req.ID = m.nextID
	m.inflight[req.ID] = req
	m.log.Debug("dispatch",
		zap.Uint64("id", req.ID),
		zap.String("action", req.Action.String()),
		zap.String("path", req.Target),
	)
	return Effect{Dispatch: &req}
}

func (m *Machine) startInput(p *pending, prefill string) {
	p.prompt = inputPrompt(p)
	m.pending = p
	m.input = prefill
	m.preview = nil
	m.setMode(AwaitingInput)
}

func (m *Machine) startConfirm(p *pending) {
	p.step = stepConfirm
	m.pending = p
	m.confirmYes = true
	m.preview = nil
	m.setMode(Confirming)
}

func (m *Machine) abortPending() {
	m.pending = nil
	m.input = ""
	m.setMode(Browse)
}

func inputPrompt(p *pending) string {
	switch {
	case p.step == stepLength:
		return "Length:"
	case p.step == stepName:
		return "Rename to:"
	case p.step == stepDestination:
		return "Move to (trailing / = into directory):"
	case p.action == dispatch.Generate:
		return "Generate at:"
	default:
		return "New entry:"
	}
}

func (m *Machine) handleInput(ev Event) Effect {
	switch ev.Kind {
	case Char:
		m.input += string(ev.Rune)
	case Backspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case Cancel:
		m.abortPending()
	case Confirm:
		return m.submitInput()
	}
	return Effect{}
}

// submitInput validates the typed value. Invalid input keeps the prompt open
// with an error status.
func (m *Machine) submitInput() Effect {
	p := m.pending
	if p == nil {
		m.abortPending()
		return Effect{}
	}
	switch p.step {
	case stepPath:
		path, err := cleanPath(m.input)
		if err != "" {
			m.setStatus(err, LevelError)
			return Effect{}
		}
		_, exists := m.tree.FindEntry(path)
		if p.action == dispatch.Insert {
			if exists {
				m.setStatus(path+" already exists", LevelError)
				return Effect{}
			}
			m.abortPending()
			return m.dispatch(dispatch.Request{Action: dispatch.Insert, Target: path, Multiline: m.opts.Multiline})
		}
		p.target = ref{Path: path}
		p.inPlace = exists
		p.step = stepLength
		m.startInput(p, strconv.Itoa(m.opts.GenerateLength))

	case stepLength:
		n, err := strconv.Atoi(strings.TrimSpace(m.input))
		if err != nil || n <= 0 {
			m.setStatus("Length must be a positive number", LevelError)
			return Effect{}
		}
		p.length = n
		if p.inPlace {
			p.prompt = fmt.Sprintf("Replace the password of %s? (other lines are kept)", p.target.Path)
			m.startConfirm(p)
			return Effect{}
		}
		m.abortPending()
		return m.dispatch(m.requestFor(p))

	case stepName:
		name := strings.TrimSpace(m.input)
		switch {
		case name == "":
			m.setStatus("Name must not be empty", LevelError)
			return Effect{}
		case strings.Contains(name, "/"):
			m.setStatus("Name must not contain /", LevelError)
			return Effect{}
		case name == storetree.BaseName(p.target.Path):
			m.setStatus("Name unchanged", LevelInfo)
			return Effect{}
		}
		dest, bad := cleanPath(joinPath(storetree.ParentPath(p.target.Path), name))
		if bad != "" {
			m.setStatus(bad, LevelError)
			return Effect{}
		}
		if _, ok := m.find(ref{Path: dest, Dir: p.target.Dir}); ok {
			m.setStatus(dest+" already exists", LevelError)
			return Effect{}
		}
		if m.landsInCategory(p.target, dest) {
			m.setStatus(dest+" is a directory", LevelError)
			return Effect{}
		}
		p.dest = dest
		m.abortPending()
		return m.dispatch(m.requestFor(p))

	case stepDestination:
		raw := strings.TrimSpace(m.input)
		into := strings.HasSuffix(raw, "/")
		dest, bad := cleanPath(raw)
		if bad != "" && !(into && strings.Trim(raw, "/") == "") {
			m.setStatus(bad, LevelError)
			return Effect{}
		}
		// pass moves an entry into a category it is pointed at.
		if into || m.landsInCategory(p.target, dest) {
			dest = joinPath(dest, storetree.BaseName(p.target.Path))
		}
		switch {
		case dest == p.target.Path:
			m.setStatus("Destination is the current location", LevelInfo)
			return Effect{}
		case p.target.Dir && strings.HasPrefix(dest, p.target.Path+"/"):
			m.setStatus("Cannot move a directory into itself", LevelError)
			return Effect{}
		}
		if _, ok := m.find(ref{Path: dest, Dir: p.target.Dir}); ok {
			m.setStatus(dest+" already exists", LevelError)
			return Effect{}
		}
		if m.landsInCategory(p.target, dest) {
			m.setStatus(dest+" is a directory", LevelError)
			return Effect{}
		}
		p.dest = dest
		p.prompt = fmt.Sprintf("Move %s to %s?", p.target.Path, dest)
		m.startConfirm(p)
	}
	return Effect{}
}

// landsInCategory reports whether moving an entry to dest would hit an
// existing category, which pass treats as "move into".
func (m *Machine) landsInCategory(target ref, dest string) bool {
	if target.Dir {
		return false
	}
	_, ok := m.tree.FindCategory(dest)
	return ok
}

func (m *Machine) handleConfirm(ev Event) Effect {
	switch ev.Kind {
	case Confirm:
		if m.confirmYes {
			return m.proceed()
		}
		m.abortPending()
	case Char:
		switch ev.Rune {
		case 'y', 'Y':
			return m.proceed()
		case 'n', 'N':
			m.abortPending()
		}
	case Toggle, Up, Down:
		m.confirmYes = !m.confirmYes
	case Cancel, Back:
		m.abortPending()
	}
	return Effect{}
}

func (m *Machine) proceed() Effect {
	p := m.pending
	m.abortPending()
	if p == nil {
		return Effect{}
	}
	if p.action.Structural() && m.structuralInFlight() {
		m.setStatus(dispatch.ErrBusy.Error(), LevelError)
		return Effect{}
	}
	return m.dispatch(m.requestFor(p))
}

func (m *Machine) requestFor(p *pending) dispatch.Request {
	req := dispatch.Request{
		Action:           p.action,
		Target:           p.target.Path,
		TargetIsCategory: p.target.Dir,
		Input:            p.dest,
	}
	if p.action == dispatch.Generate {
		req.Length = p.length
		req.InPlace = p.inPlace
		req.NoSymbols = m.opts.NoSymbols
	}
	return req
}

// cleanPath normalises a typed store path. The second result is a user
// facing reason when the path is unusable.
func cleanPath(s string) (string, string) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return "", "Path must not be empty"
	}
	if strings.HasPrefix(s, "-") {
		return "", "Path must not start with -"
	}
	for _, seg := range strings.Split(s, "/") {
		switch seg {
		case "", ".", "..":
			return "", fmt.Sprintf("Invalid path %q", s)
		}
	}
	return s, ""
}

func dirPrefix(dir string) string {
	if dir == "" {
		return ""
	}
	return dir + "/"
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
