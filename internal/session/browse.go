package session

import (
	"strings"

	"pass-tui/internal/dispatch"
	"pass-tui/internal/storetree"

	"go.uber.org/zap"
)

func (m *Machine) handleBrowse(ev Event) Effect {
	switch ev.Kind {
	case Up:
		m.moveCursor(m.cursor - 1)
	case Down:
		m.moveCursor(m.cursor + 1)
	case Top:
		m.moveCursor(0)
	case Bottom:
		m.moveCursor(len(m.rows()) - 1)
	case Descend, Confirm:
		return m.descend()
	case Back:
		m.back()
	case EnterSearch:
		m.query = ""
		m.results = nil
		m.resultCursor = 0
		m.preview = nil
		m.setMode(Searching)
	case Cancel:
		m.preview = nil
		m.status = Status{}
	case Refresh:
		m.refresh()
	case Request:
		return m.request(ev.Action)
	}
	return Effect{}
}

// rows lists the current category, categories first when configured.
func (m *Machine) rows() []*storetree.Node {
	cat, ok := m.tree.FindCategory(m.dir)
	if !ok {
		return nil
	}
	children := cat.Children()
	if !m.opts.DirsFirst {
		return children
	}
	out := make([]*storetree.Node, 0, len(children))
	for _, ch := range children {
		if ch.IsCategory() {
			out = append(out, ch)
		}
	}
	for _, ch := range children {
		if ch.IsEntry() {
			out = append(out, ch)
		}
	}
	return out
}

func (m *Machine) moveCursor(i int) {
	rows := m.rows()
	if len(rows) == 0 {
		return
	}
	i = clamp(i, 0, len(rows)-1)
	m.cursor = i
	m.sel = refOf(rows[i])
	m.preview = nil
}

func (m *Machine) descend() Effect {
	n, ok := m.find(m.sel)
	if !ok {
		return Effect{}
	}
	if n.IsEntry() {
		return m.request(dispatch.Show)
	}
	m.pushHistory()
	m.dir = n.Path()
	m.sel = ref{}
	m.cursor = 0
	m.preview = nil
	m.reconcile()
	return Effect{}
}

// back returns to the previous location, skipping locations that no longer
// exist. With no history it goes up one level; at the root it does nothing.
func (m *Machine) back() {
	m.preview = nil
	for len(m.history) > 0 {
		loc := m.history[len(m.history)-1]
		m.history = m.history[:len(m.history)-1]
		if _, ok := m.tree.FindCategory(loc.dir); !ok {
			continue
		}
		m.dir = loc.dir
		m.sel = loc.sel
		m.reconcile()
		return
	}
	if m.dir == "" {
		return
	}
	child := ref{Path: m.dir, Dir: true}
	m.dir = storetree.ParentPath(m.dir)
	m.sel = child
	m.reconcile()
}

func (m *Machine) pushHistory() {
	m.history = append(m.history, location{dir: m.dir, sel: m.sel})
	if limit := m.opts.HistoryLimit; limit > 0 && len(m.history) > limit {
		m.history = append([]location(nil), m.history[len(m.history)-limit:]...)
	}
}

// jumpTo selects an entry or category anywhere in the tree, recording the
// previous location when the listed category changes.
func (m *Machine) jumpTo(r ref) {
	dir := storetree.ParentPath(r.Path)
	if dir != m.dir {
		m.pushHistory()
	}
	m.dir = dir
	m.sel = r
	m.reconcile()
}

// reconcile restores the invariants after the tree changed under the
// session: the listed category exists (else its nearest existing ancestor)
// and the selection is one of its rows.
func (m *Machine) reconcile() {
	for {
		if _, ok := m.tree.FindCategory(m.dir); ok {
			break
		}
		m.log.Debug("listed category vanished", zap.String("dir", m.dir))
		m.sel = ref{Path: m.dir, Dir: true}
		m.dir = storetree.ParentPath(m.dir)
	}
	rows := m.rows()
	if len(rows) == 0 {
		m.sel = ref{}
		m.cursor = 0
		return
	}
	for i, r := range rows {
		if refOf(r) == m.sel {
			m.cursor = i
			return
		}
	}
	m.cursor = clamp(m.cursor, 0, len(rows)-1)
	m.sel = refOf(rows[m.cursor])
}

// rebase rewrites remembered paths after oldPath moved to newPath.
func (m *Machine) rebase(oldPath, newPath string, isDir bool) {
	moveRef := func(r ref) ref {
		if r.Dir == isDir && r.Path == oldPath {
			return ref{Path: newPath, Dir: isDir}
		}
		if isDir {
			if rest, ok := strings.CutPrefix(r.Path, oldPath+"/"); ok {
				return ref{Path: newPath + "/" + rest, Dir: r.Dir}
			}
		}
		return r
	}
	moveDir := func(dir string) string {
		if !isDir {
			return dir
		}
		return moveRef(ref{Path: dir, Dir: true}).Path
	}

	m.dir = moveDir(m.dir)
	m.sel = moveRef(m.sel)
	for i := range m.history {
		m.history[i].dir = moveDir(m.history[i].dir)
		m.history[i].sel = moveRef(m.history[i].sel)
	}
}

func (m *Machine) refresh() {
	if m.rescan == nil {
		return
	}
	tree, err := m.rescan()
	if err != nil {
		m.log.Warn("rescan failed", zap.Error(err))
		m.setStatus("Rescan failed: "+err.Error(), LevelError)
		return
	}
	m.tree = tree
	m.reconcile()
	if m.mode == Searching {
		m.updateResults()
	}
	m.setStatus("Store reloaded", LevelInfo)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
