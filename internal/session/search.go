package session

import "pass-tui/internal/storetree"

func (m *Machine) handleSearch(ev Event) Effect {
	switch ev.Kind {
	case Char:
		m.query += string(ev.Rune)
		m.updateResults()
	case Backspace:
		if q := []rune(m.query); len(q) > 0 {
			m.query = string(q[:len(q)-1])
			m.updateResults()
		}
	case Up:
		if len(m.results) > 0 {
			m.resultCursor = clamp(m.resultCursor-1, 0, len(m.results)-1)
		}
	case Down:
		if len(m.results) > 0 {
			m.resultCursor = clamp(m.resultCursor+1, 0, len(m.results)-1)
		}
	case Top:
		m.resultCursor = 0
	case Bottom:
		if len(m.results) > 0 {
			m.resultCursor = len(m.results) - 1
		}
	case Confirm, Descend:
		m.acceptResult()
	case Cancel:
		m.leaveSearch()
	case Request:
		// Acting on the highlighted result selects it first.
		if m.acceptResult() {
			return m.request(ev.Action)
		}
	case Refresh:
		m.refresh()
	}
	return Effect{}
}

func (m *Machine) updateResults() {
	m.results = m.search.Search(m.tree, m.query)
	m.resultCursor = 0
}

func (m *Machine) acceptResult() bool {
	if len(m.results) == 0 {
		m.setStatus("No match", LevelInfo)
		return false
	}
	r := refOf(m.results[clamp(m.resultCursor, 0, len(m.results)-1)].Entry)
	m.leaveSearch()
	if r == m.sel {
		return true
	}
	// Back returns here even when the result shares the listed category.
	m.pushHistory()
	m.dir = storetree.ParentPath(r.Path)
	m.sel = r
	m.reconcile()
	return true
}

func (m *Machine) leaveSearch() {
	m.query = ""
	m.results = nil
	m.resultCursor = 0
	m.setMode(Browse)
}
