package session

import (
	"pass-tui/internal/clipboard"
	"pass-tui/internal/search"
)

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

type Status struct {
	Text  string
	Level Level
}

// Preview is decrypted output shown in place. It lives only in memory and
// is dropped as soon as the selection moves.
type Preview struct {
	Path string
	Text string
	QR   bool
}

type Row struct {
	Name    string
	Path    string
	IsDir   bool
	Entries int
}

// View is a read-only snapshot for the renderer.
type View struct {
	Mode Mode
	Dir  string
	Rows []Row
	// Cursor indexes Rows; -1 when Rows is empty.
	Cursor int

	Query        string
	Results      []search.Result
	ResultCursor int

	Prompt     string
	Input      string
	ConfirmYes bool

	Preview   *Preview
	Status    Status
	Fatal     string
	Clipboard clipboard.State

	InFlight     int
	Busy         bool
	Terminating  bool
	HistoryDepth int
	Entries      int
}

func (m *Machine) Snapshot() View {
	v := View{
		Mode:         m.mode,
		Dir:          m.dir,
		Cursor:       -1,
		Query:        m.query,
		Results:      m.results,
		ResultCursor: m.resultCursor,
		Input:        m.input,
		ConfirmYes:   m.confirmYes,
		Preview:      m.preview,
		Status:       m.status,
		Fatal:        m.fatal,
		InFlight:     len(m.inflight),
		Busy:         m.structuralInFlight(),
		Terminating:  m.terminating,
		HistoryDepth: len(m.history),
		Entries:      m.tree.Len(),
	}
	if m.pending != nil {
		v.Prompt = m.pending.prompt
	}
	if m.clip != nil {
		v.Clipboard = m.clip.State()
	}
	for _, n := range m.rows() {
		v.Rows = append(v.Rows, Row{
			Name:    n.Name(),
			Path:    n.Path(),
			IsDir:   n.IsCategory(),
			Entries: n.EntryCount(),
		})
	}
	if len(v.Rows) > 0 {
		v.Cursor = clamp(m.cursor, 0, len(v.Rows)-1)
	}
	return v
}

// setStatus shows text until StatusTTL passes or another status replaces it.
func (m *Machine) setStatus(text string, level Level) {
	m.status = Status{Text: text, Level: level}
	m.statusSeq++
	seq := m.statusSeq
	if m.opts.StatusTTL <= 0 || text == "" {
		return
	}
	m.timer.After(m.opts.StatusTTL, func() {
		if m.statusSeq == seq {
			m.status = Status{}
		}
	})
}
