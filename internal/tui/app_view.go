package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pass-tui/internal/search"
	"pass-tui/internal/session"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

func (m appModel) View() string {
	v := m.sm.Snapshot()
	w, h := m.width, m.height
	if w <= 0 {
		w = 80
	}
	if h <= 0 {
		h = 24
	}

	header := m.renderHeader(v, w)
	footer := m.renderFooter(v, w)
	bodyH := max(h-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	var body string
	switch {
	case v.Fatal != "":
		body = normalizePane("\n "+styleError().Render(v.Fatal)+"\n\n "+styleMuted().Render("q: quit"), w, bodyH)
	case m.showHelp:
		body = normalizePane(renderHelp(m.keys.helpMarkdown(), w-2), w, bodyH)
	case v.Preview != nil:
		listW := w / 2
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderList(v, listW, bodyH),
			renderPreview(v.Preview, w-listW, bodyH),
		)
	default:
		body = m.renderList(v, w, bodyH)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m appModel) renderHeader(v session.View, w int) string {
	loc := filepath.Base(m.store)
	if v.Dir != "" {
		loc += "/" + v.Dir
	}
	left := styleAccent().Bold(true).Render("pass") + " " + loc
	if v.Mode == session.Searching {
		left += styleMuted().Render(fmt.Sprintf("  %d of %d", len(v.Results), v.Entries))
	}

	var right []string
	if v.InFlight > 0 {
		right = append(right, m.spin.View()+styleMuted().Render(fmt.Sprintf(" %d running", v.InFlight)))
	}
	if badge := m.git.Badge(); badge != "" {
		right = append(right, styleMuted().Render(badge))
	}
	r := strings.Join(right, "  ")

	gap := w - xansi.StringWidth(left) - xansi.StringWidth(r)
	if gap < 1 {
		return normalizePane(left, w, 1)
	}
	return left + strings.Repeat(" ", gap) + r
}

func (m appModel) renderList(v session.View, w, h int) string {
	if v.Mode == session.Searching {
		return renderResults(v.Results, v.ResultCursor, v.Query, w, h)
	}
	if len(v.Rows) == 0 {
		return normalizePane(styleMuted().Render(" (empty)"), w, h)
	}

	start, end := window(len(v.Rows), v.Cursor, h)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		row := v.Rows[i]
		var ln string
		if row.IsDir {
			ln = " " + styleDir().Render(row.Name+"/") + styleMuted().Render(fmt.Sprintf(" %d", row.Entries))
		} else {
			ln = " " + row.Name
		}
		if i == v.Cursor {
			ln = styleSelected().Render(fitWidth(xansi.Strip(ln), w))
		}
		lines = append(lines, ln)
	}
	return normalizePane(strings.Join(lines, "\n"), w, h)
}

func renderResults(results []search.Result, cursor int, query string, w, h int) string {
	if strings.TrimSpace(query) == "" {
		return normalizePane(styleMuted().Render(" type to search every entry"), w, h)
	}
	if len(results) == 0 {
		return normalizePane(styleMuted().Render(" no match"), w, h)
	}
	start, end := window(len(results), cursor, h)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		r := results[i]
		if i == cursor {
			lines = append(lines, styleSelected().Render(fitWidth(" "+r.Path(), w)))
			continue
		}
		lines = append(lines, " "+highlight(r.Path(), r.Matched))
	}
	return normalizePane(strings.Join(lines, "\n"), w, h)
}

// highlight styles the runes of s starting at the given byte offsets.
func highlight(s string, offsets []int) string {
	if len(offsets) == 0 {
		return s
	}
	hit := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		hit[o] = true
	}
	var b strings.Builder
	for off, r := range s {
		if hit[off] {
			b.WriteString(styleMatch().Render(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func renderPreview(p *session.Preview, w, h int) string {
	title := p.Path
	if p.QR {
		title += " (qr)"
	}
	border := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(colorChromeFg).
		PaddingLeft(1)
	text := strings.TrimRight(p.Text, "\n")
	body := styleAccent().Bold(true).Render(title) + "\n\n" + text
	return border.Render(normalizePane(body, max(w-2, 1), h))
}

func (m appModel) renderFooter(v session.View, w int) string {
	var lines []string
	switch v.Mode {
	case session.Searching:
		lines = append(lines, renderInputLine(w, "/", v.Query))
	case session.AwaitingInput:
		lines = append(lines, renderInputLine(w, v.Prompt, v.Input))
	case session.Confirming:
		lines = append(lines, renderConfirm(w, v.Prompt, v.ConfirmYes))
	}
	return strings.Join(append(lines, m.renderStatus(v, w)), "\n")
}

// renderStatus is the minibuffer: the latest status on the left, the
// clipboard countdown on the right.
func (m appModel) renderStatus(v session.View, w int) string {
	left := v.Status.Text
	if v.Status.Level == session.LevelError {
		left = styleError().Render(left)
	}
	right := styleMuted().Render("? help")
	switch {
	case v.Clipboard.Held && v.Clipboard.Deadline.IsZero():
		right = styleAccent().Render("clipboard held") + "  " + right
	case v.Clipboard.Held:
		secs := int(v.Clipboard.Remaining(time.Now()) / time.Second)
		right = styleAccent().Render(fmt.Sprintf("clipboard %ds", secs)) + "  " + right
	}
	gap := w - xansi.StringWidth(left) - xansi.StringWidth(right)
	if gap < 1 {
		return fitWidth(left, w)
	}
	return left + strings.Repeat(" ", gap) + right
}
