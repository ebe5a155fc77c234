package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// renderInputLine draws a one-line prompt with a block cursor. The text is
// scrolled from the left so the cursor end stays in view.
func renderInputLine(width int, prompt, text string) string {
	width = max(width, 10)
	// Newlines in typed text would break the single-line layout.
	text = strings.NewReplacer("\n", " ", "\r", " ").Replace(text)

	label := styleAccent().Bold(true).Render(prompt) + " "
	room := width - xansi.StringWidth(label) - 2
	if w := xansi.StringWidth(text); room > 0 && w > room {
		text = "…" + xansi.Cut(text, w-room+1, w)
	}
	cursor := lipgloss.NewStyle().Foreground(colorAccentFg).Background(colorAccent).Render(" ")

	line := lipgloss.PlaceHorizontal(
		width,
		lipgloss.Left,
		label+text+cursor,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > width {
		// Terminate styling so it does not bleed past the cut.
		line = xansi.Cut(line, 0, width) + "\x1b[0m"
	}
	return line
}
