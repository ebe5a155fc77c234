package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func renderConfirm(width int, prompt string, yes bool) string {
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	confirm := btnBase.Render("Yes")
	cancel := btnBase.Render("No")
	if yes {
		confirm = btnActive.Render("Yes")
	} else {
		cancel = btnActive.Render("No")
	}
	sep := lipgloss.NewStyle().Background(colorControlBg).Render(" ")
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, sep, cancel)

	help := styleMuted().Render("y/n   tab: switch   enter: select   esc: cancel")
	body := strings.Join([]string{
		styleError().Render(prompt),
		controls + "  " + help,
	}, "\n")
	return normalizePane(body, width, 0)
}
