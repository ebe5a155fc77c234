package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpRendererMu sync.Mutex
	// Keyed by style and wrap width. WithAutoStyle would query the terminal,
	// which can block, so the style follows lipgloss's background instead.
	helpRenderers = map[string]*glamour.TermRenderer{}
)

func (k keyMap) helpMarkdown() string {
	var b strings.Builder
	section := func(title string, bs ...key.Binding) {
		fmt.Fprintf(&b, "## %s\n\n| key | action |\n|---|---|\n", title)
		for _, kb := range bs {
			h := kb.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
		b.WriteString("\n")
	}
	section("Browse",
		k.Up, k.Down, k.Top, k.Bottom, k.Descend, k.Back, k.Search,
		k.Refresh, k.ClearClp, k.Quit, k.ForceQ)
	section("Entries",
		k.Show, k.QR, k.Copy, k.Edit, k.Insert, k.Generate, k.Rename, k.Move, k.Remove)
	section("Search",
		k.Accept, k.PrevResult, k.NextResult, k.SearchCopy, k.SearchShow, k.SearchEdit, k.Cancel)
	b.WriteString("Copied secrets are cleared from the clipboard when the countdown ends.\n")
	return b.String()
}

func renderHelp(md string, width int) string {
	width = max(width, 20)
	style := "dark"
	if !lipgloss.HasDarkBackground() {
		style = "light"
	}
	cacheKey := fmt.Sprintf("%s:%d", style, width)

	helpRendererMu.Lock()
	r := helpRenderers[cacheKey]
	helpRendererMu.Unlock()
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		helpRendererMu.Lock()
		if existing := helpRenderers[cacheKey]; existing != nil {
			r = existing
		} else {
			helpRenderers[cacheKey] = rr
			r = rr
		}
		helpRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
