package search

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/interpretive-systems/diffkit/internal/ansi"
)

// RenderOverlay renders the search input and its status line.
func (e *Engine) RenderOverlay(width int, dividerColor string) []string {
	if !e.active || width <= 0 {
		return nil
	}

	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color(dividerColor)).
		Render(strings.Repeat("─", width))

	status := "Type to search (tab: scope, esc: clear, enter: keep highlights)"
	if e.query != "" {
		if len(e.matches) == 0 {
			status = "No matches (esc: clear)"
		} else {
			status = fmt.Sprintf("Match %d of %d  (↓: next, ↑: prev, enter: done, esc: clear)",
				e.CurrentMatchIndex(), e.MatchCount())
		}
	}
	if e.scope == ScopeChanges {
		status = "[changes] " + status
	}

	return []string{
		divider,
		ansi.PadExact(e.InputView(), width),
		ansi.PadExact(lipgloss.NewStyle().Faint(true).Render(status), width),
	}
}
