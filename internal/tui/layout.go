package tui

import (
	"strings"

	"github.com/interpretive-systems/diffkit/internal/ansi"
	"github.com/interpretive-systems/diffkit/internal/theme"
)

const minPaneWidth = 20

// Layout manages screen layout calculations.
type Layout struct {
	width     int
	height    int
	leftWidth int
}

// NewLayout creates a new layout manager.
func NewLayout() *Layout {
	return &Layout{}
}

// SetSize updates the layout dimensions. The left pane starts at a third of the width.
func (l *Layout) SetSize(width, height int) {
	l.width = width
	l.height = height
	if l.leftWidth == 0 {
		l.leftWidth = max(width/3, 24)
	}
}

// SetLeftWidth sets the left pane width.
func (l *Layout) SetLeftWidth(width int) {
	l.leftWidth = width
}

// Width returns the total width.
func (l *Layout) Width() int {
	return l.width
}

// Height returns the total height.
func (l *Layout) Height() int {
	return l.height
}

// LeftWidth returns the left pane width.
func (l *Layout) LeftWidth() int {
	return max(l.leftWidth, minPaneWidth)
}

// RightWidth returns the right pane width.
func (l *Layout) RightWidth() int {
	return max(l.width-l.LeftWidth()-1, 1) // 1 for divider
}

// ContentHeight returns the height available for content.
func (l *Layout) ContentHeight(overlayHeight int) int {
	// top bar + top rule + bottom rule + bottom bar + overlays
	return max(l.height-4-overlayHeight, 1)
}

// AdjustLeftWidth adjusts the left width by delta.
func (l *Layout) AdjustLeftWidth(delta int) {
	l.leftWidth = min(max(l.leftWidth+delta, minPaneWidth), max(l.width-minPaneWidth, minPaneWidth))
}

// RenderFrame renders the main frame with top bar, rules, and columns.
func (l *Layout) RenderFrame(topLeft, topRight string, leftLines, rightLines, overlayLines []string, bottomBar string, th theme.Theme) string {
	var b strings.Builder
	b.WriteString(l.renderTopBar(topLeft, topRight))
	b.WriteByte('\n')
	b.WriteString(th.DividerText(strings.Repeat("─", l.width)))
	b.WriteByte('\n')

	leftW, rightW := l.LeftWidth(), l.RightWidth()
	sep := th.DividerText("│")
	rows := l.ContentHeight(len(overlayLines))
	for i := 0; i < rows; i++ {
		var left, right string
		if i < len(leftLines) {
			left = leftLines[i]
		}
		if i < len(rightLines) {
			right = rightLines[i]
		}
		b.WriteString(padToWidth(left, leftW))
		b.WriteString(sep)
		b.WriteString(padToWidth(right, rightW))
		if i < rows-1 {
			b.WriteByte('\n')
		}
	}

	for _, line := range overlayLines {
		b.WriteByte('\n')
		b.WriteString(padToWidth(line, l.width))
	}

	b.WriteByte('\n')
	b.WriteString(th.DividerText(strings.Repeat("─", l.width)))
	b.WriteByte('\n')
	b.WriteString(bottomBar)
	return b.String()
}

func (l *Layout) renderTopBar(left, right string) string {
	rightW := ansi.VisualWidth(right)
	if rightW >= l.width {
		return ansi.TruncateToWidth(right, l.width)
	}
	return padToWidth(left, l.width-rightW-1) + " " + right
}

// padToWidth pads or truncates s, with an ellipsis, to exactly w columns.
func padToWidth(s string, w int) string {
	if ansi.VisualWidth(s) > w {
		s = ansi.TruncateToWidth(s, w)
	}
	return ansi.PadExact(s, w)
}
