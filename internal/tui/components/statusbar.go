package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/interpretive-systems/diffkit/internal/ansi"
)

// StatusBar manages the bottom status bar.
type StatusBar struct {
	lastRefresh time.Time
	lastCommit  string
	keyBuffer   string
	stats       string
	message     string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	return &StatusBar{}
}

// SetLastRefresh updates the refresh timestamp.
func (s *StatusBar) SetLastRefresh(t time.Time) {
	s.lastRefresh = t
}

// SetLastCommit updates the last commit message.
func (s *StatusBar) SetLastCommit(msg string) {
	s.lastCommit = msg
}

// SetKeyBuffer updates the key buffer display.
func (s *StatusBar) SetKeyBuffer(buf string) {
	s.keyBuffer = buf
}

// SetStats shows the stats of the displayed diff.
func (s *StatusBar) SetStats(stats string) {
	s.stats = stats
}

// SetMessage shows a transient message, such as an error. An empty message clears it.
func (s *StatusBar) SetMessage(msg string) {
	s.message = msg
}

// Render renders the status bar. The right part is always visible; the left part is truncated to fit.
func (s *StatusBar) Render(width int) string {
	parts := []string{"h: help"}
	if s.keyBuffer != "" {
		parts[0] = s.keyBuffer
	}
	if s.message != "" {
		parts = append(parts, s.message)
	} else if s.lastCommit != "" {
		parts = append(parts, "last: "+s.lastCommit)
	}
	left := lipgloss.NewStyle().Faint(true).Render(strings.Join(parts, "  |  "))

	right := "refreshed: " + s.lastRefresh.Format("15:04:05")
	if s.stats != "" {
		right = s.stats + "  " + right
	}
	right = lipgloss.NewStyle().Faint(true).Render(right)

	rightW := ansi.VisualWidth(right)
	if rightW >= width {
		return ansi.TruncateToWidth(right, width)
	}
	avail := width - rightW - 1
	if ansi.VisualWidth(left) > avail {
		left = ansi.TruncateToWidth(left, avail)
	}
	return ansi.PadExact(left, avail) + " " + right
}
