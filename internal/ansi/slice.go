package ansi

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// ClipToWidth truncates string to at most w visual columns without ellipsis.
func ClipToWidth(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return ansi.Truncate(s, w, "")
}

// PadExact clips or pads string with spaces to exactly width w (ANSI-aware).
func PadExact(s string, w int) string {
	s = ClipToWidth(s, w)
	vw := VisualWidth(s)
	if vw >= w {
		return s
	}
	return s + strings.Repeat(" ", w-vw)
}

// TruncateToWidth truncates to width with ellipsis if needed.
func TruncateToWidth(s string, width int) string {
	return ansi.Truncate(s, width, "…")
}

// SkipColumns drops the first n visual columns of s, keeping escape sequences.
func SkipColumns(s string, n int) string {
	if n <= 0 {
		return s
	}
	return ansi.TruncateLeft(s, n, "")
}
