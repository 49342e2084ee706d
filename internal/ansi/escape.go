// Package ansi holds helpers for strings that may carry ANSI escape sequences.
package ansi

import (
	"github.com/charmbracelet/x/ansi"
)

// Strip removes all ANSI escape sequences from the string.
func Strip(s string) string {
	return ansi.Strip(s)
}

// VisualWidth returns the display width of a string, excluding ANSI codes. Wide runes count as two columns.
func VisualWidth(s string) int {
	return ansi.StringWidth(s)
}
