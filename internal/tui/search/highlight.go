package search

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/interpretive-systems/diffkit/internal/ansi"
)

const (
	// Normal match: black on bright white
	matchStartSeq = "\x1b[30;107m"
	// Current match: black on yellow
	currentMatchStartSeq = "\x1b[30;43m"
	matchEndSeq          = "\x1b[0m"
)

// Highlighter applies search highlights to text.
type Highlighter struct{}

// NewHighlighter creates a new highlighter.
func NewHighlighter() *Highlighter {
	return &Highlighter{}
}

// HighlightLines highlights query in the lines listed in matches. fold makes the comparison case-insensitive.
func (h *Highlighter) HighlightLines(lines []string, query string, fold bool, matches []int, currentLine int) []string {
	if len(lines) == 0 || query == "" {
		return lines
	}
	matchSet := make(map[int]struct{}, len(matches))
	for _, idx := range matches {
		matchSet[idx] = struct{}{}
	}

	result := make([]string, len(lines))
	for i, line := range lines {
		if _, ok := matchSet[i]; !ok {
			result[i] = line
			continue
		}
		ranges := findQueryRanges(line, query, fold)
		if len(ranges) == 0 {
			result[i] = line
			continue
		}
		result[i] = h.applyRangeHighlight(line, ranges, i == currentLine)
	}
	return result
}

// RuneRange is a half-open range of runes in the escape-free text of a line.
type RuneRange struct {
	Start int
	End   int
}

// findQueryRanges finds all occurrences of query in the escape-free text of line. Overlapping occurrences merge.
func findQueryRanges(line, query string, fold bool) []RuneRange {
	plain := ansi.Strip(line)
	if fold {
		plain, query = strings.ToLower(plain), strings.ToLower(query)
	}
	text, q := []rune(plain), []rune(query)
	if len(q) == 0 || len(q) > len(text) {
		return nil
	}

	var ranges []RuneRange
	for i := 0; i <= len(text)-len(q); i++ {
		if string(text[i:i+len(q)]) != string(q) {
			continue
		}
		if n := len(ranges); n > 0 && i <= ranges[n-1].End {
			ranges[n-1].End = i + len(q)
			continue
		}
		ranges = append(ranges, RuneRange{Start: i, End: i + len(q)})
	}
	return ranges
}

// applyRangeHighlight wraps the ranges in highlight sequences, copying the line's own escape sequences through.
func (h *Highlighter) applyRangeHighlight(line string, ranges []RuneRange, isCurrent bool) string {
	startSeq := matchStartSeq
	if isCurrent {
		startSeq = currentMatchStartSeq
	}

	var b strings.Builder
	var state byte
	pos, ri, in := 0, 0, false
	for rest := line; rest != ""; {
		seq, width, n, newState := xansi.DecodeSequence(rest, state, nil)
		state = newState
		rest = rest[n:]
		if width == 0 && strings.HasPrefix(seq, "\x1b") {
			b.WriteString(seq)
			if in {
				// the line's own styling may have reset ours
				b.WriteString(startSeq)
			}
			continue
		}
		for _, r := range seq {
			if in && pos == ranges[ri].End {
				b.WriteString(matchEndSeq)
				in = false
				ri++
			}
			if !in && ri < len(ranges) && pos == ranges[ri].Start {
				b.WriteString(startSeq)
				in = true
			}
			b.WriteRune(r)
			pos++
		}
	}
	if in {
		b.WriteString(matchEndSeq)
	}
	return b.String()
}
