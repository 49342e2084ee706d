// Package render turns projected rows into terminal text.
//
// Without color and line numbers, Unified output is a plain unified diff that patch tools accept.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/interpretive-systems/diffkit/internal/ansi"
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/diffview"
	"github.com/interpretive-systems/diffkit/internal/hunk"
	"github.com/interpretive-systems/diffkit/internal/refine"
	"github.com/interpretive-systems/diffkit/internal/theme"
)

// DefaultWidth is the split view width used when none is given.
const DefaultWidth = 160

// Options control rendering.
type Options struct {
	Color       bool
	Theme       theme.Theme
	LineNumbers bool
	WordDiff    bool // mark intra-line changes as [-removed-] and {+added+} in plain text
	Width       int  // total width of split output; 0 means DefaultWidth
	XOffset     int  // columns of line text scrolled off to the left
}

// FileHeader returns the ---/+++ lines of m.
func FileHeader(m *diffmodel.Model, opts Options) []string {
	lines := []string{"--- a/" + m.Old.Path, "+++ b/" + m.New.Path}
	if opts.Color {
		for i := range lines {
			lines[i] = opts.Theme.MetaText(lines[i])
		}
	}
	return lines
}

// StatsLine summarizes stats, e.g. "2 hunks, +3 -1".
func StatsLine(s hunk.Stats, opts Options) string {
	add, del := fmt.Sprintf("+%d", s.Additions), fmt.Sprintf("-%d", s.Deletions)
	if opts.Color {
		add, del = opts.Theme.AddText(add), opts.Theme.DelText(del)
	}
	noun := "hunks"
	if s.Hunks == 1 {
		noun = "hunk"
	}
	return fmt.Sprintf("%d %s, %s %s", s.Hunks, noun, add, del)
}

// UnifiedLines renders unified rows, one string per row.
func UnifiedLines(rows []diffview.Row, opts Options) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, unifiedLine(r, opts))
	}
	return out
}

func unifiedLine(r diffview.Row, opts Options) string {
	switch r.Kind {
	case diffview.RowHunk, diffview.RowMeta:
		return meta(r.Text, opts)
	case diffview.RowCollapsed:
		return meta(fmt.Sprintf("%s (%d lines hidden)", r.Text, r.Hidden), opts)
	}
	marker := markerFor(r)
	if r.Continuation {
		marker = " "
	}
	if opts.Color {
		switch marker {
		case "+":
			marker = opts.Theme.AddText(marker)
		case "-":
			marker = opts.Theme.DelText(marker)
		}
	}
	line := marker + ansi.SkipColumns(body(r, opts), opts.XOffset)
	if opts.LineNumbers {
		line = gutter(r, opts) + line
	}
	return line
}

// SplitLines renders a split view, one string per visual line.
func SplitLines(v diffview.SplitView, opts Options) []string {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	colW := max((width-1)/2, 10)
	mid := "│"
	if opts.Color {
		mid = opts.Theme.DividerText(mid)
	}
	out := make([]string, 0, v.Len())
	for i := range v.Left {
		l, r := v.Left[i], v.Right[i]
		if l.IsHeader() || l.Kind == diffview.RowMeta {
			text := l.Text
			if l.Kind == diffview.RowCollapsed {
				text = fmt.Sprintf("%s (%d lines hidden)", text, l.Hidden)
			}
			out = append(out, meta(ansi.TruncateToWidth(text, width), opts))
			continue
		}
		out = append(out, cell(l, colW, opts)+mid+cell(r, colW, opts))
	}
	return out
}

// cell renders one side of a split line: marker, optional line number, body, padded to width.
func cell(r diffview.Row, width int, opts Options) string {
	if r.Kind == diffview.RowPad {
		return strings.Repeat(" ", width)
	}
	marker := markerFor(r)
	if r.Continuation {
		marker = " "
	}
	if opts.Color {
		switch marker {
		case "+":
			marker = opts.Theme.AddText(marker)
		case "-":
			marker = opts.Theme.DelText(marker)
		}
	}
	prefix := marker + " "
	if opts.LineNumbers {
		n := ""
		if l, ok := r.Line(r.Side); ok && !r.Continuation {
			n = fmt.Sprintf("%d", l+1)
		}
		num := fmt.Sprintf("%4s ", n)
		if opts.Color {
			num = opts.Theme.GutterText(num)
		}
		prefix += num
	}
	return ansi.PadExact(prefix+ansi.SkipColumns(body(r, opts), opts.XOffset), width)
}

func markerFor(r diffview.Row) string {
	switch r.Kind {
	case diffview.RowAdded:
		return "+"
	case diffview.RowRemoved:
		return "-"
	case diffview.RowModified:
		if r.Side == diffview.SideOld {
			return "-"
		}
		return "+"
	}
	return " "
}

func gutter(r diffview.Row, opts Options) string {
	num := func(p *int) string {
		if p == nil || r.Continuation {
			return "    "
		}
		return fmt.Sprintf("%4d", *p+1)
	}
	oldN, newN := num(r.OldLine), num(r.NewLine)
	switch r.Kind {
	case diffview.RowAdded:
		oldN = "    "
	case diffview.RowRemoved:
		newN = "    "
	case diffview.RowModified:
		if r.Side == diffview.SideOld {
			newN = "    "
		} else {
			oldN = "    "
		}
	}
	g := oldN + " " + newN + " "
	if opts.Color {
		return opts.Theme.GutterText(g)
	}
	return g
}

func meta(s string, opts Options) string {
	if opts.Color {
		return opts.Theme.MetaText(s)
	}
	return s
}

// body renders the row text, styling each span by the row kind.
func body(r diffview.Row, opts Options) string {
	if r.Kind == diffview.RowContext || (!opts.Color && !opts.WordDiff) {
		return expandTabs(r.Text)
	}
	spans := r.Spans
	if spans == nil {
		return style(r, refine.Unchanged, expandTabs(r.Text), opts)
	}
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(style(r, s.Kind, expandTabs(r.Text[s.Start:s.End]), opts))
	}
	return sb.String()
}

func style(r diffview.Row, k refine.SpanKind, s string, opts Options) string {
	if !opts.Color {
		switch {
		case k == refine.Removed && r.Kind == diffview.RowModified:
			return "[-" + s + "-]"
		case k == refine.Added && r.Kind == diffview.RowModified:
			return "{+" + s + "+}"
		}
		return s
	}
	old := r.Side == diffview.SideOld
	switch {
	case k == refine.Removed && r.Kind == diffview.RowModified:
		return opts.Theme.DelSpan(s)
	case k == refine.Added && r.Kind == diffview.RowModified:
		return opts.Theme.AddSpan(s)
	case old:
		return opts.Theme.DelText(s)
	default:
		return opts.Theme.AddText(s)
	}
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", diffview.TabWidth))
}

// Unified writes the file header, the unified rows and, when withStats is set, the stats line.
func Unified(w io.Writer, m *diffmodel.Model, rows []diffview.Row, withStats bool, opts Options) error {
	lines := UnifiedLines(rows, opts)
	if len(rows) > 0 {
		lines = append(FileHeader(m, opts), lines...)
	}
	if withStats {
		lines = append(lines, StatsLine(m.Stats, opts))
	}
	return writeLines(w, lines)
}

// Split writes a split view and, when withStats is set, the stats line.
func Split(w io.Writer, m *diffmodel.Model, v diffview.SplitView, withStats bool, opts Options) error {
	lines := SplitLines(v, opts)
	if withStats {
		lines = append(lines, StatsLine(m.Stats, opts))
	}
	return writeLines(w, lines)
}

func writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	return nil
}

// Faint renders s dimmed when color is on.
func Faint(s string, opts Options) string {
	if !opts.Color {
		return s
	}
	return lipgloss.NewStyle().Faint(true).Render(s)
}
