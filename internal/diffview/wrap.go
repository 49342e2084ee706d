package diffview

import (
	"unicode/utf8"

	"github.com/interpretive-systems/diffkit/internal/refine"
	"github.com/mattn/go-runewidth"
)

// TabWidth is the display width of a tab. Renderers expand tabs to this many spaces.
const TabWidth = 4

// CellWidth returns the display width of r.
func CellWidth(r rune) int {
	if r == '\t' {
		return TabWidth
	}
	return runewidth.RuneWidth(r)
}

// DisplayWidth returns the display width of s.
func DisplayWidth(s string) int {
	w := 0
	for _, r := range s {
		w += CellWidth(r)
	}
	return w
}

// breaks returns the byte offsets at which s is cut so that no chunk is wider than width. A rune wider than width
// gets a chunk of its own.
func breaks(s string, width int) []int {
	var cuts []int
	start, w := 0, 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		cw := CellWidth(r)
		if w+cw > width && i > start {
			cuts = append(cuts, i)
			start, w = i, 0
		}
		w += cw
		i += size
	}
	return cuts
}

// wrapRow cuts r into rows no wider than width. Header rows are never wrapped.
func wrapRow(r Row, width int) []Row {
	if width <= 0 || r.IsHeader() || r.Kind == RowPad || r.Kind == RowMeta {
		return []Row{r}
	}
	cuts := breaks(r.Text, width)
	if len(cuts) == 0 {
		return []Row{r}
	}
	out := make([]Row, 0, len(cuts)+1)
	from := 0
	for i := 0; i <= len(cuts); i++ {
		to := len(r.Text)
		if i < len(cuts) {
			to = cuts[i]
		}
		c := r
		c.Text = r.Text[from:to]
		c.Spans = clipSpans(r.Spans, from, to)
		c.Continuation = r.Continuation || i > 0
		out = append(out, c)
		from = to
	}
	return out
}

// clipSpans returns the parts of spans inside [from, to), shifted to start at 0.
func clipSpans(spans []refine.Span, from, to int) []refine.Span {
	if spans == nil {
		return nil
	}
	out := []refine.Span{}
	for _, s := range spans {
		a, b := max(s.Start, from), min(s.End, to)
		if a >= b {
			continue
		}
		out = append(out, refine.Span{Start: a - from, End: b - from, Kind: s.Kind})
	}
	return out
}

func wrapRows(rows []Row, width int) []Row {
	if width <= 0 {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, wrapRow(r, width)...)
	}
	return out
}

// wrapSplit wraps both columns and pads the shorter side of every line pair so the columns stay aligned.
func wrapSplit(v SplitView, width int) SplitView {
	if width <= 0 {
		return v
	}
	var out SplitView
	for i := range v.Left {
		l, r := wrapRow(v.Left[i], width), wrapRow(v.Right[i], width)
		for len(l) < len(r) {
			l = append(l, padRow(SideOld, v.Left[i].HunkID, true))
		}
		for len(r) < len(l) {
			r = append(r, padRow(SideNew, v.Right[i].HunkID, true))
		}
		out.Left = append(out.Left, l...)
		out.Right = append(out.Right, r...)
	}
	return out
}
