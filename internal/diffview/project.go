package diffview

import (
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/editscript"
	"github.com/interpretive-systems/diffkit/internal/hunk"
)

// SplitView is a side-by-side projection. Left and Right always have the same length; row i of each side is shown
// on the same visual line.
type SplitView struct {
	Left  []Row
	Right []Row
}

// Len returns the number of visual lines.
func (v SplitView) Len() int {
	return len(v.Left)
}

// RowForLine returns the index of the first row showing line on side, or -1.
func (v SplitView) RowForLine(side Side, line int) int {
	rows := v.Right
	if side == SideOld {
		rows = v.Left
	}
	return rowForLine(rows, side, line)
}

func rowForLine(rows []Row, side Side, line int) int {
	for i, r := range rows {
		if r.Continuation {
			continue
		}
		if l, ok := r.Line(side); ok && l == line {
			return i
		}
	}
	return -1
}

// Unified projects m into a single column. Each hunk starts with a header row; collapsed hunks are a single
// RowCollapsed row. Within a change run the removed halves come before the added halves, or after them when the
// model was computed with inserts first.
func Unified(m *diffmodel.Model, vs *ViewState) []Row {
	var rows []Row
	for _, h := range m.Hunks {
		if vs.IsCollapsed(h.ID) {
			rows = append(rows, collapsedRow(h, SideBoth, unifiedLen(h)))
			continue
		}
		rows = append(rows, headerRow(h, SideBoth))
		ops := h.Ops
		for i := 0; i < len(ops); {
			if ops[i].Kind == editscript.Equal {
				op := ops[i]
				rows = append(rows, Row{
					Kind:    RowContext,
					Side:    SideBoth,
					OldLine: intp(op.Old),
					NewLine: intp(op.New),
					Text:    m.NewText(op.New),
					HunkID:  h.ID,
				})
				i++
				continue
			}
			j := i
			for j < len(ops) && ops[j].IsChange() {
				j++
			}
			removed := oldHalves(m, ops[i:j], h.ID)
			added := newHalves(m, ops[i:j], h.ID)
			if m.Config.InsertsFirst {
				rows = append(append(rows, added...), removed...)
			} else {
				rows = append(append(rows, removed...), added...)
			}
			i = j
		}
	}
	return wrapRows(rows, vs.wrapWidth())
}

func oldHalves(m *diffmodel.Model, run []editscript.Op, id int) []Row {
	var out []Row
	for _, op := range run {
		if op.HasOld() {
			out = append(out, oldRow(m, op, id))
		}
	}
	return out
}

func newHalves(m *diffmodel.Model, run []editscript.Op, id int) []Row {
	var out []Row
	for _, op := range run {
		if op.HasNew() {
			out = append(out, newRow(m, op, id))
		}
	}
	return out
}

// Split projects m into two aligned columns. Context lines sit side by side, a Replace pairs its two halves, and a
// pure Delete or Insert faces a RowPad.
func Split(m *diffmodel.Model, vs *ViewState) SplitView {
	var v SplitView
	for _, h := range m.Hunks {
		if vs.IsCollapsed(h.ID) {
			v.Left = append(v.Left, collapsedRow(h, SideOld, len(h.Ops)))
			v.Right = append(v.Right, collapsedRow(h, SideNew, len(h.Ops)))
			continue
		}
		v.Left = append(v.Left, headerRow(h, SideOld))
		v.Right = append(v.Right, headerRow(h, SideNew))
		for _, op := range h.Ops {
			switch op.Kind {
			case editscript.Equal:
				v.Left = append(v.Left, Row{Kind: RowContext, Side: SideOld, OldLine: intp(op.Old), NewLine: intp(op.New), Text: m.OldText(op.Old), HunkID: h.ID})
				v.Right = append(v.Right, Row{Kind: RowContext, Side: SideNew, OldLine: intp(op.Old), NewLine: intp(op.New), Text: m.NewText(op.New), HunkID: h.ID})
			case editscript.Replace:
				v.Left = append(v.Left, oldRow(m, op, h.ID))
				v.Right = append(v.Right, newRow(m, op, h.ID))
			case editscript.Delete:
				v.Left = append(v.Left, oldRow(m, op, h.ID))
				v.Right = append(v.Right, padRow(SideNew, h.ID, false))
			case editscript.Insert:
				v.Left = append(v.Left, padRow(SideOld, h.ID, false))
				v.Right = append(v.Right, newRow(m, op, h.ID))
			}
		}
	}
	return wrapSplit(v, vs.wrapWidth())
}

func headerRow(h hunk.Hunk, side Side) Row {
	return Row{Kind: RowHunk, Side: side, Text: h.Header(), HunkID: h.ID}
}

// collapsedRow stands in for a hunk that would have shown hidden lines, not counting its header.
func collapsedRow(h hunk.Hunk, side Side, hidden int) Row {
	return Row{Kind: RowCollapsed, Side: side, Text: h.Header(), HunkID: h.ID, Hidden: hidden}
}

// unifiedLen is the number of unified lines of h: a Replace shows as a removed and an added line.
func unifiedLen(h hunk.Hunk) int {
	n := len(h.Ops)
	for _, op := range h.Ops {
		if op.Kind == editscript.Replace {
			n++
		}
	}
	return n
}

func padRow(side Side, id int, cont bool) Row {
	return Row{Kind: RowPad, Side: side, HunkID: id, Continuation: cont}
}

func oldRow(m *diffmodel.Model, op editscript.Op, id int) Row {
	spans, _ := m.Spans(op)
	kind := RowRemoved
	if op.Kind == editscript.Replace {
		kind = RowModified
	}
	r := Row{Kind: kind, Side: SideOld, OldLine: intp(op.Old), Text: m.OldText(op.Old), Spans: spans, HunkID: id}
	if op.HasNew() {
		r.NewLine = intp(op.New)
	}
	return r
}

func newRow(m *diffmodel.Model, op editscript.Op, id int) Row {
	_, spans := m.Spans(op)
	kind := RowAdded
	if op.Kind == editscript.Replace {
		kind = RowModified
	}
	r := Row{Kind: kind, Side: SideNew, NewLine: intp(op.New), Text: m.NewText(op.New), Spans: spans, HunkID: id}
	if op.HasOld() {
		r.OldLine = intp(op.Old)
	}
	return r
}
