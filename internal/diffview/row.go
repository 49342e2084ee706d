// Package diffview projects a diff model into display rows.
//
// Projectors are pure functions of a model and a ViewState: the same inputs always give the same rows, and neither
// input is modified. Unified produces one column; Split produces two columns of equal length.
package diffview

import (
	"github.com/interpretive-systems/diffkit/internal/refine"
)

// RowKind represents the semantic type of a row.
type RowKind int

const (
	RowContext RowKind = iota
	RowAdded
	RowRemoved
	RowModified
	RowCollapsed
	RowHunk
	RowPad
	RowMeta // file header of an external patch
)

func (k RowKind) String() string {
	switch k {
	case RowContext:
		return "context"
	case RowAdded:
		return "added"
	case RowRemoved:
		return "removed"
	case RowModified:
		return "modified"
	case RowCollapsed:
		return "collapsed"
	case RowHunk:
		return "hunk"
	case RowPad:
		return "pad"
	case RowMeta:
		return "meta"
	}
	return "unknown"
}

// Side says which version a row shows.
type Side int

const (
	SideBoth Side = iota
	SideOld
	SideNew
)

func (s Side) String() string {
	switch s {
	case SideOld:
		return "old"
	case SideNew:
		return "new"
	}
	return "both"
}

// Row is a single visual row.
type Row struct {
	Kind    RowKind
	Side    Side
	OldLine *int // 0-based, nil when the row has no old line
	NewLine *int // 0-based, nil when the row has no new line
	Text    string
	Spans   []refine.Span // byte offsets into Text; nil renders Text plainly
	HunkID  int
	Hidden  int // lines a RowCollapsed row stands in for, as the projection would have shown them
	// Continuation marks the second and later visual rows of a wrapped line.
	Continuation bool
}

// IsHeader reports whether r starts a hunk.
func (r Row) IsHeader() bool {
	return r.Kind == RowHunk || r.Kind == RowCollapsed
}

// Line returns the row's line on side s.
func (r Row) Line(s Side) (int, bool) {
	p := r.NewLine
	if s == SideOld {
		p = r.OldLine
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

func intp(i int) *int {
	return &i
}
