package diffview

// Anchor identifies a scroll position independently of the projection, so switching between unified and split, or
// rewrapping, keeps the same line on screen.
type Anchor struct {
	Side   Side // SideNew or SideOld; SideBoth when the anchor has no line
	Line   int
	HunkID int
}

// AnchorAt returns the anchor of rows[i]. Rows without a line (headers, padding) anchor on the next row that has one,
// else on their hunk.
func AnchorAt(rows []Row, i int) Anchor {
	if len(rows) == 0 {
		return Anchor{Side: SideBoth}
	}
	i = min(max(i, 0), len(rows)-1)
	for j := i; j < len(rows) && rows[j].HunkID == rows[i].HunkID; j++ {
		if rows[j].IsHeader() && j != i {
			break
		}
		if a, ok := lineAnchor(rows[j]); ok {
			return a
		}
	}
	return Anchor{Side: SideBoth, HunkID: rows[i].HunkID}
}

func lineAnchor(r Row) (Anchor, bool) {
	if r.NewLine != nil {
		return Anchor{Side: SideNew, Line: *r.NewLine, HunkID: r.HunkID}, true
	}
	if r.OldLine != nil {
		return Anchor{Side: SideOld, Line: *r.OldLine, HunkID: r.HunkID}, true
	}
	return Anchor{}, false
}

// Locate returns the index of the row a should scroll to: the first row showing the anchored line, else the header
// of the anchored hunk (collapsed hunks hide their lines), else 0.
func Locate(rows []Row, a Anchor) int {
	if a.Side != SideBoth {
		if i := rowForLine(rows, a.Side, a.Line); i >= 0 {
			return i
		}
	}
	for i, r := range rows {
		if r.IsHeader() && r.HunkID == a.HunkID {
			return i
		}
	}
	return 0
}

// NextHunk returns the index of the first hunk header after row i, or -1.
func NextHunk(rows []Row, i int) int {
	for j := max(i+1, 0); j < len(rows); j++ {
		if rows[j].IsHeader() {
			return j
		}
	}
	return -1
}

// PrevHunk returns the index of the last hunk header before row i, or -1.
func PrevHunk(rows []Row, i int) int {
	for j := min(i-1, len(rows)-1); j >= 0; j-- {
		if rows[j].IsHeader() {
			return j
		}
	}
	return -1
}

// HunkOf returns the hunk id of rows[i], or -1 when i is out of range.
func HunkOf(rows []Row, i int) int {
	if i < 0 || i >= len(rows) {
		return -1
	}
	return rows[i].HunkID
}
