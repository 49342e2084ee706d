package diffview

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/interpretive-systems/diffkit/internal/refine"
)

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// BuildRowsFromUnified parses a unified diff string (for example git output) into side-by-side rows.
// Deletions are paired with subsequent additions as modified rows and refined like computed diffs; any remaining
// lines face padding. Line numbers come from the hunk headers.
func BuildRowsFromUnified(unified string) SplitView {
	s := bufio.NewScanner(strings.NewReader(unified))
	s.Buffer(make([]byte, 0, 64*1024), 10*1024*1024) // allow large lines

	var v SplitView
	type pending struct {
		text string
		line int
	}
	pendingDel := make([]pending, 0)
	hunkID := -1
	oldLine, newLine := 0, 0
	opts := refine.DefaultOptions()

	push := func(l, r Row) {
		v.Left = append(v.Left, l)
		v.Right = append(v.Right, r)
	}
	flushPending := func() {
		for _, d := range pendingDel {
			push(Row{Kind: RowRemoved, Side: SideOld, OldLine: intp(d.line), Text: d.text, Spans: refine.Whole(d.text, refine.Removed), HunkID: hunkID},
				padRow(SideNew, hunkID, false))
		}
		pendingDel = pendingDel[:0]
	}

	inHunk := false
	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, "diff --git ") || strings.HasPrefix(line, "index ") || strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			// Metadata; flush any pending deletions
			flushPending()
			inHunk = false
			push(Row{Kind: RowMeta, Side: SideOld, Text: line, HunkID: hunkID}, Row{Kind: RowMeta, Side: SideNew, Text: line, HunkID: hunkID})
			continue
		}
		if m := hunkHeader.FindStringSubmatch(line); m != nil {
			flushPending()
			hunkID++
			oldLine = headerStart(m[1], m[2])
			newLine = headerStart(m[3], m[4])
			push(Row{Kind: RowHunk, Side: SideOld, Text: line, HunkID: hunkID}, Row{Kind: RowHunk, Side: SideNew, Text: line, HunkID: hunkID})
			inHunk = true
			continue
		}
		if !inHunk {
			// Outside hunks, we don't have meaningful line-level info; skip
			continue
		}

		if len(line) == 0 {
			// Some tools strip the space from blank context lines.
			line = " "
		}

		switch line[0] {
		case ' ':
			flushPending()
			t := line[1:]
			push(Row{Kind: RowContext, Side: SideOld, OldLine: intp(oldLine), NewLine: intp(newLine), Text: t, HunkID: hunkID},
				Row{Kind: RowContext, Side: SideNew, OldLine: intp(oldLine), NewLine: intp(newLine), Text: t, HunkID: hunkID})
			oldLine++
			newLine++
		case '-':
			pendingDel = append(pendingDel, pending{text: line[1:], line: oldLine})
			oldLine++
		case '+':
			t := line[1:]
			if len(pendingDel) > 0 {
				// Pair with the earliest pending deletion
				d := pendingDel[0]
				pendingDel = pendingDel[1:]
				r := refine.Pair(d.text, t, opts)
				push(Row{Kind: RowModified, Side: SideOld, OldLine: intp(d.line), NewLine: intp(newLine), Text: d.text, Spans: r.Old, HunkID: hunkID},
					Row{Kind: RowModified, Side: SideNew, OldLine: intp(d.line), NewLine: intp(newLine), Text: t, Spans: r.New, HunkID: hunkID})
			} else {
				push(padRow(SideOld, hunkID, false),
					Row{Kind: RowAdded, Side: SideNew, NewLine: intp(newLine), Text: t, Spans: refine.Whole(t, refine.Added), HunkID: hunkID})
			}
			newLine++
		default:
			// "\ No newline at end of file" and unknown lines
		}
	}
	flushPending()
	return v
}

// headerStart converts a 1-based header start to a 0-based line index. An empty range names the line before it.
func headerStart(start, length string) int {
	n, _ := strconv.Atoi(start)
	if length == "0" {
		return n
	}
	return max(n-1, 0)
}
