// Package hunk groups an edit script into hunks with bounded context and folds hunks into stats.
package hunk

import (
	"fmt"

	"github.com/interpretive-systems/diffkit/internal/editscript"
)

// Hunk is a contiguous slice of the edit script: one or more change runs plus the context around them. Starts are
// 0-based line indices; lengths include context lines.
type Hunk struct {
	ID              int             `json:"id"`
	OldStart        int             `json:"old_start"`
	OldLen          int             `json:"old_len"`
	NewStart        int             `json:"new_start"`
	NewLen          int             `json:"new_len"`
	Ops             []editscript.Op `json:"ops"`
	LeadingContext  int             `json:"leading_context"`
	TrailingContext int             `json:"trailing_context"`
}

// Range is a pair of 0-based line ranges.
type Range struct {
	OldStart int
	OldLen   int
	NewStart int
	NewLen   int
}

// ChangedOps returns the ops between the leading and trailing context.
func (h Hunk) ChangedOps() []editscript.Op {
	return h.Ops[h.LeadingContext : len(h.Ops)-h.TrailingContext]
}

// Changed returns the line ranges of the hunk without its leading and trailing context.
func (h Hunk) Changed() Range {
	r := Range{OldStart: h.OldStart + h.LeadingContext, NewStart: h.NewStart + h.LeadingContext}
	for _, op := range h.ChangedOps() {
		if op.HasOld() {
			r.OldLen++
		}
		if op.HasNew() {
			r.NewLen++
		}
	}
	return r
}

// Header renders the unified diff hunk header. Line numbers are 1-based; an empty side names the line before it.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%s +%s @@", headerRange(h.OldStart, h.OldLen), headerRange(h.NewStart, h.NewLen))
}

func headerRange(start, n int) string {
	if n == 0 {
		return fmt.Sprintf("%d,0", start)
	}
	if n == 1 {
		return fmt.Sprintf("%d", start+1)
	}
	return fmt.Sprintf("%d,%d", start+1, n)
}

// Build groups ops into hunks in one pass.
//
// A change opens a new hunk when no hunk is open or when more than 2*contextSize unchanged ops separate it from the
// previous change; otherwise the unchanged run is folded into the open hunk. Each hunk keeps at most contextSize
// unchanged ops on either side, fewer at the edges of the file. A negative contextSize is treated as 0.
func Build(ops []editscript.Op, contextSize int) []Hunk {
	contextSize = max(contextSize, 0)

	oldBefore := make([]int, len(ops)+1)
	newBefore := make([]int, len(ops)+1)
	for i, op := range ops {
		oldBefore[i+1] = oldBefore[i]
		newBefore[i+1] = newBefore[i]
		if op.HasOld() {
			oldBefore[i+1]++
		}
		if op.HasNew() {
			newBefore[i+1]++
		}
	}

	var hunks []Hunk
	first, last := -1, -1
	closeHunk := func() {
		from := max(first-contextSize, 0)
		to := min(last+contextSize, len(ops)-1)
		hunks = append(hunks, Hunk{
			ID:              len(hunks),
			OldStart:        oldBefore[from],
			OldLen:          oldBefore[to+1] - oldBefore[from],
			NewStart:        newBefore[from],
			NewLen:          newBefore[to+1] - newBefore[from],
			Ops:             append([]editscript.Op(nil), ops[from:to+1]...),
			LeadingContext:  first - from,
			TrailingContext: to - last,
		})
	}

	for i, op := range ops {
		if !op.IsChange() {
			continue
		}
		if first >= 0 && i-last-1 <= 2*contextSize {
			last = i
			continue
		}
		if first >= 0 {
			closeHunk()
		}
		first, last = i, i
	}
	if first >= 0 {
		closeHunk()
	}
	return hunks
}

// Stats summarizes a set of hunks. A Replace op counts as one deletion and one addition.
type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Hunks     int `json:"hunks"`
}

// Net returns additions minus deletions.
func (s Stats) Net() int {
	return s.Additions - s.Deletions
}

func (s Stats) String() string {
	return fmt.Sprintf("+%d -%d (%d hunks)", s.Additions, s.Deletions, s.Hunks)
}

// Count returns the additions and deletions in ops.
func Count(ops []editscript.Op) (additions, deletions int) {
	for _, op := range ops {
		switch op.Kind {
		case editscript.Insert:
			additions++
		case editscript.Delete:
			deletions++
		case editscript.Replace:
			additions++
			deletions++
		}
	}
	return additions, deletions
}

// Aggregate folds hunks into Stats.
func Aggregate(hunks []Hunk) Stats {
	s := Stats{Hunks: len(hunks)}
	for _, h := range hunks {
		a, d := Count(h.Ops)
		s.Additions += a
		s.Deletions += d
	}
	return s
}

// Summary is the per-hunk part of Stats.
type Summary struct {
	ID        int    `json:"id"`
	Header    string `json:"header"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Summaries returns one Summary per hunk.
func Summaries(hunks []Hunk) []Summary {
	out := make([]Summary, len(hunks))
	for i, h := range hunks {
		a, d := Count(h.Ops)
		out[i] = Summary{ID: h.ID, Header: h.Header(), Additions: a, Deletions: d}
	}
	return out
}
