// Package editscript computes shortest edit scripts between two sequences.
//
// Sequences are given as hash slices plus an equality callback that confirms a hash match, so the engine never trusts a
// hash alone. The search is Myers' O(ND) algorithm bounded by an edit-distance budget: when the distance would exceed
// the budget the engine gives up on an exact answer and returns a coarse whole-file script flagged Approximate.
//
// Scripts are normalized before they are returned:
//   - Within every run of changes, deletions come before insertions (or the reverse, see TieBreak).
//   - Runs with comparable numbers of deletions and insertions are paired positionally into Replace ops.
package editscript

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
)

// Kind is the kind of an edit operation.
type Kind int

const (
	Equal Kind = iota
	Delete
	Insert
	Replace
)

func (k Kind) String() string {
	switch k {
	case Equal:
		return "equal"
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	case Replace:
		return "replace"
	default:
		return "unknown"
	}
}

// Op is one edit operation. Old and New are element indices; an index that does not apply to the Kind is -1.
type Op struct {
	Kind Kind `json:"kind"`
	Old  int  `json:"old"`
	New  int  `json:"new"`
}

// IsChange reports whether op is anything but Equal.
func (op Op) IsChange() bool {
	return op.Kind != Equal
}

// HasOld reports whether op consumes an element of the old sequence.
func (op Op) HasOld() bool {
	return op.Kind != Insert
}

// HasNew reports whether op consumes an element of the new sequence.
func (op Op) HasNew() bool {
	return op.Kind != Delete
}

// Script is a complete edit script from an old to a new sequence.
type Script struct {
	Ops         []Op `json:"ops"`
	Approximate bool `json:"approximate"` // exact search was abandoned (budget or deadline)
	Distance    int  `json:"distance"`    // deletions + insertions (Replace counts both)
}

// OldIndices returns the old-side index projection of the script.
func (s Script) OldIndices() []int {
	out := make([]int, 0, len(s.Ops))
	for _, op := range s.Ops {
		if op.HasOld() {
			out = append(out, op.Old)
		}
	}
	return out
}

// NewIndices returns the new-side index projection of the script.
func (s Script) NewIndices() []int {
	out := make([]int, 0, len(s.Ops))
	for _, op := range s.Ops {
		if op.HasNew() {
			out = append(out, op.New)
		}
	}
	return out
}

// Changed returns the number of non-Equal ops.
func (s Script) Changed() int {
	n := 0
	for _, op := range s.Ops {
		if op.IsChange() {
			n++
		}
	}
	return n
}

// TieBreak picks the order of deletions and insertions inside a change run.
type TieBreak int

const (
	DeletesFirst TieBreak = iota
	InsertsFirst
)

// DefaultBudget bounds the edit distance searched exactly. Trace memory grows with the square of the distance.
const DefaultBudget = 2048

// DefaultPairRatio is the smallest shorter/longer ratio at which a change run is paired into Replace ops.
const DefaultPairRatio = 0.5

// Options tune Compute.
type Options struct {
	Budget    int      // max edit distance searched exactly; <= 0 means only identical inputs are diffed exactly
	TieBreak  TieBreak // order of deletions and insertions inside a change run
	PairRatio float64  // 0 pairs every mixed run
}

// DefaultOptions returns the options used by the diff pipeline.
func DefaultOptions() Options {
	return Options{Budget: DefaultBudget, PairRatio: DefaultPairRatio}
}

var errBudget = errors.New("edit budget exceeded")

// Compute returns the shortest edit script turning a into b. eq, if non-nil, is called to confirm a[i] == b[j] after
// the hashes matched.
//
// A canceled ctx returns an error wrapping ctx.Err() and no script. A distance above opts.Budget returns the
// Approximate script with a nil error.
func Compute(ctx context.Context, a, b []uint64, eq func(i, j int) bool, opts Options) (Script, error) {
	same := func(i, j int) bool {
		return a[i] == b[j] && (eq == nil || eq(i, j))
	}
	n, m := len(a), len(b)

	// Suffix first: when an element could match at either end, the trailing match wins.
	suf := 0
	for suf < n && suf < m && same(n-1-suf, m-1-suf) {
		suf++
	}
	pre := 0
	for pre < n-suf && pre < m-suf && same(pre, pre) {
		pre++
	}

	mid, err := myers(ctx, pre, n-suf, pre, m-suf, same, opts.Budget)
	if errors.Is(err, errBudget) {
		return Approximate(n, m), nil
	}
	if err != nil {
		return Script{}, fmt.Errorf("editscript: %w", err)
	}

	raw := make([]Op, 0, pre+len(mid)+suf)
	for i := 0; i < pre; i++ {
		raw = append(raw, Op{Kind: Equal, Old: i, New: i})
	}
	raw = append(raw, mid...)
	for i := 0; i < suf; i++ {
		raw = append(raw, Op{Kind: Equal, Old: n - suf + i, New: m - suf + i})
	}

	distance := 0
	for _, op := range raw {
		if op.IsChange() {
			distance++
		}
	}
	return Script{Ops: normalize(raw, opts), Distance: distance}, nil
}

// Lines diffs two string sequences by hash, confirming matches with a full comparison.
func Lines(ctx context.Context, a, b []string, opts Options) (Script, error) {
	seed := maphash.MakeSeed()
	return Compute(ctx, hashAll(seed, a), hashAll(seed, b), func(i, j int) bool { return a[i] == b[j] }, opts)
}

func hashAll(seed maphash.Seed, ss []string) []uint64 {
	out := make([]uint64, len(ss))
	for i, s := range ss {
		out[i] = maphash.String(seed, s)
	}
	return out
}

// Approximate returns the coarse script that replaces an old sequence of n elements with a new one of m elements
// wholesale: positional Replace pairs, then the leftover deletions or insertions.
func Approximate(n, m int) Script {
	k := min(n, m)
	ops := make([]Op, 0, max(n, m))
	for i := 0; i < k; i++ {
		ops = append(ops, Op{Kind: Replace, Old: i, New: i})
	}
	for i := k; i < n; i++ {
		ops = append(ops, Op{Kind: Delete, Old: i, New: -1})
	}
	for j := k; j < m; j++ {
		ops = append(ops, Op{Kind: Insert, Old: -1, New: j})
	}
	return Script{Ops: ops, Approximate: n+m > 0, Distance: n + m}
}

// myers runs the greedy forward search over a[x0:x1] and b[y0:y1] and backtracks the recorded trace into Equal,
// Delete and Insert ops carrying absolute indices.
func myers(ctx context.Context, x0, x1, y0, y1 int, same func(i, j int) bool, budget int) ([]Op, error) {
	n, m := x1-x0, y1-y0
	if n == 0 && m == 0 {
		return nil, nil
	}
	maxD := n + m
	off := maxD + 1
	v := make([]int32, 2*maxD+3)
	// trace[d] holds v for diagonals -d..d after round d.
	var trace [][]int32

	final := -1
	for d := 0; d <= maxD && final < 0; d++ {
		if d > budget {
			return nil, errBudget
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[off+k-1] < v[off+k+1]) {
				x = int(v[off+k+1])
			} else {
				x = int(v[off+k-1]) + 1
			}
			y := x - k
			for x < n && y < m && same(x0+x, y0+y) {
				x++
				y++
			}
			v[off+k] = int32(x)
			if x >= n && y >= m {
				final = d
				break
			}
		}
		snap := make([]int32, 2*d+1)
		copy(snap, v[off-d:off+d+1])
		trace = append(trace, snap)
	}

	at := func(d, k int) int {
		return int(trace[d][k+d])
	}

	// Backtrack from (n, m), emitting ops in reverse.
	rev := make([]Op, 0, n+m)
	x, y := n, m
	for d := final; d > 0; d-- {
		k := x - y
		var prevK int
		insert := k == -d || (k != d && at(d-1, k-1) < at(d-1, k+1))
		if insert {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := at(d-1, prevK)
		prevY := prevX - prevK
		midX, midY := prevX, prevY
		if insert {
			midY++
		} else {
			midX++
		}
		for x > midX && y > midY {
			x--
			y--
			rev = append(rev, Op{Kind: Equal, Old: x0 + x, New: y0 + y})
		}
		if insert {
			rev = append(rev, Op{Kind: Insert, Old: -1, New: y0 + prevY})
		} else {
			rev = append(rev, Op{Kind: Delete, Old: x0 + prevX, New: -1})
		}
		x, y = prevX, prevY
	}
	for x > 0 && y > 0 {
		x--
		y--
		rev = append(rev, Op{Kind: Equal, Old: x0 + x, New: y0 + y})
	}

	out := make([]Op, len(rev))
	for i, op := range rev {
		out[len(rev)-1-i] = op
	}
	return out, nil
}

// normalize orders every change run per opts.TieBreak and pairs it into Replace ops when the run is balanced enough.
func normalize(raw []Op, opts Options) []Op {
	out := make([]Op, 0, len(raw))
	var dels, ins []int
	flush := func() {
		if len(dels) == 0 && len(ins) == 0 {
			return
		}
		out = appendRun(out, dels, ins, opts)
		dels, ins = dels[:0], ins[:0]
	}
	for _, op := range raw {
		switch op.Kind {
		case Equal:
			flush()
			out = append(out, op)
		case Delete:
			dels = append(dels, op.Old)
		case Insert:
			ins = append(ins, op.New)
		case Replace:
			dels = append(dels, op.Old)
			ins = append(ins, op.New)
		}
	}
	flush()
	return out
}

func appendRun(out []Op, dels, ins []int, opts Options) []Op {
	k := min(len(dels), len(ins))
	if k > 0 && float64(k) >= opts.PairRatio*float64(max(len(dels), len(ins))) {
		for i := 0; i < k; i++ {
			out = append(out, Op{Kind: Replace, Old: dels[i], New: ins[i]})
		}
		dels, ins = dels[k:], ins[k:]
	}
	emitDels := func() {
		for _, o := range dels {
			out = append(out, Op{Kind: Delete, Old: o, New: -1})
		}
	}
	emitIns := func() {
		for _, n := range ins {
			out = append(out, Op{Kind: Insert, Old: -1, New: n})
		}
	}
	if opts.TieBreak == InsertsFirst {
		emitIns()
		emitDels()
	} else {
		emitDels()
		emitIns()
	}
	return out
}

// Validate checks that s is a well-formed script from a sequence of n elements to one of m elements.
func Validate(s Script, n, m int) error {
	nextOld, nextNew := 0, 0
	for i, op := range s.Ops {
		switch op.Kind {
		case Equal, Replace:
			if op.Old < 0 || op.New < 0 {
				return fmt.Errorf("op[%d]: %s requires both indices", i, op.Kind)
			}
		case Delete:
			if op.Old < 0 || op.New != -1 {
				return fmt.Errorf("op[%d]: delete requires Old>=0 and New==-1", i)
			}
		case Insert:
			if op.New < 0 || op.Old != -1 {
				return fmt.Errorf("op[%d]: insert requires New>=0 and Old==-1", i)
			}
		default:
			return fmt.Errorf("op[%d]: unknown kind %d", i, op.Kind)
		}
		if op.HasOld() {
			if op.Old != nextOld {
				return fmt.Errorf("op[%d]: old index %d, want %d", i, op.Old, nextOld)
			}
			nextOld++
		}
		if op.HasNew() {
			if op.New != nextNew {
				return fmt.Errorf("op[%d]: new index %d, want %d", i, op.New, nextNew)
			}
			nextNew++
		}
	}
	if nextOld != n {
		return fmt.Errorf("script covers %d old elements, want %d", nextOld, n)
	}
	if nextNew != m {
		return fmt.Errorf("script covers %d new elements, want %d", nextNew, m)
	}
	return nil
}
