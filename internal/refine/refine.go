// Package refine computes intra-line spans for a modified line pair.
//
// A pair is diffed over word tokens first. If the lines share too little, refinement is skipped and each side is
// marked as a single changed span, so unrelated lines do not show accidental token matches. Otherwise changed token
// runs with a counterpart on the other side are refined again at character level.
package refine

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/interpretive-systems/diffkit/internal/editscript"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// SpanKind classifies a span of a line.
type SpanKind int

const (
	Unchanged SpanKind = iota
	Added
	Removed
)

func (k SpanKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unchanged"
	}
}

// Span is a byte range [Start, End) of one line's text.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Kind  SpanKind `json:"kind"`
}

// Result holds the spans of both sides of a pair. Spans of each side are contiguous and cover the side's text.
type Result struct {
	Old        []Span  `json:"old"`
	New        []Span  `json:"new"`
	Refined    bool    `json:"refined"` // false when the whole lines were marked changed
	Similarity float64 `json:"similarity"`
}

// DefaultThreshold is the token similarity below which refinement is skipped.
const DefaultThreshold = 0.25

// Options tune Pair.
type Options struct {
	Threshold float64 // minimum similarity in [0, 1] for fine-grained spans
	CharLevel bool    // refine changed token runs per character
}

// DefaultOptions returns the options used by the diff pipeline.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, CharLevel: true}
}

// Token is a word-boundary segment of a line.
type Token struct {
	Text  string
	Start int
	End   int
}

// Space reports whether the token is whitespace only.
func (t Token) Space() bool {
	return isSpace(t.Text)
}

// Tokenize splits s on Unicode word boundaries. Concatenating the tokens yields s.
func Tokenize(s string) []Token {
	var out []Token
	iter := words.FromString(s)
	for iter.Next() {
		out = append(out, Token{Text: iter.Value(), Start: iter.Start(), End: iter.End()})
	}
	return out
}

// Whole returns a single span of kind covering text, or nil for empty text.
func Whole(text string, kind SpanKind) []Span {
	if text == "" {
		return nil
	}
	return []Span{{Start: 0, End: len(text), Kind: kind}}
}

// Pair refines the old and new text of a modified line.
func Pair(oldText, newText string, opts Options) Result {
	ta, tb := Tokenize(oldText), Tokenize(newText)
	textsA, textsB := tokenTexts(ta), tokenTexts(tb)

	// Token sequences are short, so the exact search always fits.
	script, err := editscript.Lines(context.Background(), textsA, textsB, editscript.Options{Budget: len(ta) + len(tb)})
	if err != nil {
		return whole(oldText, newText, 0)
	}

	sim := similarity(script, ta, tb)
	if sim < opts.Threshold {
		return whole(oldText, newText, sim)
	}

	var oldSpans, newSpans []Span
	ops := script.Ops
	for i := 0; i < len(ops); {
		if ops[i].Kind == editscript.Equal {
			t := ta[ops[i].Old]
			u := tb[ops[i].New]
			oldSpans = append(oldSpans, Span{Start: t.Start, End: t.End, Kind: Unchanged})
			newSpans = append(newSpans, Span{Start: u.Start, End: u.End, Kind: Unchanged})
			i++
			continue
		}
		oFrom, oTo, nFrom, nTo := -1, -1, -1, -1
		for ; i < len(ops) && ops[i].Kind != editscript.Equal; i++ {
			if ops[i].HasOld() {
				if oFrom < 0 {
					oFrom = ta[ops[i].Old].Start
				}
				oTo = ta[ops[i].Old].End
			}
			if ops[i].HasNew() {
				if nFrom < 0 {
					nFrom = tb[ops[i].New].Start
				}
				nTo = tb[ops[i].New].End
			}
		}
		switch {
		case oFrom >= 0 && nFrom >= 0 && opts.CharLevel:
			o, n := charSpans(oldText[oFrom:oTo], newText[nFrom:nTo], oFrom, nFrom)
			oldSpans = append(oldSpans, o...)
			newSpans = append(newSpans, n...)
		default:
			if oFrom >= 0 {
				oldSpans = append(oldSpans, Span{Start: oFrom, End: oTo, Kind: Removed})
			}
			if nFrom >= 0 {
				newSpans = append(newSpans, Span{Start: nFrom, End: nTo, Kind: Added})
			}
		}
	}

	return Result{
		Old:        absorbSpace(oldText, coalesce(oldSpans)),
		New:        absorbSpace(newText, coalesce(newSpans)),
		Refined:    true,
		Similarity: sim,
	}
}

func whole(oldText, newText string, sim float64) Result {
	return Result{Old: Whole(oldText, Removed), New: Whole(newText, Added), Similarity: sim}
}

func tokenTexts(ts []Token) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Text
	}
	return out
}

// similarity is the share of non-space tokens kept by script: 2*common / (old + new).
func similarity(script editscript.Script, ta, tb []Token) float64 {
	total := nonSpace(ta) + nonSpace(tb)
	if total == 0 {
		return 0
	}
	common := 0
	for _, op := range script.Ops {
		if op.Kind == editscript.Equal && !ta[op.Old].Space() {
			common++
		}
	}
	return 2 * float64(common) / float64(total)
}

func nonSpace(ts []Token) int {
	n := 0
	for _, t := range ts {
		if !t.Space() {
			n++
		}
	}
	return n
}

// charSpans diffs a changed token run per character. base offsets shift spans back to line coordinates.
func charSpans(a, b string, baseA, baseB int) (oldSpans, newSpans []Span) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(a, b, false))
	oa, ob := baseA, baseB
	for _, d := range diffs {
		n := len(d.Text)
		if n == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldSpans = append(oldSpans, Span{Start: oa, End: oa + n, Kind: Unchanged})
			newSpans = append(newSpans, Span{Start: ob, End: ob + n, Kind: Unchanged})
			oa += n
			ob += n
		case diffmatchpatch.DiffDelete:
			oldSpans = append(oldSpans, Span{Start: oa, End: oa + n, Kind: Removed})
			oa += n
		case diffmatchpatch.DiffInsert:
			newSpans = append(newSpans, Span{Start: ob, End: ob + n, Kind: Added})
			ob += n
		}
	}
	return oldSpans, newSpans
}

// coalesce merges adjacent spans of the same kind and drops empty ones.
func coalesce(spans []Span) []Span {
	out := spans[:0:0]
	for _, s := range spans {
		if s.End <= s.Start {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Kind == s.Kind && out[len(out)-1].End == s.Start {
			out[len(out)-1].End = s.End
			continue
		}
		out = append(out, s)
	}
	return out
}

// absorbSpace turns whitespace-only unchanged islands between two changed spans of the same kind into that kind.
func absorbSpace(text string, spans []Span) []Span {
	changed := false
	for i := 1; i+1 < len(spans); i++ {
		s := spans[i]
		if s.Kind != Unchanged || !isSpace(text[s.Start:s.End]) {
			continue
		}
		prev, next := spans[i-1].Kind, spans[i+1].Kind
		if prev != Unchanged && prev == next {
			spans[i].Kind = prev
			changed = true
		}
	}
	if !changed {
		return spans
	}
	return coalesce(spans)
}

func isSpace(s string) bool {
	return s != "" && strings.TrimFunc(s, unicode.IsSpace) == ""
}

// CheckCoverage reports whether spans are contiguous, non-overlapping and cover [0, length).
func CheckCoverage(spans []Span, length int) error {
	pos := 0
	for i, s := range spans {
		if s.Start != pos {
			return fmt.Errorf("span[%d] starts at %d, want %d", i, s.Start, pos)
		}
		if s.End <= s.Start {
			return fmt.Errorf("span[%d] is empty", i)
		}
		pos = s.End
	}
	if pos != length {
		return fmt.Errorf("spans end at %d, want %d", pos, length)
	}
	return nil
}
