// Package diffmodel runs the diff pipeline and holds its immutable result.
//
// A Model is built once by Compute and never mutated afterwards; projectors and adapters read it concurrently.
// View state such as collapsed hunks lives with the views, not here.
package diffmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/editscript"
	"github.com/interpretive-systems/diffkit/internal/hunk"
	"github.com/interpretive-systems/diffkit/internal/refine"
	"github.com/interpretive-systems/diffkit/internal/segment"
)

// ErrCanceled is returned when the computation's context is canceled. The error also wraps context.Canceled.
var ErrCanceled = errors.New("diff computation canceled")

// refineCheckEvery is how many modified pairs are refined between context checks.
const refineCheckEvery = 64

// Input is one version of a file.
type Input struct {
	Path     string
	Language string
	Content  []byte
}

// Side is one decoded version of a file.
type Side struct {
	Path     string         `json:"path"`
	Language string         `json:"language,omitempty"`
	Lines    []segment.Line `json:"lines"`
}

// Model is the complete diff of two versions.
type Model struct {
	Old         Side                  `json:"old"`
	New         Side                  `json:"new"`
	Ops         []editscript.Op       `json:"ops"`
	Hunks       []hunk.Hunk           `json:"hunks"`
	Stats       hunk.Stats            `json:"stats"`
	Refined     map[int]refine.Result `json:"refined,omitempty"` // Replace ops keyed by old line index
	Approximate bool                  `json:"approximate"`
	Config      config.Diff           `json:"config"`
}

// Compute runs the whole pipeline over old and new.
//
// Undecodable input returns a *segment.EncodingError. A canceled ctx returns ErrCanceled. When ctx's deadline passes
// the exact search is abandoned and an Approximate model is returned instead, as when the edit budget runs out.
func Compute(ctx context.Context, old, new Input, cfg config.Diff) (*Model, error) {
	cfg = cfg.Normalize()

	oldLines, err := segment.Segment(old.Content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", old.Path, err)
	}
	newLines, err := segment.Segment(new.Content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", new.Path, err)
	}

	script, err := editscript.Lines(ctx, cfg.LineEndingPolicy.Keys(oldLines), cfg.LineEndingPolicy.Keys(newLines), cfg.ScriptOptions())
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		script = editscript.Approximate(len(oldLines), len(newLines))
	case errors.Is(err, context.Canceled):
		return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
	default:
		return nil, err
	}

	m := &Model{
		Old:         Side{Path: old.Path, Language: old.Language, Lines: oldLines},
		New:         Side{Path: new.Path, Language: new.Language, Lines: newLines},
		Ops:         script.Ops,
		Approximate: script.Approximate,
		Config:      cfg,
	}

	if !m.Approximate {
		if err := m.refineAll(ctx); err != nil {
			return nil, err
		}
	}

	m.Hunks = hunk.Build(m.Ops, cfg.ContextSize)
	m.Stats = hunk.Aggregate(m.Hunks)
	return m, nil
}

// refineAll fills Refined for every Replace op. Past the deadline the remaining pairs keep whole-line spans and the
// model is marked Approximate.
func (m *Model) refineAll(ctx context.Context) error {
	opts := m.Config.RefineOptions()
	n := 0
	for _, op := range m.Ops {
		if op.Kind != editscript.Replace {
			continue
		}
		if n%refineCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					m.Approximate = true
					return nil
				}
				return fmt.Errorf("%w: %w", ErrCanceled, err)
			}
		}
		n++
		if m.Refined == nil {
			m.Refined = make(map[int]refine.Result)
		}
		m.Refined[op.Old] = refine.Pair(m.Old.Lines[op.Old].Text, m.New.Lines[op.New].Text, opts)
	}
	return nil
}

// OldText returns the text of old line i.
func (m *Model) OldText(i int) string {
	return m.Old.Lines[i].Text
}

// NewText returns the text of new line j.
func (m *Model) NewText(j int) string {
	return m.New.Lines[j].Text
}

// Spans returns the intra-line spans of both halves of op. A half that op does not have is nil.
func (m *Model) Spans(op editscript.Op) (old, new []refine.Span) {
	switch op.Kind {
	case editscript.Equal:
		return refine.Whole(m.OldText(op.Old), refine.Unchanged), refine.Whole(m.NewText(op.New), refine.Unchanged)
	case editscript.Delete:
		return refine.Whole(m.OldText(op.Old), refine.Removed), nil
	case editscript.Insert:
		return nil, refine.Whole(m.NewText(op.New), refine.Added)
	case editscript.Replace:
		if r, ok := m.Refined[op.Old]; ok {
			return r.Old, r.New
		}
		return refine.Whole(m.OldText(op.Old), refine.Removed), refine.Whole(m.NewText(op.New), refine.Added)
	}
	return nil, nil
}

// Identical reports whether the two versions compare equal under the model's line ending policy.
func (m *Model) Identical() bool {
	return len(m.Hunks) == 0
}

// HunkAt returns the index of the hunk containing the given line of one side, or -1. newSide selects the side.
func (m *Model) HunkAt(line int, newSide bool) int {
	for i, h := range m.Hunks {
		start, n := h.OldStart, h.OldLen
		if newSide {
			start, n = h.NewStart, h.NewLen
		}
		if line >= start && line < start+n {
			return i
		}
	}
	return -1
}

// Validate checks the model's internal consistency: the script reconstructs both sides, equal lines compare equal,
// hunks cover every change exactly once in order, stats match the hunks and spans cover their lines.
func (m *Model) Validate() error {
	n, mm := len(m.Old.Lines), len(m.New.Lines)
	if err := editscript.Validate(editscript.Script{Ops: m.Ops}, n, mm); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	policy := m.Config.LineEndingPolicy
	changes := 0
	for i, op := range m.Ops {
		if op.Kind == editscript.Equal {
			if policy.Key(m.Old.Lines[op.Old]) != policy.Key(m.New.Lines[op.New]) {
				return fmt.Errorf("op[%d]: equal lines differ", i)
			}
			continue
		}
		changes++
	}

	covered := 0
	nextOld := 0
	for i, h := range m.Hunks {
		if h.ID != i {
			return fmt.Errorf("hunk[%d]: id %d", i, h.ID)
		}
		if h.OldStart < nextOld {
			return fmt.Errorf("hunk[%d]: overlaps previous hunk", i)
		}
		nextOld = h.OldStart + h.OldLen
		if nextOld > n || h.NewStart+h.NewLen > mm {
			return fmt.Errorf("hunk[%d]: out of range", i)
		}
		for _, op := range h.Ops {
			if op.IsChange() {
				covered++
			}
		}
	}
	if covered != changes {
		return fmt.Errorf("hunks cover %d changes, script has %d", covered, changes)
	}
	if got := hunk.Aggregate(m.Hunks); got != m.Stats {
		return fmt.Errorf("stats %v, hunks give %v", m.Stats, got)
	}

	for old, r := range m.Refined {
		if old < 0 || old >= n {
			return fmt.Errorf("refined line %d out of range", old)
		}
		if err := refine.CheckCoverage(r.Old, len(m.OldText(old))); err != nil {
			return fmt.Errorf("old line %d: %w", old, err)
		}
	}
	for _, op := range m.Ops {
		if op.Kind != editscript.Replace {
			continue
		}
		if r, ok := m.Refined[op.Old]; ok {
			if err := refine.CheckCoverage(r.New, len(m.NewText(op.New))); err != nil {
				return fmt.Errorf("new line %d: %w", op.New, err)
			}
		}
	}
	return nil
}

// Marshal encodes m as JSON.
func Marshal(m *Model) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal model: %w", err)
	}
	return b, nil
}

// Unmarshal decodes and validates a model encoded by Marshal.
func Unmarshal(b []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return &m, nil
}
