// Package inline turns a diff model into decorations for a live editor buffer showing the new version.
//
// The adapter never edits text. Decorations are tied to the buffer version the diff was computed against; once the
// editor has moved on they are stale and must not be applied.
package inline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/editscript"
	"github.com/interpretive-systems/diffkit/internal/refine"
)

// ErrStale is returned when decorations are requested for a buffer version other than the diffed one.
var ErrStale = errors.New("decorations are stale")

// Marker is a gutter marker kind.
type Marker int

const (
	MarkerAdded Marker = iota
	MarkerRemoved
	MarkerModified
)

func (m Marker) String() string {
	switch m {
	case MarkerAdded:
		return "added"
	case MarkerRemoved:
		return "removed"
	case MarkerModified:
		return "modified"
	}
	return "unknown"
}

// MarshalText encodes the marker by name.
func (m Marker) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// GutterMark decorates one new-side line. Removed lines have no line of their own: they are carried by the mark of
// the line that follows them (or the last line, past the end of the buffer).
type GutterMark struct {
	Line    int      `json:"line"`
	Marker  Marker   `json:"marker"`
	Removed []string `json:"removed,omitempty"` // text of removed lines anchored here
}

// SpanRequest asks the editor to highlight a byte range of a line.
type SpanRequest struct {
	Line  int             `json:"line"`
	Start int             `json:"start"`
	End   int             `json:"end"`
	Kind  refine.SpanKind `json:"kind"`
}

// Decorations is a complete set of decorations for one buffer version.
type Decorations struct {
	Version uint64        `json:"version"`
	Gutter  []GutterMark  `json:"gutter"`
	Spans   []SpanRequest `json:"spans"`
}

// Editor is the buffer side of the adapter.
type Editor interface {
	Version() uint64
	SetDecorations(Decorations) error
}

// Adapter holds the decorations derived from one model snapshot.
type Adapter struct {
	version uint64
	decs    Decorations
	newLine map[int]int // new line -> old line for unchanged and modified lines
}

// New derives decorations from m, computed against buffer version.
func New(m *diffmodel.Model, version uint64) *Adapter {
	a := &Adapter{version: version, newLine: make(map[int]int)}
	marks := make(map[int]*GutterMark)
	mark := func(line int, kind Marker) *GutterMark {
		g, ok := marks[line]
		if !ok {
			g = &GutterMark{Line: line, Marker: kind}
			marks[line] = g
		} else if g.Marker != kind && kind != MarkerRemoved {
			g.Marker = MarkerModified
		}
		return g
	}

	var removed []string
	last := len(m.New.Lines) - 1
	nextNew := 0
	flushRemoved := func(anchor int) {
		if len(removed) == 0 {
			return
		}
		g := mark(max(anchor, 0), MarkerRemoved)
		g.Removed = append(g.Removed, removed...)
		removed = nil
	}

	for _, op := range m.Ops {
		switch op.Kind {
		case editscript.Equal:
			flushRemoved(op.New)
			a.newLine[op.New] = op.Old
			nextNew = op.New + 1
		case editscript.Delete:
			removed = append(removed, m.OldText(op.Old))
		case editscript.Insert:
			flushRemoved(op.New)
			mark(op.New, MarkerAdded)
			nextNew = op.New + 1
		case editscript.Replace:
			flushRemoved(op.New)
			mark(op.New, MarkerModified)
			a.newLine[op.New] = op.Old
			_, spans := m.Spans(op)
			for _, s := range spans {
				if s.Kind == refine.Unchanged {
					continue
				}
				a.decs.Spans = append(a.decs.Spans, SpanRequest{Line: op.New, Start: s.Start, End: s.End, Kind: s.Kind})
			}
			nextNew = op.New + 1
		}
	}
	if nextNew > last {
		flushRemoved(last)
	} else {
		flushRemoved(nextNew)
	}

	lines := make([]int, 0, len(marks))
	for l := range marks {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	for _, l := range lines {
		a.decs.Gutter = append(a.decs.Gutter, *marks[l])
	}
	a.decs.Version = version
	return a
}

// Decorations returns the decorations if version is the diffed buffer version, else ErrStale.
func (a *Adapter) Decorations(version uint64) (Decorations, error) {
	if version != a.version {
		return Decorations{}, fmt.Errorf("%w: diffed version %d, buffer at %d", ErrStale, a.version, version)
	}
	return a.decs, nil
}

// Apply pushes the decorations to ed unless ed has moved past the diffed version or ctx is done.
func (a *Adapter) Apply(ctx context.Context, ed Editor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := a.Decorations(ed.Version())
	if err != nil {
		return err
	}
	if err := ed.SetDecorations(d); err != nil {
		return fmt.Errorf("set decorations: %w", err)
	}
	return nil
}

// Line maps a new-side line to its old-side line. Added lines have no old counterpart.
func (a *Adapter) Line(newIdx int) (int, bool) {
	old, ok := a.newLine[newIdx]
	return old, ok
}
