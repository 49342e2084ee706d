package inline

import (
	"context"
	"errors"
	"testing"

	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/refine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEditor struct {
	version uint64
	got     []Decorations
}

func (e *fakeEditor) Version() uint64 { return e.version }

func (e *fakeEditor) SetDecorations(d Decorations) error {
	e.got = append(e.got, d)
	return nil
}

func compute(t *testing.T, old, new string) *diffmodel.Model {
	t.Helper()
	m, err := diffmodel.Compute(context.Background(),
		diffmodel.Input{Content: []byte(old)}, diffmodel.Input{Content: []byte(new)}, config.DefaultDiff())
	require.NoError(t, err)
	return m
}

func TestNew_Markers(t *testing.T) {
	m := compute(t,
		"keep\nvalue = total\ngone\nkeep2\n",
		"keep\nvalue = totals\nkeep2\nadded\n")
	a := New(m, 3)
	d, err := a.Decorations(3)
	require.NoError(t, err)

	require.Len(t, d.Gutter, 3)
	assert.Equal(t, GutterMark{Line: 1, Marker: MarkerModified}, d.Gutter[0])
	assert.Equal(t, GutterMark{Line: 2, Marker: MarkerRemoved, Removed: []string{"gone"}}, d.Gutter[1])
	assert.Equal(t, GutterMark{Line: 3, Marker: MarkerAdded}, d.Gutter[2])

	assert.Equal(t, []SpanRequest{{Line: 1, Start: 13, End: 14, Kind: refine.Added}}, d.Spans)
	assert.Equal(t, uint64(3), d.Version)
}

func TestNew_RemovedAtEndAnchorsOnLastLine(t *testing.T) {
	a := New(compute(t, "a\nb\nc\n", "a\n"), 1)
	d, err := a.Decorations(1)
	require.NoError(t, err)
	require.Len(t, d.Gutter, 1)
	assert.Equal(t, 0, d.Gutter[0].Line)
	assert.Equal(t, []string{"b", "c"}, d.Gutter[0].Removed)
}

func TestDecorations_Stale(t *testing.T) {
	a := New(compute(t, "a\n", "b\n"), 5)
	_, err := a.Decorations(6)
	assert.True(t, errors.Is(err, ErrStale))
}

func TestApply(t *testing.T) {
	a := New(compute(t, "a\n", "b\n"), 5)

	ed := &fakeEditor{version: 5}
	require.NoError(t, a.Apply(context.Background(), ed))
	require.Len(t, ed.got, 1)

	ed.version = 6
	assert.ErrorIs(t, a.Apply(context.Background(), ed), ErrStale)
	assert.Len(t, ed.got, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ed.version = 5
	assert.ErrorIs(t, a.Apply(ctx, ed), context.Canceled)
}

func TestLine(t *testing.T) {
	a := New(compute(t, "a\nb\nc\n", "x\na\nc\n"), 0)
	old, ok := a.Line(1)
	assert.True(t, ok)
	assert.Equal(t, 0, old)
	_, ok = a.Line(0)
	assert.False(t, ok)
	old, ok = a.Line(2)
	assert.True(t, ok)
	assert.Equal(t, 2, old)
}
