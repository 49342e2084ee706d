package diffmodel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/editscript"
	"github.com/interpretive-systems/diffkit/internal/hunk"
	"github.com/interpretive-systems/diffkit/internal/refine"
	"github.com/interpretive-systems/diffkit/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func in(path string, lines ...string) Input {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return Input{Path: path, Content: []byte(sb.String())}
}

func diffCfg(ctx int) config.Diff {
	d := config.DefaultDiff()
	d.ContextSize = ctx
	return d
}

func TestCompute_SingleReplace(t *testing.T) {
	m, err := Compute(context.Background(), in("a.txt", "a", "b", "c"), in("a.txt", "a", "x", "c"), diffCfg(1))
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	require.Len(t, m.Hunks, 1)
	assert.Equal(t, hunk.Range{OldStart: 1, OldLen: 1, NewStart: 1, NewLen: 1}, m.Hunks[0].Changed())
	require.Len(t, m.Hunks[0].ChangedOps(), 1)
	op := m.Hunks[0].ChangedOps()[0]
	assert.Equal(t, editscript.Replace, op.Kind)

	oldSpans, newSpans := m.Spans(op)
	assert.Equal(t, []refine.Span{{Start: 0, End: 1, Kind: refine.Removed}}, oldSpans)
	assert.Equal(t, []refine.Span{{Start: 0, End: 1, Kind: refine.Added}}, newSpans)
	assert.False(t, m.Refined[1].Refined)
	assert.Equal(t, hunk.Stats{Additions: 1, Deletions: 1, Hunks: 1}, m.Stats)
}

func TestCompute_ContextAroundSingleCharacter(t *testing.T) {
	cfg := diffCfg(1)
	cfg.SimilarityThreshold = 0

	m, err := Compute(context.Background(),
		in("f", "a", "b", "c", "d", "e"),
		in("f", "a", "B", "c", "d", "e"), cfg)
	require.NoError(t, err)

	require.Len(t, m.Hunks, 1)
	h := m.Hunks[0]
	assert.Equal(t, 0, h.OldStart)
	assert.Equal(t, 3, h.OldLen)
	assert.Equal(t, 0, h.NewStart)
	assert.Equal(t, 3, h.NewLen)

	r, ok := m.Refined[1]
	require.True(t, ok)
	assert.True(t, r.Refined)
	assert.Equal(t, []refine.Span{{Start: 0, End: 1, Kind: refine.Removed}}, r.Old)
	assert.Equal(t, []refine.Span{{Start: 0, End: 1, Kind: refine.Added}}, r.New)
}

func TestCompute_HunkGap(t *testing.T) {
	build := func(gap int) (Input, Input) {
		oldLines := []string{"x"}
		newLines := []string{"X"}
		for i := 0; i < gap; i++ {
			l := fmt.Sprintf("same %d", i)
			oldLines = append(oldLines, l)
			newLines = append(newLines, l)
		}
		oldLines = append(oldLines, "y")
		newLines = append(newLines, "Y")
		return in("f", oldLines...), in("f", newLines...)
	}

	o, n := build(10)
	m, err := Compute(context.Background(), o, n, diffCfg(3))
	require.NoError(t, err)
	assert.Len(t, m.Hunks, 2)

	o, n = build(4)
	m, err = Compute(context.Background(), o, n, diffCfg(3))
	require.NoError(t, err)
	assert.Len(t, m.Hunks, 1)
}

func TestCompute_Identical(t *testing.T) {
	a := in("f", "one", "two")
	m, err := Compute(context.Background(), a, a, diffCfg(3))
	require.NoError(t, err)
	assert.True(t, m.Identical())
	assert.Empty(t, m.Hunks)
	assert.Equal(t, hunk.Stats{}, m.Stats)
}

func TestCompute_Empty(t *testing.T) {
	m, err := Compute(context.Background(), Input{}, Input{}, diffCfg(3))
	require.NoError(t, err)
	assert.True(t, m.Identical())

	m, err = Compute(context.Background(), Input{}, in("f", "a", "b"), diffCfg(3))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Stats.Additions)
	require.NoError(t, m.Validate())
}

func TestCompute_LineEndingPolicy(t *testing.T) {
	old := Input{Content: []byte("a\r\nb\r\n")}
	new := Input{Content: []byte("a\nb")}

	m, err := Compute(context.Background(), old, new, diffCfg(3))
	require.NoError(t, err)
	assert.False(t, m.Identical())
	assert.Equal(t, 2, m.Stats.Deletions)

	cfg := diffCfg(3)
	cfg.LineEndingPolicy = segment.PolicyNormalize
	m, err = Compute(context.Background(), old, new, cfg)
	require.NoError(t, err)
	assert.True(t, m.Identical())
	require.NoError(t, m.Validate())
}

func TestCompute_Idempotent(t *testing.T) {
	o := in("f", "package main", "", "func main() {", "\tprintln(1)", "}")
	n := in("f", "package main", "", "func main() {", "\tprintln(2)", "\tprintln(3)", "}")
	a, err := Compute(context.Background(), o, n, diffCfg(3))
	require.NoError(t, err)
	b, err := Compute(context.Background(), o, n, diffCfg(3))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompute_ZeroBudgetIsApproximate(t *testing.T) {
	cfg := diffCfg(3)
	cfg.EditBudget = 0
	m, err := Compute(context.Background(), in("f", "a", "b", "c"), in("f", "a", "x", "c", "d"), cfg)
	require.NoError(t, err)
	assert.True(t, m.Approximate)
	require.Len(t, m.Hunks, 1)
	assert.Equal(t, 0, m.Hunks[0].OldStart)
	assert.Equal(t, 3, m.Hunks[0].OldLen)
	assert.Equal(t, 4, m.Hunks[0].NewLen)
	require.NoError(t, m.Validate())
}

func TestCompute_NegativeSettingsAreClamped(t *testing.T) {
	cfg := diffCfg(-5)
	cfg.EditBudget = -1
	m, err := Compute(context.Background(), in("f", "a"), in("f", "b"), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Config.ContextSize)
	assert.Equal(t, 0, m.Config.EditBudget)
}

func TestCompute_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compute(ctx, in("f", "a"), in("f", "b"), diffCfg(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCompute_DeadlineIsApproximate(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	m, err := Compute(ctx, in("f", "a", "b"), in("f", "c"), diffCfg(3))
	require.NoError(t, err)
	assert.True(t, m.Approximate)
	require.NoError(t, m.Validate())
}

func TestCompute_EncodingError(t *testing.T) {
	_, err := Compute(context.Background(), Input{Path: "bin", Content: []byte{'o', 'k', 0xff}}, in("f", "a"), diffCfg(3))
	var encErr *segment.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 2, encErr.Offset)
}

func TestMarshal_RoundTrip(t *testing.T) {
	o := in("main.go", "func foo(x int) int {", "\treturn x", "}")
	n := in("main.go", "func foo(x int64) int {", "\treturn x + 1", "}", "")
	m, err := Compute(context.Background(), o, n, diffCfg(3))
	require.NoError(t, err)

	b, err := Marshal(m)
	require.NoError(t, err)
	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestUnmarshal_RejectsInconsistentModel(t *testing.T) {
	m, err := Compute(context.Background(), in("f", "a", "b"), in("f", "a", "c"), diffCfg(3))
	require.NoError(t, err)
	m.Stats.Additions = 9

	b, err := Marshal(m)
	require.NoError(t, err)
	_, err = Unmarshal(b)
	assert.Error(t, err)
}

func TestHunkAt(t *testing.T) {
	m, err := Compute(context.Background(), in("f", "a", "b", "c", "d"), in("f", "a", "b", "c", "D"), diffCfg(1))
	require.NoError(t, err)
	assert.Equal(t, 0, m.HunkAt(3, false))
	assert.Equal(t, 0, m.HunkAt(2, true))
	assert.Equal(t, -1, m.HunkAt(0, true))
}
