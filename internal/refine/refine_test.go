package refine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render marks removed/added spans with [-...-] / {+...+} for compact assertions.
func render(text string, spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case Removed:
			sb.WriteString("[-" + text[s.Start:s.End] + "-]")
		case Added:
			sb.WriteString("{+" + text[s.Start:s.End] + "+}")
		default:
			sb.WriteString(text[s.Start:s.End])
		}
	}
	return sb.String()
}

func TestTokenize_Reconstructs(t *testing.T) {
	for _, s := range []string{"", "foo(bar, baz)", "  x := y + 1 // note", "héllo wörld"} {
		var sb strings.Builder
		pos := 0
		for _, tok := range Tokenize(s) {
			assert.Equal(t, pos, tok.Start)
			assert.Equal(t, s[tok.Start:tok.End], tok.Text)
			sb.WriteString(tok.Text)
			pos = tok.End
		}
		assert.Equal(t, s, sb.String())
	}
}

func TestPair_UnrelatedLinesStayWhole(t *testing.T) {
	r := Pair("b", "x", DefaultOptions())
	assert.False(t, r.Refined)
	assert.Equal(t, []Span{{Start: 0, End: 1, Kind: Removed}}, r.Old)
	assert.Equal(t, []Span{{Start: 0, End: 1, Kind: Added}}, r.New)

	r = Pair("return nil", "panic(err)", DefaultOptions())
	assert.False(t, r.Refined)
	assert.Equal(t, "[-return nil-]", render("return nil", r.Old))
}

func TestPair_SingleCharacter(t *testing.T) {
	opts := DefaultOptions()
	opts.Threshold = 0

	r := Pair("b", "B", opts)
	assert.True(t, r.Refined)
	assert.Equal(t, []Span{{Start: 0, End: 1, Kind: Removed}}, r.Old)
	assert.Equal(t, []Span{{Start: 0, End: 1, Kind: Added}}, r.New)

	r = Pair("value = total", "value = totals", DefaultOptions())
	assert.True(t, r.Refined)
	assert.Equal(t, "value = total", render("value = total", r.Old))
	assert.Equal(t, "value = total{+s+}", render("value = totals", r.New))
}

func TestPair_WordChange(t *testing.T) {
	oldText := "func foo(x int) int {"
	newText := "func foo(x int64) int {"
	r := Pair(oldText, newText, DefaultOptions())

	require.True(t, r.Refined)
	assert.Equal(t, "func foo(x int) int {", render(oldText, r.Old))
	assert.Equal(t, "func foo(x int{+64+}) int {", render(newText, r.New))
	assert.Greater(t, r.Similarity, 0.5)
}

func TestPair_CharLevelOff(t *testing.T) {
	opts := DefaultOptions()
	opts.CharLevel = false

	r := Pair("call(alpha, beta)", "call(alpha, gamma)", opts)
	assert.Equal(t, "call(alpha, [-beta-])", render("call(alpha, beta)", r.Old))
	assert.Equal(t, "call(alpha, {+gamma+})", render("call(alpha, gamma)", r.New))
}

func TestPair_AbsorbsSpaceBetweenChanges(t *testing.T) {
	opts := DefaultOptions()
	opts.CharLevel = false

	oldText := "keep one two keep"
	newText := "keep three four keep"
	r := Pair(oldText, newText, opts)
	require.True(t, r.Refined)
	assert.Equal(t, "keep [-one two-] keep", render(oldText, r.Old))
	assert.Equal(t, "keep {+three four+} keep", render(newText, r.New))
}

func TestPair_Coverage(t *testing.T) {
	pairs := [][2]string{
		{"", "x"},
		{"a b c", "a c"},
		{"if err != nil {", "if err == nil {"},
		{"  indent", "\tindent"},
		{"日本語のテキスト", "日本語テキスト"},
	}
	for _, p := range pairs {
		for _, th := range []float64{0, DefaultThreshold, 1} {
			r := Pair(p[0], p[1], Options{Threshold: th, CharLevel: true})
			require.NoError(t, CheckCoverage(r.Old, len(p[0])), "%q -> %q", p[0], p[1])
			require.NoError(t, CheckCoverage(r.New, len(p[1])), "%q -> %q", p[0], p[1])
			for _, s := range r.Old {
				assert.NotEqual(t, Added, s.Kind)
			}
			for _, s := range r.New {
				assert.NotEqual(t, Removed, s.Kind)
			}
		}
	}
}

func TestCheckCoverage(t *testing.T) {
	assert.NoError(t, CheckCoverage(nil, 0))
	assert.Error(t, CheckCoverage(nil, 3))
	assert.Error(t, CheckCoverage([]Span{{0, 2, Unchanged}, {3, 4, Added}}, 4))
	assert.NoError(t, CheckCoverage(Whole("abc", Added), 3))
}
