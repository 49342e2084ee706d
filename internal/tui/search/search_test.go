package search

import (
	"reflect"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestFindQueryRanges(t *testing.T) {
	got := findQueryRanges("\x1b[32mHello\x1b[0m hello", "hello", true)
	want := []RuneRange{{0, 5}, {6, 11}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := findQueryRanges("Hello hello", "Hello", false); !reflect.DeepEqual(got, []RuneRange{{0, 5}}) {
		t.Fatalf("case-sensitive search should skip lower case, got %v", got)
	}
	if got := findQueryRanges("aaa", "aa", true); !reflect.DeepEqual(got, []RuneRange{{0, 3}}) {
		t.Fatalf("overlapping matches should merge, got %v", got)
	}
}

func TestApplyRangeHighlight_KeepsEscapes(t *testing.T) {
	h := NewHighlighter()
	got := h.applyRangeHighlight("\x1b[31mabc\x1b[0m", []RuneRange{{1, 2}}, false)
	want := "\x1b[31ma" + matchStartSeq + "b" + matchEndSeq + "c\x1b[0m"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	got = h.applyRangeHighlight("xy", []RuneRange{{1, 2}}, true)
	if want := "x" + currentMatchStartSeq + "y" + matchEndSeq; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEngine_MatchesAndNavigation(t *testing.T) {
	e := New()
	e.SetContent([]string{"alpha", "beta", "alphabet", "gamma"}, nil)
	e.Activate()
	e.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("alpha")})
	if e.Query() != "alpha" {
		t.Fatalf("query = %q", e.Query())
	}
	if e.MatchCount() != 2 || e.CurrentMatchLine() != 0 {
		t.Fatalf("matches = %d, current = %d", e.MatchCount(), e.CurrentMatchLine())
	}
	e.Next()
	if e.CurrentMatchLine() != 2 || e.CurrentMatchIndex() != 2 {
		t.Fatalf("next should move to line 2, got %d", e.CurrentMatchLine())
	}
	e.Next()
	if e.CurrentMatchLine() != 0 {
		t.Fatalf("next should wrap, got %d", e.CurrentMatchLine())
	}
	e.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	if e.IsActive() || e.MatchCount() != 2 {
		t.Fatal("enter should close the input and keep matches")
	}
	e.Activate()
	e.HandleKey(tea.KeyMsg{Type: tea.KeyEsc})
	if e.Query() != "" || e.MatchCount() != 0 {
		t.Fatal("esc should clear the query")
	}
}

func TestEngine_SmartCase(t *testing.T) {
	e := New()
	e.SetContent([]string{"Foo", "foo"}, nil)
	e.Activate()
	e.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("foo")})
	if e.MatchCount() != 2 {
		t.Fatalf("lower-case query should ignore case, got %d matches", e.MatchCount())
	}
	e.Clear()
	e.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Foo")})
	if e.MatchCount() != 1 || e.CurrentMatchLine() != 0 {
		t.Fatalf("upper-case query should match case, got %d matches", e.MatchCount())
	}
}

func TestEngine_ScopeChanges(t *testing.T) {
	e := New()
	e.SetContent([]string{" x = 1", "-x = 2", "+x = 3", " x = 4"}, []bool{false, true, true, false})
	e.Activate()
	e.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x =")})
	if e.MatchCount() != 4 {
		t.Fatalf("matches = %d", e.MatchCount())
	}
	e.HandleKey(tea.KeyMsg{Type: tea.KeyTab})
	if e.Scope() != ScopeChanges || e.MatchCount() != 2 || e.CurrentMatchLine() != 1 {
		t.Fatalf("scope %v: matches = %d, current = %d", e.Scope(), e.MatchCount(), e.CurrentMatchLine())
	}
}

func TestEngine_SetContentKeepsPosition(t *testing.T) {
	e := New()
	e.SetContent([]string{"a", "a", "a", "a"}, nil)
	e.Activate()
	e.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	e.Next()
	e.Next()
	// line 1 disappears, as when a hunk above collapses
	e.SetContent([]string{"a", "b", "a", "a"}, nil)
	if e.CurrentMatchLine() != 2 {
		t.Fatalf("current = %d, want 2", e.CurrentMatchLine())
	}
}
