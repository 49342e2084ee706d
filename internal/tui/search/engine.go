// Package search finds and highlights text in the rendered diff pane.
package search

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/interpretive-systems/diffkit/internal/ansi"
)

// Scope limits which lines of the pane a search looks at.
type Scope int

const (
	ScopeAll Scope = iota
	// ScopeChanges matches only added, removed and modified lines.
	ScopeChanges
)

func (s Scope) String() string {
	if s == ScopeChanges {
		return "changes"
	}
	return "all"
}

// Engine finds a query in the rendered diff pane. A query with an upper-case letter matches case-sensitively.
type Engine struct {
	query       string
	scope       Scope
	matches     []int // content line indices
	index       int
	input       textinput.Model
	active      bool
	highlighter *Highlighter
	content     []string
	changed     []bool // changed[i] reports whether content line i shows a change
}

// New creates a new search engine.
func New() *Engine {
	ti := textinput.New()
	ti.Placeholder = "Search diff"
	ti.Prompt = "/ "
	ti.CharLimit = 0

	return &Engine{
		highlighter: NewHighlighter(),
		input:       ti,
	}
}

// Activate opens the search input.
func (e *Engine) Activate() {
	e.active = true
	e.input.Focus()
}

// Deactivate closes the input. The query and its highlights stay until Clear.
func (e *Engine) Deactivate() {
	e.active = false
	e.input.Blur()
}

// Clear drops the query.
func (e *Engine) Clear() {
	e.input.SetValue("")
	e.query = ""
	e.recomputeMatches()
}

// IsActive returns whether the input is open.
func (e *Engine) IsActive() bool {
	return e.active
}

// HandleKey processes a key while the input is open.
func (e *Engine) HandleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		e.Deactivate()
		e.Clear()
		return nil
	case "enter":
		e.Deactivate()
		return nil
	case "tab":
		e.ToggleScope()
		return nil
	case "down":
		e.Next()
		return nil
	case "up":
		e.Previous()
		return nil
	}

	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	if v := e.input.Value(); v != e.query {
		e.query = v
		e.index = 0
		e.recomputeMatches()
	}
	return cmd
}

// SetContent replaces the searched lines. changed may be nil when no line is known to be a change.
func (e *Engine) SetContent(lines []string, changed []bool) {
	prev := e.CurrentMatchLine()
	e.content = lines
	e.changed = changed
	e.recomputeMatches()
	e.seek(prev)
}

// Query returns the current search query.
func (e *Engine) Query() string {
	return e.query
}

// Scope returns the current scope.
func (e *Engine) Scope() Scope {
	return e.scope
}

// ToggleScope switches between all lines and changed lines only.
func (e *Engine) ToggleScope() {
	prev := e.CurrentMatchLine()
	e.scope = 1 - e.scope
	e.recomputeMatches()
	e.seek(prev)
}

func (e *Engine) caseSensitive() bool {
	return strings.ToLower(e.query) != e.query
}

func (e *Engine) inScope(i int) bool {
	if e.scope == ScopeAll {
		return true
	}
	return i < len(e.changed) && e.changed[i]
}

func (e *Engine) recomputeMatches() {
	e.matches = nil
	if e.query == "" {
		e.index = 0
		return
	}
	q, fold := e.query, !e.caseSensitive()
	if fold {
		q = strings.ToLower(q)
	}
	for i, line := range e.content {
		if !e.inScope(i) {
			continue
		}
		text := ansi.Strip(line)
		if fold {
			text = strings.ToLower(text)
		}
		if strings.Contains(text, q) {
			e.matches = append(e.matches, i)
		}
	}
	if e.index >= len(e.matches) {
		e.index = 0
	}
}

// seek makes the first match at or after line current, so re-rendering does not jump back to the first match.
func (e *Engine) seek(line int) {
	if line < 0 || len(e.matches) == 0 {
		return
	}
	e.index = sort.SearchInts(e.matches, line) % len(e.matches)
}

// Next advances to the next match, wrapping at the end.
func (e *Engine) Next() {
	if len(e.matches) == 0 {
		return
	}
	e.index = (e.index + 1) % len(e.matches)
}

// Previous moves to the previous match, wrapping at the start.
func (e *Engine) Previous() {
	if len(e.matches) == 0 {
		return
	}
	e.index = (e.index - 1 + len(e.matches)) % len(e.matches)
}

// CurrentMatchLine returns the line index of the current match, or -1.
func (e *Engine) CurrentMatchLine() int {
	if len(e.matches) == 0 {
		return -1
	}
	return e.matches[e.index]
}

// HighlightedContent returns the content with matches highlighted.
func (e *Engine) HighlightedContent() []string {
	if len(e.matches) == 0 {
		return e.content
	}
	return e.highlighter.HighlightLines(e.content, e.query, !e.caseSensitive(), e.matches, e.CurrentMatchLine())
}

// MatchCount returns the number of matching lines.
func (e *Engine) MatchCount() int {
	return len(e.matches)
}

// CurrentMatchIndex returns the 1-based position of the current match, or 0.
func (e *Engine) CurrentMatchIndex() int {
	if len(e.matches) == 0 {
		return 0
	}
	return e.index + 1
}

// InputView returns the text input view.
func (e *Engine) InputView() string {
	return e.input.View()
}
