package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/diffview"
	"github.com/interpretive-systems/diffkit/internal/render"
	"github.com/interpretive-systems/diffkit/internal/theme"
)

// DiffView manages the right pane diff viewer.
type DiffView struct {
	model    *diffmodel.Model
	state    *diffview.ViewState
	viewport viewport.Model
	xOffset  int
	wrap     bool
	theme    theme.Theme
	note     string // shown instead of the diff, e.g. for binary files

	// Projection of the last render; line i of the content shows row i.
	unified []diffview.Row
	split   diffview.SplitView
	content []string
}

// NewDiffView creates a new diff viewer.
func NewDiffView(th theme.Theme, state *diffview.ViewState) *DiffView {
	if state == nil {
		state = diffview.NewViewState()
	}
	return &DiffView{theme: th, state: state}
}

// SetModel replaces the displayed model and expands every hunk. A model of the same file pair keeps the line at the
// top of the pane in place; any other model starts at the top.
func (d *DiffView) SetModel(m *diffmodel.Model) {
	same := d.model != nil && m != nil && d.model.Old.Path == m.Old.Path && d.model.New.Path == m.New.Path
	a := d.TopAnchor()
	if !same {
		d.xOffset = 0
	}
	d.state.Reset()
	d.model = m
	d.note = ""
	d.Render()
	if same {
		d.ScrollTo(a)
	} else {
		d.viewport.GotoTop()
	}
}

// Model returns the displayed model.
func (d *DiffView) Model() *diffmodel.Model {
	return d.model
}

// SetNote shows text in place of a diff.
func (d *DiffView) SetNote(note string) {
	d.model = nil
	d.note = note
	d.Render()
	d.viewport.GotoTop()
}

// State returns the view state shared by both projections.
func (d *DiffView) State() *diffview.ViewState {
	return d.state
}

// SetSize updates the viewport dimensions and rerenders.
func (d *DiffView) SetSize(width, height int) {
	if width == d.viewport.Width && height == d.viewport.Height {
		return
	}
	a := d.TopAnchor()
	d.viewport.Width = width
	d.viewport.Height = height
	d.Render()
	d.ScrollTo(a)
}

// SideBySide reports whether the split projection is shown.
func (d *DiffView) SideBySide() bool {
	return d.state.SideBySide
}

// SetSideBySide switches projections, keeping the top line in place.
func (d *DiffView) SetSideBySide(v bool) {
	a := d.TopAnchor()
	d.state.SideBySide = v
	d.Render()
	d.ScrollTo(a)
}

// Wrap reports whether long lines wrap.
func (d *DiffView) Wrap() bool {
	return d.wrap
}

// SetWrap sets line wrapping. Wrapping resets horizontal scroll.
func (d *DiffView) SetWrap(v bool) {
	a := d.TopAnchor()
	d.wrap = v
	if v {
		d.xOffset = 0
	}
	d.Render()
	d.ScrollTo(a)
}

// XOffset returns the current horizontal offset.
func (d *DiffView) XOffset() int {
	return d.xOffset
}

// ScrollLeft scrolls left by delta.
func (d *DiffView) ScrollLeft(delta int) {
	if d.wrap {
		return
	}
	d.xOffset = max(d.xOffset-delta, 0)
	d.Render()
}

// ScrollRight scrolls right by delta.
func (d *DiffView) ScrollRight(delta int) {
	if d.wrap {
		return
	}
	d.xOffset += delta
	d.Render()
}

// ScrollHome resets horizontal scroll.
func (d *DiffView) ScrollHome() {
	d.xOffset = 0
	d.Render()
}

// Rows returns the rows of the current projection, one per content line. In split mode these are the new-side rows.
func (d *DiffView) Rows() []diffview.Row {
	if d.state.SideBySide {
		return d.split.Right
	}
	return d.unified
}

// ChangedLines reports for each content line whether it shows an added, removed or modified line on either side.
func (d *DiffView) ChangedLines() []bool {
	changed := make([]bool, len(d.content))
	for i := range changed {
		if d.state.SideBySide {
			changed[i] = i < d.split.Len() && (isChange(d.split.Left[i]) || isChange(d.split.Right[i]))
		} else {
			changed[i] = i < len(d.unified) && isChange(d.unified[i])
		}
	}
	return changed
}

func isChange(r diffview.Row) bool {
	switch r.Kind {
	case diffview.RowAdded, diffview.RowRemoved, diffview.RowModified:
		return true
	}
	return false
}

// TopAnchor returns the anchor of the first visible line.
func (d *DiffView) TopAnchor() diffview.Anchor {
	return d.anchorAt(d.viewport.YOffset)
}

func (d *DiffView) anchorAt(i int) diffview.Anchor {
	if !d.state.SideBySide {
		return diffview.AnchorAt(d.unified, i)
	}
	a := diffview.AnchorAt(d.split.Right, i)
	if a.Side == diffview.SideBoth {
		if b := diffview.AnchorAt(d.split.Left, i); b.Side != diffview.SideBoth {
			return b
		}
	}
	return a
}

// ScrollTo scrolls so that a is the first visible line.
func (d *DiffView) ScrollTo(a diffview.Anchor) {
	var i int
	if !d.state.SideBySide {
		i = diffview.Locate(d.unified, a)
	} else if i = d.split.RowForLine(a.Side, a.Line); a.Side == diffview.SideBoth || i < 0 {
		i = diffview.Locate(d.split.Right, diffview.Anchor{Side: diffview.SideBoth, HunkID: a.HunkID})
	}
	d.viewport.SetYOffset(i)
}

// CurrentHunk returns the id of the hunk at the top of the pane, or -1.
func (d *DiffView) CurrentHunk() int {
	return diffview.HunkOf(d.Rows(), d.viewport.YOffset)
}

// ToggleHunk collapses or expands the hunk at the top of the pane and keeps its header in view.
func (d *DiffView) ToggleHunk() (diffview.Event, bool) {
	id := d.CurrentHunk()
	if id < 0 || d.model == nil {
		return nil, false
	}
	ev := d.state.Toggle(id)
	d.Render()
	d.ScrollTo(diffview.Anchor{Side: diffview.SideBoth, HunkID: id})
	return ev, true
}

// ExpandAll expands every collapsed hunk.
func (d *DiffView) ExpandAll() {
	a := d.TopAnchor()
	d.state.Reset()
	d.Render()
	d.ScrollTo(a)
}

// NextHunk scrolls to the next hunk header. It reports false at the last hunk.
func (d *DiffView) NextHunk() bool {
	i := diffview.NextHunk(d.Rows(), d.viewport.YOffset)
	if i < 0 {
		return false
	}
	d.viewport.SetYOffset(i)
	return true
}

// PrevHunk scrolls to the previous hunk header. It reports false at the first hunk.
func (d *DiffView) PrevHunk() bool {
	i := diffview.PrevHunk(d.Rows(), d.viewport.YOffset)
	if i < 0 {
		return false
	}
	d.viewport.SetYOffset(i)
	return true
}

// LineAt returns the anchor of content line y of the pane, counted from the top of the visible area.
func (d *DiffView) LineAt(y int) (diffview.Anchor, bool) {
	i := d.viewport.YOffset + y
	rows := d.Rows()
	if i < 0 || i >= len(rows) {
		return diffview.Anchor{}, false
	}
	a := d.anchorAt(i)
	return a, a.Side != diffview.SideBoth
}

func (d *DiffView) options() render.Options {
	return render.Options{
		Color:       true,
		Theme:       d.theme,
		LineNumbers: true,
		Width:       d.viewport.Width,
		XOffset:     d.xOffset,
	}
}

// textWidth is the room left for line text once markers and line numbers are drawn.
func (d *DiffView) textWidth() int {
	w := d.viewport.Width
	if d.state.SideBySide {
		return (w-1)/2 - len("+ ") - len("1234 ")
	}
	return w - len("1234 1234 ") - len("+")
}

// Render projects the model and caches the rendered lines.
func (d *DiffView) Render() []string {
	d.unified, d.split = nil, diffview.SplitView{}
	switch {
	case d.note != "":
		d.content = []string{lipgloss.NewStyle().Faint(true).Render(d.note)}
	case d.model == nil:
		d.content = []string{"Loading diff…"}
	case d.model.Identical():
		d.content = []string{lipgloss.NewStyle().Faint(true).Render("(No differences)")}
	default:
		d.state.WrapWidth = 0
		if d.wrap {
			d.state.WrapWidth = max(d.textWidth(), 1)
		}
		if d.state.SideBySide {
			d.split = diffview.Split(d.model, d.state)
			d.content = render.SplitLines(d.split, d.options())
		} else {
			d.unified = diffview.Unified(d.model, d.state)
			d.content = render.UnifiedLines(d.unified, d.options())
		}
	}
	d.viewport.SetContent(strings.Join(d.content, "\n"))
	return d.content
}

// Content returns the cached content.
func (d *DiffView) Content() []string {
	return d.content
}

// SetContent shows lines derived from the cached content, such as search highlights.
func (d *DiffView) SetContent(lines []string) {
	d.viewport.SetContent(strings.Join(lines, "\n"))
}

// View returns the viewport view.
func (d *DiffView) View() string {
	return d.viewport.View()
}

// Viewport returns the underlying viewport for direct manipulation.
func (d *DiffView) Viewport() *viewport.Model {
	return &d.viewport
}
