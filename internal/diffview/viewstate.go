package diffview

import (
	"sync"

	"github.com/interpretive-systems/diffkit/internal/hunk"
)

// ViewState is the mutable presentation state shared by all views of one model. It has a single writer; projectors
// only read it.
type ViewState struct {
	Collapsed  map[int]bool
	SideBySide bool
	WrapWidth  int // 0 disables wrapping
}

// NewViewState returns an empty state.
func NewViewState() *ViewState {
	return &ViewState{Collapsed: make(map[int]bool)}
}

// IsCollapsed reports whether hunk id is collapsed. A nil state collapses nothing.
func (vs *ViewState) IsCollapsed(id int) bool {
	return vs != nil && vs.Collapsed[id]
}

// Collapse folds hunk id.
func (vs *ViewState) Collapse(id int) Event {
	if vs.Collapsed == nil {
		vs.Collapsed = make(map[int]bool)
	}
	vs.Collapsed[id] = true
	return HunkCollapsed{ID: id}
}

// Expand unfolds hunk id.
func (vs *ViewState) Expand(id int) Event {
	delete(vs.Collapsed, id)
	return HunkExpanded{ID: id}
}

// Toggle flips hunk id.
func (vs *ViewState) Toggle(id int) Event {
	if vs.IsCollapsed(id) {
		return vs.Expand(id)
	}
	return vs.Collapse(id)
}

// Reset expands every hunk. Hunk ids are only meaningful within one model, so views call it when the model changes.
func (vs *ViewState) Reset() {
	vs.Collapsed = make(map[int]bool)
}

func (vs *ViewState) wrapWidth() int {
	if vs == nil {
		return 0
	}
	return vs.WrapWidth
}

// Event is an outward notification from a view.
type Event interface {
	event()
}

type (
	HunkCollapsed struct{ ID int }
	HunkExpanded  struct{ ID int }
	LineClicked   struct {
		Side Side
		Line int
	}
	StatsUpdated struct{ Stats hunk.Stats }
)

func (HunkCollapsed) event() {}
func (HunkExpanded) event()  {}
func (LineClicked) event()   {}
func (StatsUpdated) event()  {}

// Emitter fans events out to subscribers in subscription order.
type Emitter struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

type subscriber struct {
	id int
	fn func(Event)
}

// Subscribe registers fn and returns a function that removes it.
func (e *Emitter) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.subs = append(e.subs, subscriber{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers ev to every subscriber. Subscribers run outside the lock and may subscribe or unsubscribe.
func (e *Emitter) Emit(ev Event) {
	if ev == nil {
		return
	}
	e.mu.Lock()
	subs := append([]subscriber(nil), e.subs...)
	e.mu.Unlock()
	for _, s := range subs {
		s.fn(ev)
	}
}
