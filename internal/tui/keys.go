package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// KeyAction represents an action triggered by a key press.
type KeyAction int

const (
	ActionNone KeyAction = iota
	ActionQuit
	ActionToggleHelp
	ActionOpenSearch
	ActionRefresh
	ActionToggleSideBySide
	ActionToggleWrap
	ActionMoveUp
	ActionMoveDown
	ActionGoToTop
	ActionGoToBottom
	ActionPageUpLeft
	ActionPageDownLeft
	ActionScrollLeft
	ActionScrollRight
	ActionScrollHome
	ActionPageDown
	ActionPageUp
	ActionHalfPageDown
	ActionHalfPageUp
	ActionLineDown
	ActionLineUp
	ActionAdjustLeftNarrower
	ActionAdjustLeftWider
	ActionSearchNext
	ActionSearchPrevious
	ActionNextHunk
	ActionPrevHunk
	ActionToggleHunk
	ActionExpandAll
	ActionMoreContext
	ActionLessContext
)

// binding is one row of the key map. name is the action's key in the [keys] config table.
type binding struct {
	action KeyAction
	name   string
	keys   []string
	help   string
}

var defaultBindings = []binding{
	{ActionMoveDown, "down", []string{"j", "down"}, "Next file (a count such as 5j repeats)"},
	{ActionMoveUp, "up", []string{"k", "up"}, "Previous file"},
	{ActionGoToTop, "top", []string{"g"}, "First file"},
	{ActionGoToBottom, "bottom", []string{"G"}, "Last file"},
	{ActionPageUpLeft, "files_page_up", []string{"["}, "Page the file list up"},
	{ActionPageDownLeft, "files_page_down", []string{"]"}, "Page the file list down"},
	{ActionPageDown, "page_down", []string{"pgdown", " "}, "Scroll diff a page down"},
	{ActionPageUp, "page_up", []string{"pgup"}, "Scroll diff a page up"},
	{ActionHalfPageDown, "half_page_down", []string{"J", "ctrl+d"}, "Scroll diff half a page down"},
	{ActionHalfPageUp, "half_page_up", []string{"K", "ctrl+u"}, "Scroll diff half a page up"},
	{ActionLineDown, "line_down", []string{"ctrl+e"}, "Scroll diff a line down"},
	{ActionLineUp, "line_up", []string{"ctrl+y"}, "Scroll diff a line up"},
	{ActionNextHunk, "next_hunk", []string{"}"}, "Next hunk"},
	{ActionPrevHunk, "prev_hunk", []string{"{"}, "Previous hunk"},
	{ActionToggleHunk, "toggle_hunk", []string{"z", "enter"}, "Collapse or expand the hunk at the top"},
	{ActionExpandAll, "expand_all", []string{"Z"}, "Expand all hunks"},
	{ActionMoreContext, "more_context", []string{"+", "="}, "More context"},
	{ActionLessContext, "less_context", []string{"-"}, "Less context"},
	{ActionToggleSideBySide, "split", []string{"s"}, "Toggle split / unified"},
	{ActionToggleWrap, "wrap", []string{"w"}, "Toggle wrapping"},
	{ActionScrollLeft, "scroll_left", []string{"left"}, "Scroll left (wrapping off)"},
	{ActionScrollRight, "scroll_right", []string{"right"}, "Scroll right (wrapping off)"},
	{ActionScrollHome, "scroll_home", []string{"home"}, "Scroll to the first column"},
	{ActionOpenSearch, "search", []string{"/"}, "Search (tab in the input: changed lines only)"},
	{ActionSearchNext, "search_next", []string{"n"}, "Next match"},
	{ActionSearchPrevious, "search_prev", []string{"N"}, "Previous match"},
	{ActionAdjustLeftNarrower, "narrower", []string{"<"}, "Narrow the file list"},
	{ActionAdjustLeftWider, "wider", []string{">"}, "Widen the file list"},
	{ActionRefresh, "refresh", []string{"r"}, "Refresh now"},
	{ActionToggleHelp, "help", []string{"h", "?"}, "Toggle this help"},
	{ActionQuit, "quit", []string{"ctrl+c", "q"}, "Quit"},
}

// KeyHandler turns key presses into actions. Digits typed before a movement key form its count, as in vi.
type KeyHandler struct {
	bindings  []binding
	actions   map[string]KeyAction
	keyBuffer string
}

// NewKeyHandler creates a key handler. overrides replaces the keys of the named actions; unknown action names are
// reported in the error and otherwise ignored, so the returned handler is always usable.
func NewKeyHandler(overrides map[string][]string) (*KeyHandler, error) {
	k := &KeyHandler{
		bindings: make([]binding, len(defaultBindings)),
		actions:  make(map[string]KeyAction),
	}
	copy(k.bindings, defaultBindings)

	var errs []error
	known := make(map[string]bool, len(k.bindings))
	rebound := make(map[string]bool)
	for i := range k.bindings {
		b := &k.bindings[i]
		known[b.name] = true
		if keys, ok := overrides[b.name]; ok && len(keys) > 0 {
			b.keys = keys
			rebound[b.name] = true
		}
	}
	for name := range overrides {
		if !known[name] {
			errs = append(errs, fmt.Errorf("unknown key action %q", name))
		}
	}
	// Rebound actions are mapped last so they take keys away from the defaults.
	for _, pass := range []bool{false, true} {
		for _, b := range k.bindings {
			if rebound[b.name] != pass {
				continue
			}
			for _, key := range b.keys {
				if isNumericKey(key) {
					errs = append(errs, fmt.Errorf("key %q for %s is reserved for counts", key, b.name))
					continue
				}
				k.actions[key] = b.action
			}
		}
	}
	k.actions["ctrl+c"] = ActionQuit
	return k, errors.Join(errs...)
}

// Handle processes a key message and returns the action and its count.
func (k *KeyHandler) Handle(msg tea.KeyMsg) (KeyAction, int) {
	key := msg.String()
	if isNumericKey(key) && (k.keyBuffer != "" || key != "0") {
		k.keyBuffer += key
		return ActionNone, 0
	}

	count := 1
	if n, err := strconv.Atoi(k.keyBuffer); err == nil && n > 0 {
		count = n
	}
	k.keyBuffer = ""
	return k.actions[key], count
}

// KeyBuffer returns the pending count.
func (k *KeyHandler) KeyBuffer() string {
	return k.keyBuffer
}

// ClearBuffer clears the key buffer.
func (k *KeyHandler) ClearBuffer() {
	k.keyBuffer = ""
}

// HelpLines lists the bindings, one per line.
func (k *KeyHandler) HelpLines() []string {
	lines := make([]string, 0, len(k.bindings))
	for _, b := range k.bindings {
		keys := make([]string, len(b.keys))
		for i, key := range b.keys {
			if key == " " {
				key = "space"
			}
			keys[i] = key
		}
		lines = append(lines, fmt.Sprintf("%-16s %s", strings.Join(keys, " "), b.help))
	}
	return lines
}

func isNumericKey(key string) bool {
	return len(key) == 1 && key >= "0" && key <= "9"
}
