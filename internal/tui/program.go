// Package tui is the interactive viewer of a repository's working-tree changes.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/interpretive-systems/diffkit/internal/ansi"
	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/diffview"
	"github.com/interpretive-systems/diffkit/internal/prefs"
	"github.com/interpretive-systems/diffkit/internal/render"
	"github.com/interpretive-systems/diffkit/internal/session"
	"github.com/interpretive-systems/diffkit/internal/watch"
)

// Program is the Bubble Tea model of the viewer.
type Program struct {
	state      *State
	layout     *Layout
	keyHandler *KeyHandler
	log        *slog.Logger

	sched   *session.Scheduler
	results <-chan session.Result
	changes <-chan string
}

// Run starts the viewer on repoRoot and blocks until it quits.
func Run(repoRoot string, cfg *config.Config, log *slog.Logger) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("component", "tui")

	p := prefs.Load(repoRoot)
	p.Apply(cfg)
	state := NewState(repoRoot, cfg)
	state.Events.Subscribe(func(ev diffview.Event) {
		log.Debug("view event", "event", fmt.Sprintf("%T", ev), "detail", fmt.Sprintf("%+v", ev))
	})

	keys, err := NewKeyHandler(cfg.Keys)
	if err != nil {
		log.Warn("key bindings", "err", err)
	}

	layout := NewLayout()
	if p.LeftSet {
		layout.SetLeftWidth(p.LeftWidth)
	}

	done := make(chan struct{})
	results := make(chan session.Result, 1)
	sched := session.New(session.OptionsFromConfig(cfg.Scheduler, func(r session.Result) {
		select {
		case results <- r:
		case <-done:
		}
	}, log))

	prog := Program{
		state:      state,
		layout:     layout,
		keyHandler: keys,
		log:        log,
		sched:      sched,
		results:    results,
	}

	changes := make(chan string, 1)
	w, err := watch.New(watch.DefaultDebounce, func(path string) {
		select {
		case changes <- path:
		default: // a refresh is already pending
		}
	}, log)
	if err == nil {
		err = w.AddTree(repoRoot)
	}
	if err != nil {
		log.Warn("file watching unavailable, polling instead", "err", err)
	} else {
		prog.changes = changes
	}

	_, err = tea.NewProgram(prog, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	if w != nil {
		_ = w.Close()
	}
	close(done)
	sched.Close()
	return err
}

func (m Program) Init() tea.Cmd {
	cmds := []tea.Cmd{loadFiles(m.state.RepoRoot), loadLastCommit(m.state.RepoRoot), waitForResult(m.results)}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	} else {
		cmds = append(cmds, tickOnce())
	}
	return tea.Batch(cmds...)
}

func (m Program) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.WindowSizeMsg:
		m.layout.SetSize(msg.Width, msg.Height)
		m.recalcViewport()
		return m, nil
	case tickMsg:
		return m, tea.Batch(loadFiles(m.state.RepoRoot), tickOnce())
	case changedMsg:
		return m, tea.Batch(loadFiles(m.state.RepoRoot), waitForChange(m.changes))
	case filesMsg:
		if msg.err != nil {
			m.state.StatusBar.SetMessage(fmt.Sprintf("status error: %v", msg.err))
			return m, nil
		}
		m.state.FileList.SetFiles(msg.files)
		m.state.LastRefresh = time.Now()
		m.state.StatusBar.SetLastRefresh(m.state.LastRefresh)
		return m, m.loadSelected(false)
	case submittedMsg:
		m.log.Debug("diff submitted", "path", msg.ticket.Session, "ticket", msg.ticket.ID, "generation", msg.ticket.Generation)
		return m, nil
	case resultMsg:
		m.applyResult(session.Result(msg))
		return m, waitForResult(m.results)
	case lastCommitMsg:
		if msg.err == nil {
			m.state.StatusBar.SetLastCommit(msg.summary)
		}
		return m, nil
	case errMsg:
		m.log.Warn("background command failed", "err", msg.err)
		m.state.StatusBar.SetMessage(msg.err.Error())
		return m, nil
	}
	return m, nil
}

// loadSelected shows the selected file. A new selection shows a placeholder until its diff arrives.
func (m Program) loadSelected(changed bool) tea.Cmd {
	dv := m.state.DiffView
	f := m.state.FileList.SelectedFile()
	switch {
	case f == nil:
		dv.SetNote("No changes detected")
		m.state.StatusBar.SetStats("")
		m.syncSearch()
		return nil
	case f.Binary:
		dv.SetNote("(Binary file; no text diff)")
		m.state.StatusBar.SetStats("")
		m.syncSearch()
		return nil
	}
	cur := dv.Model()
	if changed || cur == nil || cur.New.Path != f.Path {
		dv.SetModel(nil)
		m.syncSearch()
		cur = nil
	}
	return submitDiff(m.sched, m.state.RepoRoot, f.Path, m.state.Config.Diff, cur)
}

func (m Program) applyResult(r session.Result) {
	f := m.state.FileList.SelectedFile()
	if f == nil || f.Path != r.Ticket.Session {
		return
	}
	if r.Err != nil {
		if errors.Is(r.Err, diffmodel.ErrCanceled) {
			return
		}
		m.log.Warn("diff failed", "path", f.Path, "err", r.Err)
		m.state.DiffView.SetNote(fmt.Sprintf("(Cannot diff %s: %v)", f.Path, r.Err))
		m.syncSearch()
		return
	}
	m.log.Debug("diff ready", "path", f.Path, "elapsed", r.Elapsed, "stats", r.Model.Stats.String())
	m.state.DiffView.SetModel(r.Model)
	m.state.StatusBar.SetStats(render.StatsLine(r.Model.Stats, render.Options{}))
	if r.Model.Approximate {
		m.state.StatusBar.SetMessage("approximate diff: edit budget or deadline reached")
	} else {
		m.state.StatusBar.SetMessage("")
	}
	m.state.Events.Emit(diffview.StatsUpdated{Stats: r.Model.Stats})
	m.syncSearch()
}

func (m Program) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.state
	if st.SearchEngine.IsActive() {
		cmd := st.SearchEngine.HandleKey(msg)
		m.recalcViewport()
		m.jumpToMatch()
		return m, cmd
	}
	if st.ShowHelp {
		action, _ := m.keyHandler.Handle(msg)
		switch {
		case action == ActionQuit:
			return m, tea.Quit
		case action == ActionToggleHelp, msg.Type == tea.KeyEsc:
			st.ShowHelp = false
			m.recalcViewport()
		}
		return m, nil
	}

	action, count := m.keyHandler.Handle(msg)
	st.StatusBar.SetKeyBuffer(m.keyHandler.KeyBuffer())
	dv := st.DiffView
	vp := dv.Viewport()
	page := m.layout.ContentHeight(m.overlayHeight())

	switch action {
	case ActionQuit:
		return m, tea.Quit
	case ActionToggleHelp:
		st.ShowHelp = true
		m.recalcViewport()
	case ActionOpenSearch:
		st.SearchEngine.Activate()
		m.recalcViewport()
	case ActionSearchNext:
		st.SearchEngine.Next()
		m.jumpToMatch()
	case ActionSearchPrevious:
		st.SearchEngine.Previous()
		m.jumpToMatch()
	case ActionRefresh:
		return m, tea.Batch(loadFiles(st.RepoRoot), loadLastCommit(st.RepoRoot), m.loadSelected(true))
	case ActionToggleSideBySide:
		dv.SetSideBySide(!dv.SideBySide())
		st.Config.View.SideBySide = dv.SideBySide()
		m.syncSearch()
		v := dv.SideBySide()
		return m, savePref(func() error { return prefs.SaveSideBySide(st.RepoRoot, v) })
	case ActionToggleWrap:
		dv.SetWrap(!dv.Wrap())
		st.Config.View.Wrap = dv.Wrap()
		m.syncSearch()
		v := dv.Wrap()
		return m, savePref(func() error { return prefs.SaveWrap(st.RepoRoot, v) })
	case ActionMoveDown, ActionMoveUp, ActionGoToTop, ActionGoToBottom, ActionPageUpLeft, ActionPageDownLeft:
		if m.moveSelection(action, count, page) {
			return m, m.loadSelected(true)
		}
	case ActionScrollLeft:
		dv.ScrollLeft(4 * count)
		m.syncSearch()
	case ActionScrollRight:
		dv.ScrollRight(4 * count)
		m.syncSearch()
	case ActionScrollHome:
		dv.ScrollHome()
		m.syncSearch()
	case ActionPageDown:
		vp.PageDown()
	case ActionPageUp:
		vp.PageUp()
	case ActionHalfPageDown:
		vp.HalfPageDown()
	case ActionHalfPageUp:
		vp.HalfPageUp()
	case ActionLineDown:
		vp.LineDown(count)
	case ActionLineUp:
		vp.LineUp(count)
	case ActionAdjustLeftNarrower, ActionAdjustLeftWider:
		delta := 2 * count
		if action == ActionAdjustLeftNarrower {
			delta = -delta
		}
		m.layout.AdjustLeftWidth(delta)
		m.recalcViewport()
		w := m.layout.LeftWidth()
		return m, savePref(func() error { return prefs.SaveLeftWidth(st.RepoRoot, w) })
	case ActionNextHunk:
		for i := 0; i < count && dv.NextHunk(); i++ {
		}
	case ActionPrevHunk:
		for i := 0; i < count && dv.PrevHunk(); i++ {
		}
	case ActionToggleHunk:
		if ev, ok := dv.ToggleHunk(); ok {
			st.Events.Emit(ev)
			m.syncSearch()
		}
	case ActionExpandAll:
		dv.ExpandAll()
		m.syncSearch()
	case ActionMoreContext, ActionLessContext:
		delta := count
		if action == ActionLessContext {
			delta = -delta
		}
		n := min(max(st.Config.Diff.ContextSize+delta, 0), config.MaxContextSize)
		if n == st.Config.Diff.ContextSize {
			return m, nil
		}
		st.Config.Diff.ContextSize = n
		st.StatusBar.SetMessage(fmt.Sprintf("context: %d lines", n))
		return m, tea.Batch(m.loadSelected(false), savePref(func() error { return prefs.SaveContext(st.RepoRoot, n) }))
	}
	return m, nil
}

func (m Program) moveSelection(action KeyAction, count, page int) bool {
	fl := m.state.FileList
	switch action {
	case ActionMoveDown:
		return fl.MoveSelection(count)
	case ActionMoveUp:
		return fl.MoveSelection(-count)
	case ActionGoToTop:
		return fl.GoToTop()
	case ActionGoToBottom:
		return fl.GoToBottom()
	case ActionPageUpLeft:
		return fl.PageUp(page)
	case ActionPageDownLeft:
		return fl.PageDown(page)
	}
	return false
}

// handleMouse selects files in the left pane and reports clicked lines in the diff pane. The wheel scrolls the diff.
func (m Program) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	vp := m.state.DiffView.Viewport()
	switch msg.Button {
	case tea.MouseButtonWheelDown:
		vp.LineDown(3)
		return m, nil
	case tea.MouseButtonWheelUp:
		vp.LineUp(3)
		return m, nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	y := msg.Y - 2 // top bar and rule
	if y < 0 || y >= m.layout.ContentHeight(m.overlayHeight()) {
		return m, nil
	}
	if msg.X < m.layout.LeftWidth() {
		if m.state.FileList.Select(y) {
			return m, m.loadSelected(true)
		}
		return m, nil
	}
	if a, ok := m.state.DiffView.LineAt(y); ok {
		m.state.Events.Emit(diffview.LineClicked{Side: a.Side, Line: a.Line})
	}
	return m, nil
}

func (m Program) jumpToMatch() {
	if line := m.state.SearchEngine.CurrentMatchLine(); line >= 0 {
		vp := m.state.DiffView.Viewport()
		if line < vp.YOffset || line >= vp.YOffset+vp.Height {
			vp.SetYOffset(max(line-vp.Height/2, 0))
		}
	}
	m.state.DiffView.SetContent(m.state.SearchEngine.HighlightedContent())
}

// syncSearch points the search at freshly rendered content and reapplies highlights.
func (m Program) syncSearch() {
	se := m.state.SearchEngine
	se.SetContent(m.state.DiffView.Content(), m.state.DiffView.ChangedLines())
	if se.Query() != "" {
		m.state.DiffView.SetContent(se.HighlightedContent())
	}
}

func (m Program) overlayHeight() int {
	return len(m.overlayLines())
}

func (m Program) overlayLines() []string {
	var lines []string
	if m.state.ShowHelp {
		lines = append(lines, m.helpOverlayLines(m.layout.Width())...)
	}
	return append(lines, m.state.SearchEngine.RenderOverlay(m.layout.Width(), m.state.Theme.DividerColor)...)
}

// recalcViewport resizes the diff pane to the space the frame leaves it.
func (m Program) recalcViewport() {
	if m.layout.Width() == 0 || m.layout.Height() == 0 {
		return
	}
	m.state.DiffView.SetSize(m.layout.RightWidth(), m.layout.ContentHeight(m.overlayHeight()))
	m.syncSearch()
}

func (m Program) View() string {
	if m.layout.Width() == 0 || m.layout.Height() == 0 {
		return "Loading..."
	}
	overlay := m.overlayLines()
	h := m.layout.ContentHeight(len(overlay))
	return m.layout.RenderFrame(
		"Changes",
		m.topRightTitle(),
		m.state.FileList.Render(h),
		strings.Split(m.state.DiffView.View(), "\n"),
		overlay,
		m.state.StatusBar.Render(m.layout.Width()),
		m.state.Theme,
	)
}

func (m Program) topRightTitle() string {
	f := m.state.FileList.SelectedFile()
	if f == nil {
		return ""
	}
	mode := "unified"
	if m.state.DiffView.SideBySide() {
		mode = "split"
	}
	return fmt.Sprintf("%s (%s) [%s]", f.Path, f.Status(), mode)
}

func (m Program) helpOverlayLines(width int) []string {
	title := lipgloss.NewStyle().Bold(true).Render("Help (Esc to close)")
	keys := m.keyHandler.HelpLines()
	if colW := width / 2; colW >= 48 {
		half := (len(keys) + 1) / 2
		cols := make([]string, half)
		for i := range cols {
			cols[i] = ansi.PadExact(keys[i], colW)
			if i+half < len(keys) {
				cols[i] += keys[i+half]
			}
		}
		keys = cols
	}
	lines := make([]string, 0, 2+len(keys))
	lines = append(lines, m.state.Theme.DividerText(strings.Repeat("─", width)), title)
	return append(lines, ansi.WrapLines(keys, width)...)
}
