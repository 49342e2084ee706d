package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/gitx"
	"github.com/interpretive-systems/diffkit/internal/segment"
	"github.com/interpretive-systems/diffkit/internal/session"
)

// refreshInterval paces polling when the repository cannot be watched.
const refreshInterval = 2 * time.Second

// loadFiles loads the changed files list.
func loadFiles(repoRoot string) tea.Cmd {
	return func() tea.Msg {
		files, err := gitx.ChangedFiles(repoRoot)
		return filesMsg{files: files, err: err}
	}
}

// submitDiff reads both versions of path and submits their diff under the path's session. Nothing is submitted when
// cur already shows exactly these contents with this configuration.
func submitDiff(s *session.Scheduler, repoRoot, path string, cfg config.Diff, cur *diffmodel.Model) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		old, err := gitx.ShowHEAD(repoRoot, path)
		if err != nil {
			return errMsg{err}
		}
		wt, err := gitx.ReadWorktree(repoRoot, path)
		if err != nil {
			return errMsg{err}
		}
		if cur != nil && cur.New.Path == path && cur.Config == cfg.Normalize() &&
			segment.Join(cur.Old.Lines) == string(old) && segment.Join(cur.New.Lines) == string(wt) {
			return nil
		}
		t, err := s.Submit(session.Request{
			Session: path,
			Old:     diffmodel.Input{Path: path, Content: old},
			New:     diffmodel.Input{Path: path, Content: wt},
			Config:  cfg,
		})
		if err != nil {
			return errMsg{err}
		}
		return submittedMsg{ticket: t}
	}
}

// waitForResult delivers the next scheduler result.
func waitForResult(results <-chan session.Result) tea.Cmd {
	if results == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-results
		if !ok {
			return nil
		}
		return resultMsg(r)
	}
}

// waitForChange delivers the next file system change.
func waitForChange(changes <-chan string) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-changes
		if !ok {
			return nil
		}
		return changedMsg{path: p}
	}
}

// loadLastCommit loads the last commit summary.
func loadLastCommit(repoRoot string) tea.Cmd {
	return func() tea.Msg {
		s, err := gitx.LastCommitSummary(repoRoot)
		return lastCommitMsg{summary: s, err: err}
	}
}

// savePref runs a preference write in the background.
func savePref(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// tickOnce schedules a single refresh tick.
func tickOnce() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
