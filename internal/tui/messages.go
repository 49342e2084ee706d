package tui

import (
	"github.com/interpretive-systems/diffkit/internal/gitx"
	"github.com/interpretive-systems/diffkit/internal/session"
)

// tickMsg triggers periodic refresh when file watching is unavailable.
type tickMsg struct{}

// filesMsg contains loaded file changes.
type filesMsg struct {
	files []gitx.FileChange
	err   error
}

// submittedMsg reports that a diff request was queued.
type submittedMsg struct {
	ticket session.Ticket
}

// resultMsg carries a computed diff from the scheduler.
type resultMsg session.Result

// changedMsg reports a settled change below the repository root.
type changedMsg struct {
	path string
}

// lastCommitMsg contains the last commit summary.
type lastCommitMsg struct {
	summary string
	err     error
}

// errMsg reports a failed background command.
type errMsg struct {
	err error
}
