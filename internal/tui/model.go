package tui

import (
	"time"

	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/diffview"
	"github.com/interpretive-systems/diffkit/internal/theme"
	"github.com/interpretive-systems/diffkit/internal/tui/components"
	"github.com/interpretive-systems/diffkit/internal/tui/search"
)

// State holds all application state.
type State struct {
	RepoRoot    string
	Config      *config.Config
	ShowHelp    bool
	LastRefresh time.Time

	FileList     *components.FileList
	DiffView     *components.DiffView
	StatusBar    *components.StatusBar
	SearchEngine *search.Engine
	Events       *diffview.Emitter

	Theme theme.Theme
}

// NewState creates initial application state.
func NewState(repoRoot string, cfg *config.Config) *State {
	th := theme.LoadFromRepo(repoRoot, cfg.View.Theme)
	vs := diffview.NewViewState()
	vs.SideBySide = cfg.View.SideBySide

	dv := components.NewDiffView(th, vs)
	dv.SetWrap(cfg.View.Wrap)
	return &State{
		RepoRoot:     repoRoot,
		Config:       cfg,
		Theme:        th,
		FileList:     components.NewFileList(),
		DiffView:     dv,
		StatusBar:    components.NewStatusBar(),
		SearchEngine: search.New(),
		Events:       &diffview.Emitter{},
	}
}
