// Package cli wires the diffkit commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/logx"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// ExitError asks main to exit with Code without printing anything.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// app is the state shared by all commands of one invocation.
type app struct {
	configPath string
	repo       string
	cfg        *config.Config
	log        *slog.Logger
	closeLog   func() error
}

// Execute runs the root command with the process arguments.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		var ee *ExitError
		if errors.As(err, &ee) {
			return err
		}
		return fmt.Errorf("execute: %w", err)
	}
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{log: logx.Discard(), closeLog: func() error { return nil }}
	root := &cobra.Command{
		Use:           "diffkit",
		Short:         "Compute and review line diffs",
		Long:          "diffkit computes line diffs with intra-line refinement and shows them as patches, side by side, or in a live viewer.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.closeLog()
		},
	}
	root.SetErrPrefix("diffkit:")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (default: $DIFFKIT_CONFIG or the user config dir)")
	root.PersistentFlags().StringVarP(&a.repo, "repo", "r", ".", "Path to repository root (default: current dir)")

	root.AddCommand(
		newDiffCmd(a),
		newStatCmd(a),
		newDecorationsCmd(a),
		newViewCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup() error {
	path := a.configPath
	if path == "" {
		p, err := config.Path()
		if err == nil {
			path = p
		}
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.configPath = path
	a.log, a.closeLog = logx.New()
	a.log.Debug("config loaded", "path", path)
	return nil
}

// useColor resolves a --color value for w.
func useColor(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		f, ok := w.(*os.File)
		return ok && isatty.IsTerminal(f.Fd()) && os.Getenv("NO_COLOR") == "", nil
	}
	return false, fmt.Errorf("invalid --color %q: want auto, always or never", mode)
}
