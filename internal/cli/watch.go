package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/diffview"
	"github.com/interpretive-systems/diffkit/internal/gitx"
	"github.com/interpretive-systems/diffkit/internal/render"
	"github.com/interpretive-systems/diffkit/internal/session"
	"github.com/interpretive-systems/diffkit/internal/tui"
	"github.com/interpretive-systems/diffkit/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var df diffFlags
	var of outputFlags
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [OLD NEW]",
		Short: "Open the viewer on a repository, or reprint a file pair's diff whenever it changes",
		Long: "Without arguments, open the interactive viewer on the repository's working-tree changes.\n" +
			"With two files, print their diff and print it again each time either file changes, until interrupted.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 args, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			df.apply(cmd, &a.cfg.Diff)
			if len(args) == 0 {
				root, err := gitx.RepoRoot(a.repo)
				if err != nil {
					return fmt.Errorf("not a git repo: %w", err)
				}
				return tui.Run(root, a.cfg, a.log)
			}
			opts, err := of.options(cmd, a)
			if err != nil {
				return err
			}
			return a.watchPair(cmd, watch.Pair{Old: args[0], New: args[1]}, debounce, opts, of.split)
		},
	}
	df.bind(cmd)
	of.bind(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a change is diffed")
	return cmd
}

func (a *app) watchPair(cmd *cobra.Command, p watch.Pair, debounce time.Duration, opts render.Options, split bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	show := func(r session.Result) {
		mu.Lock()
		defer mu.Unlock()
		if r.Err != nil {
			if !errors.Is(r.Err, diffmodel.ErrCanceled) {
				fmt.Fprintf(cmd.ErrOrStderr(), "diffkit: %v\n", r.Err)
			}
			return
		}
		m := r.Model
		fmt.Fprintln(out, render.Faint(fmt.Sprintf("── %s  %s → %s  (%s)", time.Now().Format("15:04:05"), p.Old, p.New, r.Elapsed.Round(time.Millisecond)), opts))
		var err error
		if split {
			err = render.Split(out, m, diffview.Split(m, nil), true, opts)
		} else {
			err = render.Unified(out, m, diffview.Unified(m, nil), true, opts)
		}
		if err != nil {
			a.log.Warn("print diff", "err", err)
		}
	}

	sched := session.New(session.OptionsFromConfig(a.cfg.Scheduler, show, a.log))
	defer sched.Close()
	w, err := watch.Pairs(sched, []watch.Pair{p}, a.cfg.Diff, debounce, a.log)
	if err != nil {
		return err
	}
	defer w.Close()

	<-ctx.Done()
	return nil
}
