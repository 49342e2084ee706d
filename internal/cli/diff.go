package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/diffview"
	"github.com/interpretive-systems/diffkit/internal/hunk"
	"github.com/interpretive-systems/diffkit/internal/inline"
	"github.com/interpretive-systems/diffkit/internal/render"
	"github.com/interpretive-systems/diffkit/internal/segment"
	"github.com/interpretive-systems/diffkit/internal/theme"
	"github.com/spf13/cobra"
)

// diffFlags are the flags that tune the computation. Only flags given on the command line override the config.
type diffFlags struct {
	context      int
	budget       int
	similarity   float64
	normalizeEOL bool
	insertsFirst bool
	noRefine     bool
}

func (f *diffFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&f.context, "context", "U", config.DefaultContextSize, "Lines of context around changes")
	fs.IntVar(&f.budget, "budget", 0, "Edit distance budget before falling back to an approximate diff")
	fs.Float64Var(&f.similarity, "similarity", 0, "Minimum similarity for intra-line highlighting, 0 to 1")
	fs.BoolVar(&f.normalizeEOL, "normalize-eol", false, "Ignore line terminator differences (CRLF vs LF)")
	fs.BoolVar(&f.insertsFirst, "inserts-first", false, "Order insertions before deletions in change runs")
	fs.BoolVar(&f.noRefine, "no-refine", false, "Disable intra-line refinement")
}

func (f *diffFlags) apply(cmd *cobra.Command, d *config.Diff) {
	fs := cmd.Flags()
	if fs.Changed("context") {
		d.ContextSize = f.context
	}
	if fs.Changed("budget") {
		d.EditBudget = f.budget
	}
	if fs.Changed("similarity") {
		d.SimilarityThreshold = f.similarity
	}
	if fs.Changed("normalize-eol") {
		d.LineEndingPolicy = segment.PolicyPreserve
		if f.normalizeEOL {
			d.LineEndingPolicy = segment.PolicyNormalize
		}
	}
	if fs.Changed("inserts-first") {
		d.InsertsFirst = f.insertsFirst
	}
	if fs.Changed("no-refine") {
		d.CharLevel = !f.noRefine
	}
}

// outputFlags control how a model is printed.
type outputFlags struct {
	split       bool
	width       int
	color       string
	lineNumbers bool
	wordDiff    bool
}

func (f *outputFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVarP(&f.split, "split", "y", false, "Show old and new side by side")
	fs.IntVarP(&f.width, "width", "W", render.DefaultWidth, "Total width of side-by-side output")
	fs.StringVar(&f.color, "color", "auto", "Colorize output: auto, always or never")
	fs.BoolVarP(&f.lineNumbers, "line-numbers", "n", false, "Show line numbers")
	fs.BoolVar(&f.wordDiff, "word-diff", false, "Mark changed words as [-old-]{+new+} when not colorizing")
}

func (f *outputFlags) options(cmd *cobra.Command, a *app) (render.Options, error) {
	color, err := useColor(f.color, cmd.OutOrStdout())
	if err != nil {
		return render.Options{}, err
	}
	return render.Options{
		Color:       color,
		Theme:       theme.LoadFromRepo(a.repo, a.cfg.View.Theme),
		LineNumbers: f.lineNumbers,
		WordDiff:    f.wordDiff,
		Width:       f.width,
	}, nil
}

// compute reads both files and diffs them with the invocation's config and deadline.
func (a *app) compute(cmd *cobra.Command, oldPath, newPath string, d config.Diff) (*diffmodel.Model, error) {
	oldB, err := readInput(cmd, oldPath)
	if err != nil {
		return nil, err
	}
	newB, err := readInput(cmd, newPath)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if t := a.cfg.Scheduler.Timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	m, err := diffmodel.Compute(ctx,
		diffmodel.Input{Path: oldPath, Content: oldB},
		diffmodel.Input{Path: newPath, Content: newB}, d)
	if err != nil {
		return nil, err
	}
	a.log.Debug("diff computed", "old", oldPath, "new", newPath, "stats", m.Stats.String(), "approximate", m.Approximate)
	return m, nil
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func newDiffCmd(a *app) *cobra.Command {
	var df diffFlags
	var of outputFlags
	var asJSON, exitCode, stats bool
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Print the diff of two files",
		Long:  "Print the diff of two files as a unified patch, or side by side with --split. Either file may be - for stdin.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.cfg.Diff
			df.apply(cmd, &d)
			m, err := a.compute(cmd, args[0], args[1], d)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				b, err := diffmodel.Marshal(m)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(out, string(b)); err != nil {
					return err
				}
			} else {
				opts, err := of.options(cmd, a)
				if err != nil {
					return err
				}
				if of.split {
					err = render.Split(out, m, diffview.Split(m, nil), stats, opts)
				} else {
					err = render.Unified(out, m, diffview.Unified(m, nil), stats, opts)
				}
				if err != nil {
					return err
				}
			}
			if m.Approximate {
				fmt.Fprintln(cmd.ErrOrStderr(), "diffkit: approximate diff (edit budget or deadline reached)")
			}
			if exitCode && !m.Identical() {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
	df.bind(cmd)
	of.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the diff model as JSON")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with status 1 when the files differ")
	cmd.Flags().BoolVar(&stats, "stat", false, "Append a summary line")
	return cmd
}

func newStatCmd(a *app) *cobra.Command {
	var df diffFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stat OLD NEW",
		Short: "Summarize the hunks of a diff",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.cfg.Diff
			df.apply(cmd, &d)
			m, err := a.compute(cmd, args[0], args[1], d)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sums := hunk.Summaries(m.Hunks)
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Stats hunk.Stats     `json:"stats"`
					Hunks []hunk.Summary `json:"hunks"`
				}{m.Stats, sums})
			}
			for _, s := range sums {
				fmt.Fprintf(out, "%s +%d -%d\n", s.Header, s.Additions, s.Deletions)
			}
			_, err = fmt.Fprintln(out, render.StatsLine(m.Stats, render.Options{}))
			return err
		},
	}
	df.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func newDecorationsCmd(a *app) *cobra.Command {
	var df diffFlags
	var version uint64
	cmd := &cobra.Command{
		Use:   "decorations OLD NEW",
		Short: "Print editor decorations for NEW as JSON",
		Long:  "Print the gutter markers and highlight spans an editor showing NEW would display, tagged with --buffer-version.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.cfg.Diff
			df.apply(cmd, &d)
			m, err := a.compute(cmd, args[0], args[1], d)
			if err != nil {
				return err
			}
			decs, err := inline.New(m, version).Decorations(version)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(decs)
		},
	}
	df.bind(cmd)
	cmd.Flags().Uint64Var(&version, "buffer-version", 0, "Editor buffer version the decorations belong to")
	return cmd
}
