package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/interpretive-systems/diffkit/internal/diffview"
	"github.com/interpretive-systems/diffkit/internal/render"
	"github.com/spf13/cobra"
)

func newViewCmd(a *app) *cobra.Command {
	var of outputFlags
	cmd := &cobra.Command{
		Use:   "view [PATCH]",
		Short: "Show an existing unified patch side by side",
		Long:  "Show a unified patch, such as git diff output, side by side. The patch is read from PATCH or stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open patch: %w", err)
				}
				defer f.Close()
				r = f
			}
			b, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read patch: %w", err)
			}
			opts, err := of.options(cmd, a)
			if err != nil {
				return err
			}
			v := diffview.BuildRowsFromUnified(string(b))
			for _, line := range render.SplitLines(v, opts) {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	of.bind(cmd)
	_ = cmd.Flags().MarkHidden("split")
	_ = cmd.Flags().MarkHidden("word-diff")
	return cmd
}
