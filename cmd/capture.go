package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagCaptureLines int

var captureCmd = &cobra.Command{
	Use:   "capture <pane>",
	Short: "Print the content of a pane",
	Long: `Capture the last lines of a tmux pane and print them to stdout.

Wrapped lines are joined. With --lines 0 only the visible screen is captured.
This is pure transport; no interpretation of the content.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		content, err := a.mux.CapturePane(ctx, args[0], flagCaptureLines)
		if err != nil {
			return fmt.Errorf("failed to capture pane %q: %w", args[0], err)
		}
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	},
}

func init() {
	captureCmd.Flags().IntVarP(&flagCaptureLines, "lines", "n", 200, "history lines to capture (0: visible screen only)")
	rootCmd.AddCommand(captureCmd)
}
