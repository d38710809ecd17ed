package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagSendEnter bool

var sendCmd = &cobra.Command{
	Use:   "send <pane> <keys>...",
	Short: "Send keystrokes to a pane",
	Long: `Send text or keys to a tmux pane.

Arguments are joined with spaces. Caret notation (^C, ^D) sends control keys
and a lone key name (Enter, Escape, Up, F5) sends that key. Text is typed
literally; no Enter is appended unless --enter is given.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		pane := args[0]
		text := strings.Join(args[1:], " ")
		if err := a.mux.SendKeys(ctx, pane, text); err != nil {
			return fmt.Errorf("failed to send keys to %q: %w", pane, err)
		}
		if flagSendEnter {
			if err := a.mux.SendKeys(ctx, pane, "Enter"); err != nil {
				return fmt.Errorf("failed to send Enter to %q: %w", pane, err)
			}
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().BoolVar(&flagSendEnter, "enter", false, "press Enter after the keys")
	rootCmd.AddCommand(sendCmd)
}
