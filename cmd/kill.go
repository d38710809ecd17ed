package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill <session|window|pane> <id>",
	Short: "Destroy a session, window or pane",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "session", "window", "pane":
		default:
			return fmt.Errorf("unknown kind %q (supported: session, window, pane)", args[0])
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		var kill func(context.Context, string) error
		switch args[0] {
		case "session":
			kill = a.mux.KillSession
		case "window":
			kill = a.mux.KillWindow
		default:
			kill = a.mux.KillPane
		}
		if err := kill(ctx, args[1]); err != nil {
			return fmt.Errorf("failed to kill %s %q: %w", args[0], args[1], err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(killCmd)
}
