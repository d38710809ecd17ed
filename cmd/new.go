package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session or window",
}

var newSessionCmd = &cobra.Command{
	Use:   "session [name]",
	Short: "Create a detached session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		s, err := a.mux.NewSession(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), s)
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.ID)
		return nil
	},
}

var newWindowCmd = &cobra.Command{
	Use:   "window <session> [name]",
	Short: "Create a window in a session without switching to it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		w, err := a.mux.NewWindow(ctx, args[0], name)
		if err != nil {
			return fmt.Errorf("failed to create window: %w", err)
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), w)
		}
		fmt.Fprintln(cmd.OutOrStdout(), w.ID)
		return nil
	},
}

func init() {
	newCmd.AddCommand(newSessionCmd, newWindowCmd)
	rootCmd.AddCommand(newCmd)
}
