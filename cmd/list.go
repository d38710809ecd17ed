package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-pilot/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, windows or panes",
	Long: `List tmux topology.

  pane-pilot list sessions
  pane-pilot list windows <session>
  pane-pilot list panes <window>

Ids in the first column ($0, @1, %3) can be passed to the other commands.
With no tmux server running the lists are empty.`,
}

var listSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List all sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		sessions, err := a.mux.ListSessions(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if flagJSON {
			if sessions == nil {
				sessions = []model.Session{}
			}
			return printJSON(cmd.OutOrStdout(), sessions)
		}
		rows := make([][]any, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, []any{s.ID, s.Name, s.Windows, yesNo(s.Attached)})
		}
		return printTable(cmd.OutOrStdout(), []any{"ID", "NAME", "WINDOWS", "ATTACHED"}, rows)
	},
}

var listWindowsCmd = &cobra.Command{
	Use:   "windows <session>",
	Short: "List the windows of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		windows, err := a.mux.ListWindows(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to list windows: %w", err)
		}
		if flagJSON {
			if windows == nil {
				windows = []model.Window{}
			}
			return printJSON(cmd.OutOrStdout(), windows)
		}
		rows := make([][]any, 0, len(windows))
		for _, w := range windows {
			rows = append(rows, []any{w.ID, w.Name, yesNo(w.Active)})
		}
		return printTable(cmd.OutOrStdout(), []any{"ID", "NAME", "ACTIVE"}, rows)
	},
}

var listPanesCmd = &cobra.Command{
	Use:   "panes <window>",
	Short: "List the panes of a window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		panes, err := a.mux.ListPanes(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to list panes: %w", err)
		}
		if flagJSON {
			if panes == nil {
				panes = []model.Pane{}
			}
			return printJSON(cmd.OutOrStdout(), panes)
		}
		rows := make([][]any, 0, len(panes))
		for _, p := range panes {
			rows = append(rows, []any{p.ID, p.Command, p.PID, yesNo(p.Active), p.Title})
		}
		return printTable(cmd.OutOrStdout(), []any{"ID", "COMMAND", "PID", "ACTIVE", "TITLE"}, rows)
	},
}

func init() {
	listCmd.AddCommand(listSessionsCmd, listWindowsCmd, listPanesCmd)
	rootCmd.AddCommand(listCmd)
}
