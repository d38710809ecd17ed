package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/timvw/pane-pilot/internal/model"
	"github.com/timvw/pane-pilot/internal/ui"
)

var (
	flagRunInterval time.Duration
	flagRunTimeout  time.Duration
	flagRunNoWait   bool
)

var runCmd = &cobra.Command{
	Use:   "run <pane> <command>...",
	Short: "Run a shell command in a pane and wait for it to finish",
	Long: `Type a shell command into a tmux pane, press Enter and poll the pane
until the command finishes.

By default completion is inferred from the shell prompt reappearing and the
exit code is reported as 0 (assumed). With --completion marker an echo of
the exit status is appended to the command and the real code is reported.

On a terminal a progress view is shown; otherwise the result is printed
once the command finishes. --no-wait prints the command id and returns.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		pane := args[0]
		command := strings.Join(args[1:], " ")

		id, err := a.tracker.Start(ctx, pane, command)
		if err != nil {
			return fmt.Errorf("failed to run command in %q: %w", pane, err)
		}
		out := cmd.OutOrStdout()
		if flagRunNoWait {
			fmt.Fprintln(out, id)
			return nil
		}

		var e model.Execution
		if !flagJSON && isTerminal(out) {
			p := &ui.Progress{
				Poller:   a.tracker,
				ID:       id,
				Interval: flagRunInterval,
				Timeout:  flagRunTimeout,
				Theme:    ui.ThemeByName(a.cfg.Theme),
			}
			e, err = p.Run(ctx)
			if errors.Is(err, ui.ErrInterrupted) {
				return nil
			}
		} else {
			e, err = waitForResult(ctx, a.tracker, id, flagRunInterval, flagRunTimeout)
			if werr := printResult(out, e); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
		if e.Status == model.StatusError {
			return fmt.Errorf("command %s failed: %s", id, e.Error)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().DurationVar(&flagRunInterval, "interval", 500*time.Millisecond, "poll interval")
	runCmd.Flags().DurationVar(&flagRunTimeout, "timeout", 0, "stop waiting after this long (0: wait forever)")
	runCmd.Flags().BoolVar(&flagRunNoWait, "no-wait", false, "print the command id and return immediately")
	rootCmd.AddCommand(runCmd)
}

// waitForResult polls id until it is terminal, the timeout expires or ctx
// is done. The last observed state is always returned.
func waitForResult(ctx context.Context, p ui.Poller, id string, interval, timeout time.Duration) (model.Execution, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e, ok := p.Poll(ctx, id)
		if !ok {
			return e, fmt.Errorf("command %s not found", id)
		}
		if e.Status.Terminal() {
			return e, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return e, ui.ErrTimeout
			}
			return e, ctx.Err()
		case <-ticker.C:
		}
	}
}

// printResult writes the final state of an execution in plain or JSON form.
func printResult(w io.Writer, e model.Execution) error {
	if flagJSON {
		return printJSON(w, e)
	}
	if e.ID == "" {
		return nil
	}
	line := fmt.Sprintf("%s %s", e.ID, e.Status)
	if e.ExitCode != nil {
		line += fmt.Sprintf(" exit=%d", *e.ExitCode)
		if e.ExitCodeSource == model.ExitCodeAssumed {
			line += " (assumed)"
		}
	}
	if e.Error != "" {
		line += ": " + e.Error
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
