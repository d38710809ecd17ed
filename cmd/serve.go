package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"

	"github.com/timvw/pane-pilot/internal/config"
	"github.com/timvw/pane-pilot/internal/mcpserver"
	"github.com/timvw/pane-pilot/internal/registry"
)

var flagNoWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tmux control as MCP tools over stdio",
	Long: `Run an MCP server on stdin/stdout exposing session, window and pane
management, key sending and tracked command execution as tools.

Finished commands are forgotten after janitor.max_age (default 60m). When a
config file is in use it is watched, and changes to shell and completion
apply to commands started afterwards. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&flagNoWatch, "no-watch", false, "do not reload the config file on change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	log := pslog.Ctx(ctx)

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.JanitorInterval > 0 && a.cfg.MaxAge > 0 {
		j := &registry.Janitor{
			Registry: a.tracker.Registry(),
			Interval: a.cfg.JanitorInterval,
			MaxAge:   a.cfg.MaxAge,
			Metrics:  a.tel.MetricsOrNil(),
		}
		g.Go(func() error { return j.Run(gctx) })
	} else {
		log.Info("janitor disabled, finished commands are kept")
	}

	if a.cfg.ConfigFile != "" && !flagNoWatch {
		g.Go(func() error {
			return config.Watch(gctx, a.cfg.ConfigFile, config.DefaultReloadDelay, func(c *config.Config) {
				applyFlags(c)
				if err := applyFlagModes(c); err != nil {
					log.Warn("config reload rejected", "error", err)
					return
				}
				a.tracker.SetShell(c.ShellKind)
				a.tracker.SetCompletion(c.CompletionMode)
				log.Info("config reloaded", "shell", string(c.ShellKind), "completion", string(c.CompletionMode))
			})
		})
	}

	srv := mcpserver.New(a.mux, a.tracker, Version)
	g.Go(func() error {
		// The MCP session ending (stdin closed) stops the background loops too.
		defer cancel()
		log.Info("mcp server listening on stdio", "mux", a.mux.Name(), "shell", string(a.tracker.Shell()), "completion", string(a.tracker.Completion()))
		if err := srv.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
