package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/timvw/pane-pilot/internal/config"
	"github.com/timvw/pane-pilot/internal/model"
	"github.com/timvw/pane-pilot/internal/mux"
	telem "github.com/timvw/pane-pilot/internal/otel"
	"github.com/timvw/pane-pilot/internal/queue"
	"github.com/timvw/pane-pilot/internal/registry"
	"github.com/timvw/pane-pilot/internal/shell"
	"github.com/timvw/pane-pilot/internal/tracker"
)

var (
	// Global flags.
	flagConfig     string
	flagMux        string
	flagSocket     string
	flagSSH        string
	flagShell      string
	flagCompletion string
	flagJSON       bool
)

var rootCmd = &cobra.Command{
	Use:   "pane-pilot",
	Short: "Drive tmux sessions, windows and panes from scripts and agents",
	Long: `pane-pilot controls a tmux server: it lists and creates sessions, windows
and panes, captures pane content, sends keystrokes, and runs shell commands
in panes while tracking when they finish.

Every tmux invocation goes through a single ordered queue, so keystrokes from
concurrent callers never interleave. Use "pane-pilot serve" to expose the
same operations as MCP tools over stdio.

Configuration is loaded from .pane-pilot.yaml, ~/.config/pane-pilot/config.yaml
or PANE_PILOT_* environment variables. Flags override both.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .pane-pilot.yaml or ~/.config/pane-pilot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", "", "terminal multiplexer: tmux (default: auto-detect)")
	rootCmd.PersistentFlags().StringVarP(&flagSocket, "socket", "L", "", "tmux server socket name (tmux -L)")
	rootCmd.PersistentFlags().StringVar(&flagSSH, "ssh", "", `run tmux on a remote host through this command prefix, e.g. "ssh user@devbox"`)
	rootCmd.PersistentFlags().StringVar(&flagShell, "shell", "", "shell family in target panes: bash, zsh, fish, sh")
	rootCmd.PersistentFlags().StringVar(&flagCompletion, "completion", "", "completion detection: prompt, marker")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print results as JSON")
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	applyFlags(cfg)
	return cfg, applyFlagModes(cfg)
}

func applyFlags(cfg *config.Config) {
	if flagSocket != "" {
		cfg.Socket = flagSocket
	}
	if flagSSH != "" {
		cfg.SSH = flagSSH
	}
}

func applyFlagModes(cfg *config.Config) error {
	if flagShell != "" {
		sh, err := shell.Parse(flagShell)
		if err != nil {
			return err
		}
		cfg.Shell, cfg.ShellKind = flagShell, sh
	}
	if flagCompletion != "" {
		mode, err := model.ParseCompletionMode(flagCompletion)
		if err != nil {
			return err
		}
		cfg.Completion, cfg.CompletionMode = flagCompletion, mode
	}
	return nil
}

// app is the wired object graph shared by all subcommands.
type app struct {
	cfg     *config.Config
	tel     *telem.Telemetry
	queue   *queue.Queue
	mux     mux.Multiplexer
	tracker *tracker.Tracker
}

// newApp loads configuration and wires queue, multiplexer and tracker.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := pslog.Ctx(ctx)
	if cfg.ConfigFile != "" {
		log.Debug("config loaded", "file", cfg.ConfigFile)
	}

	telem.Version = Version
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
		Socket:   cfg.Socket,
		SSH:      cfg.SSH,
	})
	if err != nil {
		log.Warn("otel init failed", "error", err)
	}
	metrics := tel.MetricsOrNil()

	q := queue.New(&mux.ExecInvoker{Socket: cfg.Socket, SSH: cfg.SSH},
		queue.WithMinInterval(cfg.MinInterval),
		queue.WithMetrics(metrics),
	)

	var m mux.Multiplexer
	if flagMux != "" {
		m, err = mux.FromName(flagMux, q)
	} else {
		m, err = mux.Detect(q)
	}
	if err != nil {
		tel.Shutdown(ctx)
		return nil, err
	}
	term, ok := m.(mux.Terminal)
	if !ok {
		tel.Shutdown(ctx)
		return nil, fmt.Errorf("%s does not support command tracking", m.Name())
	}

	tr := tracker.New(term,
		tracker.WithRegistry(registry.New()),
		tracker.WithShell(cfg.ShellKind),
		tracker.WithCompletion(cfg.CompletionMode),
		tracker.WithDwell(cfg.Dwell),
		tracker.WithCaptureLines(cfg.Tracker.BaselineLines, cfg.Tracker.PollLines),
		tracker.WithMetrics(metrics),
	)

	return &app{cfg: cfg, tel: tel, queue: q, mux: m, tracker: tr}, nil
}

// Close stops the queue and flushes telemetry.
func (a *app) Close(ctx context.Context) {
	a.queue.Close()
	a.tel.Shutdown(context.WithoutCancel(ctx))
}
