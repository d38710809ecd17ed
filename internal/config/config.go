// Package config loads pane-pilot configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (PANE_PILOT_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order (unless a path is given explicitly):
//  1. .pane-pilot.yaml in current directory
//  2. ~/.config/pane-pilot/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timvw/pane-pilot/internal/model"
	"github.com/timvw/pane-pilot/internal/shell"
)

// Config holds all pane-pilot configuration.
type Config struct {
	// Shell is the shell family running in target panes: bash, zsh, fish, sh.
	Shell string `yaml:"shell"`
	// Completion selects how command completion is detected: "prompt" or "marker".
	Completion string `yaml:"completion"`

	// tmux endpoint
	Socket string `yaml:"socket"` // tmux -L socket name
	SSH    string `yaml:"ssh"`    // SSH command prefix for a remote tmux, e.g. "ssh user@devbox"

	Queue   QueueConfig   `yaml:"queue"`
	Tracker TrackerConfig `yaml:"tracker"`
	Janitor JanitorConfig `yaml:"janitor"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Theme for the run progress view: "dark" or "light".
	Theme string `yaml:"theme"`

	// Parsed values (not from YAML, set after loading)
	ShellKind       shell.Shell          `yaml:"-"`
	CompletionMode  model.CompletionMode `yaml:"-"`
	MinInterval     time.Duration        `yaml:"-"`
	Dwell           time.Duration        `yaml:"-"`
	JanitorInterval time.Duration        `yaml:"-"`
	MaxAge          time.Duration        `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// QueueConfig configures the tmux command queue.
type QueueConfig struct {
	MinInterval string `yaml:"min_interval"` // Go duration string, e.g. "10ms"
}

// TrackerConfig configures completion detection.
type TrackerConfig struct {
	Dwell         string `yaml:"dwell"` // Go duration string, e.g. "500ms"
	BaselineLines int    `yaml:"baseline_lines"`
	PollLines     int    `yaml:"poll_lines"`
}

// JanitorConfig configures eviction of finished executions.
type JanitorConfig struct {
	Interval string `yaml:"interval"` // Go duration string, e.g. "1m"
	MaxAge   string `yaml:"max_age"`  // Go duration string, e.g. "60m"
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Shell:      "bash",
		Completion: "prompt",
		Queue:      QueueConfig{MinInterval: "10ms"},
		Tracker: TrackerConfig{
			Dwell:         "500ms",
			BaselineLines: 50,
			PollLines:     1000,
		},
		Janitor: JanitorConfig{
			Interval: "1m",
			MaxAge:   "60m",
		},
		Theme: "dark",
	}
}

// Load reads configuration from file and environment variables.
// An explicit path must exist; otherwise the default locations are searched.
// Environment variables always override file values.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		path, data, err = findConfigFile()
	}
	if err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	// Environment variables override everything
	mergeEnv(cfg)

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve parses the string settings into their typed forms.
func (cfg *Config) resolve() error {
	var err error
	cfg.ShellKind, err = shell.Parse(cfg.Shell)
	if err != nil {
		return fmt.Errorf("invalid shell: %w", err)
	}
	cfg.CompletionMode, err = model.ParseCompletionMode(cfg.Completion)
	if err != nil {
		return err
	}
	cfg.MinInterval, err = parseDurationOrDisable(cfg.Queue.MinInterval, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("invalid queue min interval %q: %w", cfg.Queue.MinInterval, err)
	}
	cfg.Dwell, err = parseDurationOrDisable(cfg.Tracker.Dwell, 500*time.Millisecond)
	if err != nil {
		return fmt.Errorf("invalid tracker dwell %q: %w", cfg.Tracker.Dwell, err)
	}
	cfg.JanitorInterval, err = parseDurationOrDisable(cfg.Janitor.Interval, time.Minute)
	if err != nil {
		return fmt.Errorf("invalid janitor interval %q: %w", cfg.Janitor.Interval, err)
	}
	cfg.MaxAge, err = parseDurationOrDisable(cfg.Janitor.MaxAge, 60*time.Minute)
	if err != nil {
		return fmt.Errorf("invalid janitor max age %q: %w", cfg.Janitor.MaxAge, err)
	}
	if cfg.Tracker.BaselineLines < 0 || cfg.Tracker.PollLines < 0 {
		return fmt.Errorf("capture line counts must not be negative")
	}
	return nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".pane-pilot.yaml"); err == nil {
		return ".pane-pilot.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "pane-pilot", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Shell != "" {
		cfg.Shell = file.Shell
	}
	if file.Completion != "" {
		cfg.Completion = file.Completion
	}
	if file.Socket != "" {
		cfg.Socket = file.Socket
	}
	if file.SSH != "" {
		cfg.SSH = file.SSH
	}
	if file.Queue.MinInterval != "" {
		cfg.Queue.MinInterval = file.Queue.MinInterval
	}
	if file.Tracker.Dwell != "" {
		cfg.Tracker.Dwell = file.Tracker.Dwell
	}
	if file.Tracker.BaselineLines > 0 {
		cfg.Tracker.BaselineLines = file.Tracker.BaselineLines
	}
	if file.Tracker.PollLines > 0 {
		cfg.Tracker.PollLines = file.Tracker.PollLines
	}
	if file.Janitor.Interval != "" {
		cfg.Janitor.Interval = file.Janitor.Interval
	}
	if file.Janitor.MaxAge != "" {
		cfg.Janitor.MaxAge = file.Janitor.MaxAge
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
	if file.Theme != "" {
		cfg.Theme = file.Theme
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("PANE_PILOT_SHELL"); v != "" {
		cfg.Shell = v
	}
	if v := os.Getenv("PANE_PILOT_COMPLETION"); v != "" {
		cfg.Completion = v
	}
	if v := os.Getenv("PANE_PILOT_SOCKET"); v != "" {
		cfg.Socket = v
	}
	if v := os.Getenv("PANE_PILOT_SSH"); v != "" {
		cfg.SSH = v
	}
	if v := os.Getenv("PANE_PILOT_QUEUE_MIN_INTERVAL"); v != "" {
		cfg.Queue.MinInterval = v
	}
	if v := os.Getenv("PANE_PILOT_TRACKER_DWELL"); v != "" {
		cfg.Tracker.Dwell = v
	}
	if v := os.Getenv("PANE_PILOT_TRACKER_BASELINE_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Tracker.BaselineLines = n
		}
	}
	if v := os.Getenv("PANE_PILOT_TRACKER_POLL_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Tracker.PollLines = n
		}
	}
	if v := os.Getenv("PANE_PILOT_JANITOR_INTERVAL"); v != "" {
		cfg.Janitor.Interval = v
	}
	if v := os.Getenv("PANE_PILOT_JANITOR_MAX_AGE"); v != "" {
		cfg.Janitor.MaxAge = v
	}
	if v := os.Getenv("PANE_PILOT_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
