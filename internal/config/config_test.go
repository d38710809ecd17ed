package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/timvw/pane-pilot/internal/model"
	"github.com/timvw/pane-pilot/internal/shell"
)

var envKeys = []string{
	"PANE_PILOT_SHELL", "PANE_PILOT_COMPLETION", "PANE_PILOT_SOCKET", "PANE_PILOT_SSH",
	"PANE_PILOT_QUEUE_MIN_INTERVAL", "PANE_PILOT_TRACKER_DWELL",
	"PANE_PILOT_TRACKER_BASELINE_LINES", "PANE_PILOT_TRACKER_POLL_LINES",
	"PANE_PILOT_JANITOR_INTERVAL", "PANE_PILOT_JANITOR_MAX_AGE", "PANE_PILOT_THEME",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
}

// isolate runs the test in an empty directory with no user config and no
// PANE_PILOT_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	return dir
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Shell != "bash" {
		t.Errorf("Shell: got %q, want %q", cfg.Shell, "bash")
	}
	if cfg.Completion != "prompt" {
		t.Errorf("Completion: got %q, want %q", cfg.Completion, "prompt")
	}
	if cfg.Queue.MinInterval != "10ms" {
		t.Errorf("Queue.MinInterval: got %q, want %q", cfg.Queue.MinInterval, "10ms")
	}
	if cfg.Tracker.BaselineLines != 50 || cfg.Tracker.PollLines != 1000 {
		t.Errorf("Tracker lines: got %d/%d, want 50/1000", cfg.Tracker.BaselineLines, cfg.Tracker.PollLines)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile: got %q, want empty", cfg.ConfigFile)
	}
	if cfg.ShellKind != shell.Bash {
		t.Errorf("ShellKind: got %q, want bash", cfg.ShellKind)
	}
	if cfg.CompletionMode != model.CompletionPrompt {
		t.Errorf("CompletionMode: got %q, want prompt", cfg.CompletionMode)
	}
	if cfg.MinInterval != 10*time.Millisecond {
		t.Errorf("MinInterval: got %v, want 10ms", cfg.MinInterval)
	}
	if cfg.Dwell != 500*time.Millisecond {
		t.Errorf("Dwell: got %v, want 500ms", cfg.Dwell)
	}
	if cfg.JanitorInterval != time.Minute || cfg.MaxAge != time.Hour {
		t.Errorf("Janitor: got %v/%v, want 1m/1h", cfg.JanitorInterval, cfg.MaxAge)
	}
}

func TestParseDurationOrDisable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMs  int64
		wantErr bool
	}{
		{"empty returns fallback", "", 5000, false},
		{"zero disables", "0", 0, false},
		{"off disables", "off", 0, false},
		{"disable disables", "disable", 0, false},
		{"valid duration", "30s", 30000, false},
		{"valid short duration", "500ms", 500, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationOrDisable(tt.input, 5*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationOrDisable(%q): error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Milliseconds() != tt.wantMs {
				t.Errorf("parseDurationOrDisable(%q) = %v, want %dms", tt.input, got, tt.wantMs)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)
	content := `shell: fish
completion: marker
socket: pilot
queue:
  min_interval: 25ms
tracker:
  dwell: 1s
  poll_lines: 200
janitor:
  max_age: 2h
theme: light
`
	if err := os.WriteFile(filepath.Join(dir, ".pane-pilot.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigFile != ".pane-pilot.yaml" {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
	if cfg.ShellKind != shell.Fish {
		t.Errorf("ShellKind: got %q, want fish", cfg.ShellKind)
	}
	if cfg.CompletionMode != model.CompletionMarker {
		t.Errorf("CompletionMode: got %q, want marker", cfg.CompletionMode)
	}
	if cfg.Socket != "pilot" {
		t.Errorf("Socket: got %q, want pilot", cfg.Socket)
	}
	if cfg.MinInterval != 25*time.Millisecond {
		t.Errorf("MinInterval: got %v, want 25ms", cfg.MinInterval)
	}
	if cfg.Dwell != time.Second {
		t.Errorf("Dwell: got %v, want 1s", cfg.Dwell)
	}
	// Unset keys keep their defaults.
	if cfg.Tracker.BaselineLines != 50 {
		t.Errorf("BaselineLines: got %d, want 50", cfg.Tracker.BaselineLines)
	}
	if cfg.Tracker.PollLines != 200 {
		t.Errorf("PollLines: got %d, want 200", cfg.Tracker.PollLines)
	}
	if cfg.JanitorInterval != time.Minute {
		t.Errorf("JanitorInterval: got %v, want 1m", cfg.JanitorInterval)
	}
	if cfg.MaxAge != 2*time.Hour {
		t.Errorf("MaxAge: got %v, want 2h", cfg.MaxAge)
	}
	if cfg.Theme != "light" {
		t.Errorf("Theme: got %q, want light", cfg.Theme)
	}
}

func TestLoadFromHomeConfig(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, ".config", "pane-pilot")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("shell: zsh\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ShellKind != shell.Zsh {
		t.Errorf("ShellKind: got %q, want zsh", cfg.ShellKind)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("shell: fish\nsocket: from-file\ntracker:\n  poll_lines: 200\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PANE_PILOT_SHELL", "zsh")
	t.Setenv("PANE_PILOT_TRACKER_POLL_LINES", "300")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ShellKind != shell.Zsh {
		t.Errorf("ShellKind: got %q, want zsh", cfg.ShellKind)
	}
	if cfg.Socket != "from-file" {
		t.Errorf("Socket: got %q, want from-file", cfg.Socket)
	}
	if cfg.Tracker.PollLines != 300 {
		t.Errorf("PollLines: got %d, want 300", cfg.Tracker.PollLines)
	}
	if cfg.OTELEndpoint != "http://localhost:4318" {
		t.Errorf("OTELEndpoint: got %q", cfg.OTELEndpoint)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad shell", "shell: powershell\n"},
		{"bad completion", "completion: llm\n"},
		{"bad dwell", "tracker:\n  dwell: soon\n"},
		{"bad yaml", "shell: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, "c.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %q", tt.content)
			}
		})
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "watched.yaml")
	if err := os.WriteFile(path, []byte("shell: bash\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var (
		mu   sync.Mutex
		seen []shell.Shell
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(cfg *Config) {
			mu.Lock()
			seen = append(seen, cfg.ShellKind)
			mu.Unlock()
		})
	}()

	// Give the watcher time to register before writing.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := os.WriteFile(path, []byte("shell: fish\n"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 {
		t.Fatal("expected at least one reload")
	}
	if seen[len(seen)-1] != shell.Fish {
		t.Errorf("reloaded shell: got %q, want fish", seen[len(seen)-1])
	}
}

func TestWatchRequiresPath(t *testing.T) {
	if err := Watch(context.Background(), "", 0, func(*Config) {}); err == nil {
		t.Fatal("expected error without a path")
	}
}
