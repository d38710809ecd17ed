package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"
)

// DefaultReloadDelay coalesces the burst of events editors emit on save.
const DefaultReloadDelay = 200 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// new configuration to onChange. It watches the parent directory so that
// editors which replace the file by rename are still seen. Invalid files
// are logged and skipped. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, delay time.Duration, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("no config file to watch")
	}
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	log := pslog.Ctx(ctx).With("config", abs)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, abs) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", "error", err)
		case <-fire:
			fire = nil
			cfg, err := Load(abs)
			if err != nil {
				log.Warn("config reload failed", "error", err)
				continue
			}
			log.Info("config reloaded", "shell", string(cfg.ShellKind), "completion", string(cfg.CompletionMode))
			onChange(cfg)
		}
	}
}

// relevant reports whether ev may have changed the file at path.
func relevant(ev fsnotify.Event, path string) bool {
	if filepath.Clean(ev.Name) != path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
