package mux

import (
	"fmt"
	"os"
	"os/exec"
)

// Detect returns the multiplexer for the current environment.
// It checks $TMUX first, then falls back to looking for the tmux binary.
// Whether a server is running is not checked: listing against a stopped
// server yields no sessions rather than an error.
func Detect(q Submitter) (Multiplexer, error) {
	if os.Getenv("TMUX") != "" {
		return NewTmux(q), nil
	}
	if os.Getenv("ZELLIJ") != "" {
		return nil, fmt.Errorf("zellij support is not yet implemented")
	}
	if tmuxPath, err := exec.LookPath("tmux"); err == nil && tmuxPath != "" {
		return NewTmux(q), nil
	}
	return nil, fmt.Errorf("no supported terminal multiplexer detected (set $TMUX or install tmux)")
}

// FromName creates a Multiplexer by name.
func FromName(name string, q Submitter) (Multiplexer, error) {
	switch name {
	case "", "tmux":
		return NewTmux(q), nil
	case "zellij":
		return nil, fmt.Errorf("zellij support is not yet implemented")
	default:
		return nil, fmt.Errorf("unknown multiplexer: %q (supported: tmux)", name)
	}
}
