// Package mux is the tmux transport: it turns topology and key operations
// into tmux command lines and runs them through the command queue.
//
// Nothing here interprets pane content. Parsing stops at tmux's own -F
// formats; deciding what captured text means is the tracker's job.
package mux

import (
	"context"

	"github.com/timvw/pane-pilot/internal/keys"
	"github.com/timvw/pane-pilot/internal/model"
)

// Submitter runs a single tmux command line. *queue.Queue implements it.
type Submitter interface {
	Submit(ctx context.Context, commandLine string) (string, error)
}

// Multiplexer abstracts terminal multiplexer operations.
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux").
	Name() string

	// ListSessions returns all sessions. No running server means no sessions.
	ListSessions(ctx context.Context) ([]model.Session, error)
	// FindSession looks a session up by name.
	FindSession(ctx context.Context, name string) (model.Session, bool, error)
	// ListWindows returns the windows of a session.
	ListWindows(ctx context.Context, sessionID string) ([]model.Window, error)
	// ListPanes returns the panes of a window.
	ListPanes(ctx context.Context, windowID string) ([]model.Pane, error)

	// CapturePane returns the last lines of a pane's history, joined.
	CapturePane(ctx context.Context, paneID string, lines int) (string, error)
	// SendKeys translates text and sends it to a pane as key events.
	SendKeys(ctx context.Context, paneID, text string) error

	NewSession(ctx context.Context, name string) (model.Session, error)
	NewWindow(ctx context.Context, sessionID, name string) (model.Window, error)
	KillSession(ctx context.Context, sessionID string) error
	KillWindow(ctx context.Context, windowID string) error
	KillPane(ctx context.Context, paneID string) error
}

// Terminal is the narrow surface execution tracking needs: raw capture
// errors and single key events.
type Terminal interface {
	Capture(ctx context.Context, paneID string, lines int) (string, error)
	SendKey(ctx context.Context, paneID string, tok keys.Token) error
}

var (
	_ Multiplexer = (*Tmux)(nil)
	_ Terminal    = (*Tmux)(nil)
)
