package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Session is a tmux session.
type Session struct {
	// ID is the tmux session id (e.g., "$0").
	ID string `json:"id"`
	// Name is the session name.
	Name string `json:"name"`
	// Attached reports whether a client is attached.
	Attached bool `json:"attached"`
	// Windows is the number of windows in the session.
	Windows int `json:"windows"`
}

// Window is a tmux window.
type Window struct {
	// ID is the tmux window id (e.g., "@1").
	ID string `json:"id"`
	// Name is the window name.
	Name string `json:"name"`
	// Active reports whether this is the session's current window.
	Active bool `json:"active"`
	// SessionID is the owning session, when known.
	SessionID string `json:"session_id,omitempty"`
}

// Pane is a tmux pane.
type Pane struct {
	// ID is the tmux pane id (e.g., "%3"). Every pane-level operation targets it.
	ID string `json:"id"`
	// Title is the pane title.
	Title string `json:"title"`
	// Active reports whether this is the window's current pane.
	Active bool `json:"active"`
	// Command is the current command running in the pane (e.g., "bash", "vim").
	Command string `json:"command"`
	// PID is the pane's shell process ID.
	PID int `json:"pid"`
	// WindowID is the owning window, when known.
	WindowID string `json:"window_id,omitempty"`
}

// Status is the lifecycle state of a tracked execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ExitCodeSource records how an execution's exit code was obtained.
type ExitCodeSource string

const (
	// ExitCodeUnknown means no exit code has been recorded.
	ExitCodeUnknown ExitCodeSource = ""
	// ExitCodeAssumed is reported when completion was inferred from a shell
	// prompt; the real exit status is not observable.
	ExitCodeAssumed ExitCodeSource = "assumed"
	// ExitCodeMarker is reported when the exit status was echoed by the shell.
	ExitCodeMarker ExitCodeSource = "marker"
)

// CompletionMode selects how the end of a command is detected.
type CompletionMode string

const (
	// CompletionPrompt infers completion from a shell prompt reappearing.
	CompletionPrompt CompletionMode = "prompt"
	// CompletionMarker appends an echo of the exit status to the command.
	CompletionMarker CompletionMode = "marker"
)

// ParseCompletionMode resolves a configured mode name. Empty means prompt.
func ParseCompletionMode(s string) (CompletionMode, error) {
	switch CompletionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompletionPrompt:
		return CompletionPrompt, nil
	case CompletionMarker:
		return CompletionMarker, nil
	default:
		return "", fmt.Errorf("unknown completion mode %q (supported: prompt, marker)", s)
	}
}

// Execution is a shell command injected into a pane and tracked until it
// finishes.
type Execution struct {
	// ID is the unique execution id (uuid v4).
	ID string `json:"id"`
	// PaneID is the pane the command was sent to.
	PaneID string `json:"pane_id"`
	// Command is the caller's text, as submitted.
	Command string `json:"command"`
	// Status is pending until the command is observed to finish.
	Status Status `json:"status"`
	// StartedAt is when the execution was registered.
	StartedAt time.Time `json:"started_at"`
	// Snapshot is the baseline capture while pending and the final capture
	// once completed.
	Snapshot string `json:"snapshot"`
	// ExitCode is set once the execution is terminal and a code is known.
	ExitCode *int `json:"exit_code,omitempty"`
	// ExitCodeSource says whether ExitCode was observed or assumed.
	ExitCodeSource ExitCodeSource `json:"exit_code_source,omitempty"`
	// Error describes why the execution failed. Only set for StatusError.
	Error string `json:"error,omitempty"`
	// Shell is the shell family in effect when the command was started.
	Shell string `json:"shell,omitempty"`
	// Completion is how the end of this command is detected.
	Completion CompletionMode `json:"completion,omitempty"`
	// CompletedAt is when the execution became terminal.
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// Clone returns a copy that shares no mutable state with e.
func (e Execution) Clone() Execution {
	if e.ExitCode != nil {
		code := *e.ExitCode
		e.ExitCode = &code
	}
	return e
}

// Duration returns how long the execution ran, or has been running as of now.
func (e Execution) Duration(now time.Time) time.Duration {
	if !e.CompletedAt.IsZero() {
		return e.CompletedAt.Sub(e.StartedAt)
	}
	return now.Sub(e.StartedAt)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// ParseSession parses one line of
// "#{session_id}:#{session_name}:#{?session_attached,1,0}:#{session_windows}".
// The name may itself contain colons.
func ParseSession(line string) (Session, error) {
	id, rest, ok := strings.Cut(line, ":")
	if !ok || id == "" {
		return Session{}, fmt.Errorf("invalid session line %q", line)
	}
	fields := strings.Split(rest, ":")
	if len(fields) < 3 {
		return Session{}, fmt.Errorf("invalid session line %q", line)
	}
	n := len(fields)
	windows, err := strconv.Atoi(fields[n-1])
	if err != nil {
		return Session{}, fmt.Errorf("invalid window count in %q: %w", line, err)
	}
	return Session{
		ID:       id,
		Name:     strings.Join(fields[:n-2], ":"),
		Attached: fields[n-2] == "1",
		Windows:  windows,
	}, nil
}

// ParseWindow parses one line of "#{window_id}:#{window_name}:#{?window_active,1,0}".
func ParseWindow(line string) (Window, error) {
	id, rest, ok := strings.Cut(line, ":")
	if !ok || id == "" {
		return Window{}, fmt.Errorf("invalid window line %q", line)
	}
	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return Window{}, fmt.Errorf("invalid window line %q", line)
	}
	return Window{
		ID:     id,
		Name:   rest[:idx],
		Active: rest[idx+1:] == "1",
	}, nil
}

// ParsePane parses one line of
// "#{pane_id}:#{pane_title}:#{?pane_active,1,0}:#{pane_current_command}:#{pane_pid}".
// The title may contain colons; the trailing three fields may not.
func ParsePane(line string) (Pane, error) {
	id, rest, ok := strings.Cut(line, ":")
	if !ok || id == "" {
		return Pane{}, fmt.Errorf("invalid pane line %q", line)
	}
	fields := strings.Split(rest, ":")
	if len(fields) < 4 {
		return Pane{}, fmt.Errorf("invalid pane line %q", line)
	}
	n := len(fields)
	pid, err := strconv.Atoi(fields[n-1])
	if err != nil {
		return Pane{}, fmt.Errorf("invalid pane pid in %q: %w", line, err)
	}
	return Pane{
		ID:      id,
		Title:   strings.Join(fields[:n-3], ":"),
		Active:  fields[n-3] == "1",
		Command: fields[n-2],
		PID:     pid,
	}, nil
}
