package mux

import (
	"context"
	"fmt"
	"strings"

	"github.com/timvw/pane-pilot/internal/keys"
	"github.com/timvw/pane-pilot/internal/model"
	"github.com/timvw/pane-pilot/internal/queue"
)

const (
	sessionFormat = "#{session_id}:#{session_name}:#{?session_attached,1,0}:#{session_windows}"
	windowFormat  = "#{window_id}:#{window_name}:#{?window_active,1,0}"
	paneFormat    = "#{pane_id}:#{pane_title}:#{?pane_active,1,0}:#{pane_current_command}:#{pane_pid}"
)

// Tmux implements Multiplexer on top of a command queue.
type Tmux struct {
	q Submitter
}

// NewTmux creates a tmux multiplexer that submits every command to q.
func NewTmux(q Submitter) *Tmux {
	return &Tmux{q: q}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// ListSessions returns all tmux sessions.
func (t *Tmux) ListSessions(ctx context.Context) ([]model.Session, error) {
	out, err := t.run(ctx, "list-sessions -F "+quote(sessionFormat))
	if err != nil {
		if queue.IsEndpointUnavailable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tmux list-sessions: %w", err)
	}
	return parseLines(out, model.ParseSession), nil
}

// FindSession returns the session with the given name.
func (t *Tmux) FindSession(ctx context.Context, name string) (model.Session, bool, error) {
	sessions, err := t.ListSessions(ctx)
	if err != nil {
		return model.Session{}, false, err
	}
	for _, s := range sessions {
		if s.Name == name {
			return s, true, nil
		}
	}
	return model.Session{}, false, nil
}

// ListWindows returns the windows of a session.
func (t *Tmux) ListWindows(ctx context.Context, sessionID string) ([]model.Window, error) {
	out, err := t.run(ctx, "list-windows -t "+quote(sessionID)+" -F "+quote(windowFormat))
	if err != nil {
		if queue.IsEndpointUnavailable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tmux list-windows -t %s: %w", sessionID, err)
	}
	windows := parseLines(out, model.ParseWindow)
	for i := range windows {
		windows[i].SessionID = sessionID
	}
	return windows, nil
}

// ListPanes returns the panes of a window.
func (t *Tmux) ListPanes(ctx context.Context, windowID string) ([]model.Pane, error) {
	out, err := t.run(ctx, "list-panes -t "+quote(windowID)+" -F "+quote(paneFormat))
	if err != nil {
		if queue.IsEndpointUnavailable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tmux list-panes -t %s: %w", windowID, err)
	}
	panes := parseLines(out, model.ParsePane)
	for i := range panes {
		panes[i].WindowID = windowID
	}
	return panes, nil
}

// Capture returns the last lines of a pane, or the visible screen when
// lines is not positive. Uses -p (stdout) and -J (joined, unwraps lines).
// Errors are returned as classified by the queue.
func (t *Tmux) Capture(ctx context.Context, paneID string, lines int) (string, error) {
	line := "capture-pane -p -J -t " + quote(paneID)
	if lines > 0 {
		line += fmt.Sprintf(" -S -%d", lines)
	}
	out, err := t.run(ctx, line)
	if err != nil {
		return "", fmt.Errorf("tmux capture-pane -t %s: %w", paneID, err)
	}
	return out, nil
}

// CapturePane is Capture with an unreachable server reported as empty content.
func (t *Tmux) CapturePane(ctx context.Context, paneID string, lines int) (string, error) {
	out, err := t.Capture(ctx, paneID, lines)
	if err != nil && queue.IsEndpointUnavailable(err) {
		return "", nil
	}
	return out, err
}

// SendKey sends one key event. Literal characters use send-keys -l so tmux
// does not look them up as key names.
func (t *Tmux) SendKey(ctx context.Context, paneID string, tok keys.Token) error {
	line := "send-keys -t " + quote(paneID)
	switch {
	case tok.Raw():
		line += " -H"
	case tok.Literal():
		line += " -l"
	}
	arg := tok.Arg()
	if tok.Raw() {
		arg = tok.Hex()
	} else if tok.Kind == keys.Literal && strings.HasSuffix(tok.Value, ";") {
		// A trailing ";" separates tmux commands unless escaped.
		arg = quote(strings.TrimSuffix(tok.Value, ";") + `\;`)
	}
	line += " " + arg
	if _, err := t.run(ctx, line); err != nil {
		return fmt.Errorf("tmux send-keys -t %s %s: %w", paneID, tok.Key(), err)
	}
	return nil
}

// SendKeys translates text and sends each key event in order, stopping at
// the first failure.
func (t *Tmux) SendKeys(ctx context.Context, paneID, text string) error {
	for _, tok := range keys.Translate(text) {
		if err := t.SendKey(ctx, paneID, tok); err != nil {
			return err
		}
	}
	return nil
}

// NewSession creates a detached session and returns its descriptor.
func (t *Tmux) NewSession(ctx context.Context, name string) (model.Session, error) {
	line := "new-session -d -P -F " + quote(sessionFormat)
	if name != "" {
		line += " -s " + quote(name)
	}
	out, err := t.run(ctx, line)
	if err != nil {
		return model.Session{}, fmt.Errorf("tmux new-session %s: %w", name, err)
	}
	return model.ParseSession(strings.TrimSpace(out))
}

// NewWindow creates a window in a session without switching to it.
func (t *Tmux) NewWindow(ctx context.Context, sessionID, name string) (model.Window, error) {
	line := "new-window -d -P -F " + quote(windowFormat) + " -t " + quote(sessionID)
	if name != "" {
		line += " -n " + quote(name)
	}
	out, err := t.run(ctx, line)
	if err != nil {
		return model.Window{}, fmt.Errorf("tmux new-window -t %s: %w", sessionID, err)
	}
	w, err := model.ParseWindow(strings.TrimSpace(out))
	if err != nil {
		return model.Window{}, err
	}
	w.SessionID = sessionID
	return w, nil
}

// KillSession destroys a session.
func (t *Tmux) KillSession(ctx context.Context, sessionID string) error {
	return t.kill(ctx, "kill-session", sessionID)
}

// KillWindow destroys a window.
func (t *Tmux) KillWindow(ctx context.Context, windowID string) error {
	return t.kill(ctx, "kill-window", windowID)
}

// KillPane destroys a pane.
func (t *Tmux) KillPane(ctx context.Context, paneID string) error {
	return t.kill(ctx, "kill-pane", paneID)
}

func (t *Tmux) kill(ctx context.Context, verb, target string) error {
	if _, err := t.run(ctx, verb+" -t "+quote(target)); err != nil {
		return fmt.Errorf("tmux %s -t %s: %w", verb, target, err)
	}
	return nil
}

// run submits a tmux command line through the queue.
func (t *Tmux) run(ctx context.Context, line string) (string, error) {
	return t.q.Submit(ctx, line)
}

// parseLines applies parse to each non-empty line, skipping lines tmux
// printed in an unexpected shape.
func parseLines[T any](out string, parse func(string) (T, error)) []T {
	var items []T
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		item, err := parse(line)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}
