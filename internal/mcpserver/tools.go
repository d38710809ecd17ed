package mcpserver

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/timvw/pane-pilot/internal/logx"
	"github.com/timvw/pane-pilot/internal/model"
	"github.com/timvw/pane-pilot/internal/shell"
)

// DefaultCaptureLines is used by capture-pane when no line count is given.
const DefaultCaptureLines = 200

type emptyInput struct{}

type findSessionInput struct {
	Name string `json:"name" jsonschema:"Exact session name"`
}

type sessionInput struct {
	SessionID string `json:"session_id" jsonschema:"Session id (e.g. $0) or name"`
}

type windowInput struct {
	WindowID string `json:"window_id" jsonschema:"Window id (e.g. @1) or target such as work:0"`
}

type paneInput struct {
	PaneID string `json:"pane_id" jsonschema:"Pane id (e.g. %3)"`
}

type capturePaneInput struct {
	PaneID string `json:"pane_id" jsonschema:"Pane id (e.g. %3)"`
	Lines  int    `json:"lines,omitempty" jsonschema:"Number of history lines to capture (default 200)"`
}

type createSessionInput struct {
	Name string `json:"name" jsonschema:"Session name"`
}

type createWindowInput struct {
	SessionID string `json:"session_id" jsonschema:"Session id (e.g. $0) or name"`
	Name      string `json:"name,omitempty" jsonschema:"Window name"`
}

type sendKeysInput struct {
	PaneID string `json:"pane_id" jsonschema:"Pane id (e.g. %3)"`
	Keys   string `json:"keys" jsonschema:"Text, caret notation (^C) or a single key name (Enter, Escape, Up, F5)"`
}

type executeCommandInput struct {
	PaneID  string `json:"pane_id" jsonschema:"Pane id (e.g. %3)"`
	Command string `json:"command" jsonschema:"Shell command to run"`
}

type commandIDInput struct {
	CommandID string `json:"command_id" jsonschema:"Id returned by execute-command"`
}

type setShellInput struct {
	Shell string `json:"shell" jsonschema:"Shell family: bash, zsh, fish or sh"`
}

// commandSummary is the list-commands view of an execution.
type commandSummary struct {
	ID        string       `json:"id"`
	PaneID    string       `json:"pane_id"`
	Command   string       `json:"command"`
	Status    model.Status `json:"status"`
	StartedAt time.Time    `json:"started_at"`
	ExitCode  *int         `json:"exit_code,omitempty"`
}

func (s *Server) handleListSessions(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "list-sessions")
	defer span.End()

	sessions, err := s.mux.ListSessions(ctx)
	if err != nil {
		return errorResult("list sessions: %v", err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return jsonResult(sessions)
}

func (s *Server) handleFindSession(ctx context.Context, _ *mcp.CallToolRequest, in findSessionInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "find-session", attribute.String("session.name", in.Name))
	defer span.End()

	if in.Name == "" {
		return errorResult("name is required")
	}
	session, ok, err := s.mux.FindSession(ctx, in.Name)
	if err != nil {
		return errorResult("find session: %v", err)
	}
	if !ok {
		return errorResult("session %q not found", in.Name)
	}
	return jsonResult(session)
}

func (s *Server) handleListWindows(ctx context.Context, _ *mcp.CallToolRequest, in sessionInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "list-windows", attribute.String("session.id", in.SessionID))
	defer span.End()

	if in.SessionID == "" {
		return errorResult("session_id is required")
	}
	windows, err := s.mux.ListWindows(ctx, in.SessionID)
	if err != nil {
		return errorResult("list windows: %v", err)
	}
	if windows == nil {
		windows = []model.Window{}
	}
	return jsonResult(windows)
}

func (s *Server) handleListPanes(ctx context.Context, _ *mcp.CallToolRequest, in windowInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "list-panes", attribute.String("window.id", in.WindowID))
	defer span.End()

	if in.WindowID == "" {
		return errorResult("window_id is required")
	}
	panes, err := s.mux.ListPanes(ctx, in.WindowID)
	if err != nil {
		return errorResult("list panes: %v", err)
	}
	if panes == nil {
		panes = []model.Pane{}
	}
	return jsonResult(panes)
}

func (s *Server) handleCapturePane(ctx context.Context, _ *mcp.CallToolRequest, in capturePaneInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "capture-pane", attribute.String("pane.id", in.PaneID))
	defer span.End()

	if in.PaneID == "" {
		return errorResult("pane_id is required")
	}
	lines := in.Lines
	if lines <= 0 {
		lines = DefaultCaptureLines
	}
	content, err := s.mux.CapturePane(ctx, in.PaneID, lines)
	if err != nil {
		return errorResult("capture pane: %v", err)
	}
	return textResult(content), nil, nil
}

func (s *Server) handleCreateSession(ctx context.Context, _ *mcp.CallToolRequest, in createSessionInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "create-session", attribute.String("session.name", in.Name))
	defer span.End()

	session, err := s.mux.NewSession(ctx, in.Name)
	if err != nil {
		return errorResult("create session: %v", err)
	}
	logx.Ctx(ctx).Info("session created", "session", session.ID, "name", session.Name)
	return jsonResult(session)
}

func (s *Server) handleCreateWindow(ctx context.Context, _ *mcp.CallToolRequest, in createWindowInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "create-window", attribute.String("session.id", in.SessionID))
	defer span.End()

	if in.SessionID == "" {
		return errorResult("session_id is required")
	}
	window, err := s.mux.NewWindow(ctx, in.SessionID, in.Name)
	if err != nil {
		return errorResult("create window: %v", err)
	}
	return jsonResult(window)
}

func (s *Server) handleKillSession(ctx context.Context, _ *mcp.CallToolRequest, in sessionInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "kill-session", attribute.String("session.id", in.SessionID))
	defer span.End()

	if in.SessionID == "" {
		return errorResult("session_id is required")
	}
	if err := s.mux.KillSession(ctx, in.SessionID); err != nil {
		return errorResult("kill session: %v", err)
	}
	return textResult("killed session " + in.SessionID), nil, nil
}

func (s *Server) handleKillWindow(ctx context.Context, _ *mcp.CallToolRequest, in windowInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "kill-window", attribute.String("window.id", in.WindowID))
	defer span.End()

	if in.WindowID == "" {
		return errorResult("window_id is required")
	}
	if err := s.mux.KillWindow(ctx, in.WindowID); err != nil {
		return errorResult("kill window: %v", err)
	}
	return textResult("killed window " + in.WindowID), nil, nil
}

func (s *Server) handleKillPane(ctx context.Context, _ *mcp.CallToolRequest, in paneInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "kill-pane", attribute.String("pane.id", in.PaneID))
	defer span.End()

	if in.PaneID == "" {
		return errorResult("pane_id is required")
	}
	if err := s.mux.KillPane(ctx, in.PaneID); err != nil {
		return errorResult("kill pane: %v", err)
	}
	return textResult("killed pane " + in.PaneID), nil, nil
}

func (s *Server) handleSendKeys(ctx context.Context, _ *mcp.CallToolRequest, in sendKeysInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "send-keys", attribute.String("pane.id", in.PaneID))
	defer span.End()

	if in.PaneID == "" {
		return errorResult("pane_id is required")
	}
	if err := s.mux.SendKeys(ctx, in.PaneID, in.Keys); err != nil {
		return errorResult("send keys: %v", err)
	}
	return textResult("sent keys to " + in.PaneID), nil, nil
}

func (s *Server) handleExecuteCommand(ctx context.Context, _ *mcp.CallToolRequest, in executeCommandInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "execute-command", attribute.String("pane.id", in.PaneID))
	defer span.End()

	if in.PaneID == "" {
		return errorResult("pane_id is required")
	}
	if strings.TrimSpace(in.Command) == "" {
		return errorResult("command is required")
	}
	id, err := s.tracker.Start(ctx, in.PaneID, in.Command)
	if err != nil {
		if id != "" {
			return errorResult("command %s failed to start: %v", id, err)
		}
		return errorResult("execute command: %v", err)
	}
	return jsonResult(map[string]string{
		"command_id": id,
		"status":     string(model.StatusPending),
	})
}

func (s *Server) handleGetCommandResult(ctx context.Context, _ *mcp.CallToolRequest, in commandIDInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "get-command-result", attribute.String("execution.id", in.CommandID))
	defer span.End()

	e, ok := s.tracker.Poll(ctx, in.CommandID)
	if !ok {
		return errorResult("command %s not found", in.CommandID)
	}
	return jsonResult(e)
}

func (s *Server) handleListCommands(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	_, span := startSpan(ctx, "list-commands")
	defer span.End()

	executions := s.tracker.List()
	summaries := make([]commandSummary, 0, len(executions))
	for _, e := range executions {
		summaries = append(summaries, commandSummary{
			ID:        e.ID,
			PaneID:    e.PaneID,
			Command:   e.Command,
			Status:    e.Status,
			StartedAt: e.StartedAt,
			ExitCode:  e.ExitCode,
		})
	}
	return jsonResult(summaries)
}

func (s *Server) handleSetShell(ctx context.Context, _ *mcp.CallToolRequest, in setShellInput) (*mcp.CallToolResult, any, error) {
	ctx, span := startSpan(ctx, "set-shell", attribute.String("shell", in.Shell))
	defer span.End()

	sh, err := shell.Parse(in.Shell)
	if err != nil {
		return errorResult("%v", err)
	}
	s.tracker.SetShell(sh)
	logx.Ctx(ctx).Info("shell changed", "shell", string(sh))
	return jsonResult(map[string]string{"shell": string(sh)})
}
