// Package mcpserver exposes tmux control and command tracking as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/pane-pilot/internal/mux"
	"github.com/timvw/pane-pilot/internal/tracker"
)

// ServerName is reported to MCP clients.
const ServerName = "pane-pilot"

var tracer = otel.Tracer("pane-pilot")

// Server is the MCP server for pane-pilot.
type Server struct {
	mcpServer *mcp.Server
	mux       mux.Multiplexer
	tracker   *tracker.Tracker
}

// New creates a server whose tools act on m and track commands with tr.
func New(m mux.Multiplexer, tr *tracker.Tracker, version string) *Server {
	s := &Server{mux: m, tracker: tr}
	s.mcpServer = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP on stdin/stdout until ctx is done or the client goes away.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list-sessions",
		Description: "List all tmux sessions with their ids, names, attached state and window counts.",
	}, s.handleListSessions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find-session",
		Description: "Find a tmux session by exact name.",
	}, s.handleFindSession)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list-windows",
		Description: "List the windows of a tmux session.",
	}, s.handleListWindows)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list-panes",
		Description: "List the panes of a tmux window.",
	}, s.handleListPanes)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "capture-pane",
		Description: "Capture the text content of a pane. Returns the last N lines of history (default 200).",
	}, s.handleCapturePane)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create-session",
		Description: "Create a new detached tmux session.",
	}, s.handleCreateSession)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create-window",
		Description: "Create a new window in a tmux session.",
	}, s.handleCreateWindow)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "kill-session",
		Description: "Destroy a tmux session and all of its windows.",
	}, s.handleKillSession)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "kill-window",
		Description: "Destroy a tmux window and all of its panes.",
	}, s.handleKillWindow)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "kill-pane",
		Description: "Destroy a tmux pane.",
	}, s.handleKillPane)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "send-keys",
		Description: "Send keys to a pane. Accepts text, caret notation such as ^C, or a single key name such as Enter, Escape, Up or F5. No Enter is appended.",
	}, s.handleSendKeys)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "execute-command",
		Description: "Type a shell command into a pane and press Enter. Returns a command id immediately; use get-command-result to check completion.",
	}, s.handleExecuteCommand)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get-command-result",
		Description: "Check a command started with execute-command. Status is pending, completed or error. On prompt-based completion the exit code is assumed to be 0 (exit_code_source \"assumed\").",
	}, s.handleGetCommandResult)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list-commands",
		Description: "List tracked commands with their status. Finished commands are forgotten after an hour.",
	}, s.handleListCommands)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set-shell",
		Description: "Set the shell family (bash, zsh, fish, sh) running in target panes. Affects commands started afterwards.",
	}, s.handleSetShell)
}

// startSpan opens a span for one tool call.
func startSpan(ctx context.Context, tool string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String("mcp.tool", tool)}, attrs...)
	return tracer.Start(ctx, "mcp."+tool, trace.WithAttributes(attrs...))
}

// jsonResult renders v as indented JSON text content.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return textResult(string(data)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult reports a tool-level failure to the client.
func errorResult(format string, args ...any) (*mcp.CallToolResult, any, error) {
	res := textResult(fmt.Sprintf(format, args...))
	res.IsError = true
	return res, nil, nil
}
