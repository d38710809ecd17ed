package mux

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/shlex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/pane-pilot/internal/keys"
	"github.com/timvw/pane-pilot/internal/model"
	"github.com/timvw/pane-pilot/internal/queue"
)

// fakeServer answers tmux command lines by verb and records what it saw.
type fakeServer struct {
	mu      sync.Mutex
	lines   []string
	replies map[string]string
	err     error
}

func (f *fakeServer) Invoke(_ context.Context, line string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	if f.err != nil {
		return "", f.err
	}
	verb, _, _ := strings.Cut(line, " ")
	return f.replies[verb], nil
}

func (f *fakeServer) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func newTestTmux(f *fakeServer) *Tmux {
	return NewTmux(queue.New(f, queue.WithMinInterval(0)))
}

func TestTmux_ListSessions(t *testing.T) {
	f := &fakeServer{replies: map[string]string{
		"list-sessions": "$0:work:1:2\n$1:scratch:0:1\ngarbage\n",
	}}
	tm := newTestTmux(f)

	sessions, err := tm.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Session{
		{ID: "$0", Name: "work", Attached: true, Windows: 2},
		{ID: "$1", Name: "scratch", Windows: 1},
	}, sessions)
	assert.Equal(t, []string{"list-sessions -F '" + sessionFormat + "'"}, f.seen())
}

func TestTmux_ListingDegradesWithoutServer(t *testing.T) {
	f := &fakeServer{err: errors.New("exit status 1: no server running on /tmp/tmux-1000/default")}
	tm := newTestTmux(f)
	ctx := context.Background()

	sessions, err := tm.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	windows, err := tm.ListWindows(ctx, "$0")
	require.NoError(t, err)
	assert.Empty(t, windows)

	panes, err := tm.ListPanes(ctx, "@0")
	require.NoError(t, err)
	assert.Empty(t, panes)

	content, err := tm.CapturePane(ctx, "%0", 10)
	require.NoError(t, err)
	assert.Empty(t, content)

	_, err = tm.Capture(ctx, "%0", 10)
	assert.ErrorIs(t, err, queue.ErrEndpointUnavailable)
}

func TestTmux_ListingSurfacesOtherFailures(t *testing.T) {
	f := &fakeServer{err: errors.New("can't find session: nope")}
	tm := newTestTmux(f)

	_, err := tm.ListWindows(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrInvocationFailed)
}

func TestTmux_FindSession(t *testing.T) {
	f := &fakeServer{replies: map[string]string{"list-sessions": "$0:work:1:2\n$4:build:0:1\n"}}
	tm := newTestTmux(f)

	s, ok, err := tm.FindSession(context.Background(), "build")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "$4", s.ID)

	_, ok, err = tm.FindSession(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTmux_ListWindowsAndPanes(t *testing.T) {
	f := &fakeServer{replies: map[string]string{
		"list-windows": "@1:editor:1\n@2:logs:0\n",
		"list-panes":   "%3:host:1:bash:100\n%4:host:0:vim:101\n",
	}}
	tm := newTestTmux(f)
	ctx := context.Background()

	windows, err := tm.ListWindows(ctx, "$0")
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, model.Window{ID: "@1", Name: "editor", Active: true, SessionID: "$0"}, windows[0])

	panes, err := tm.ListPanes(ctx, "@1")
	require.NoError(t, err)
	require.Len(t, panes, 2)
	assert.Equal(t, "vim", panes[1].Command)
	assert.Equal(t, "@1", panes[1].WindowID)
}

func TestTmux_CaptureLines(t *testing.T) {
	f := &fakeServer{replies: map[string]string{"capture-pane": "$ ls\n"}}
	tm := newTestTmux(f)

	out, err := tm.Capture(context.Background(), "%1", 50)
	require.NoError(t, err)
	assert.Equal(t, "$ ls\n", out)

	_, err = tm.Capture(context.Background(), "%1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"capture-pane -p -J -t '%1' -S -50",
		"capture-pane -p -J -t '%1'",
	}, f.seen())
}

func TestTmux_SendKeys(t *testing.T) {
	f := &fakeServer{}
	tm := newTestTmux(f)

	require.NoError(t, tm.SendKeys(context.Background(), "%1", "a'^C\n"))
	assert.Equal(t, []string{
		`send-keys -t '%1' -l 'a'`,
		`send-keys -t '%1' -l ''\'''`,
		`send-keys -t '%1' 'C-c'`,
		`send-keys -t '%1' 'Enter'`,
	}, f.seen())
}

func TestTmux_SendKeysLinesSplitCleanly(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"caret quote", "^'", []string{"send-keys", "-t", "%1", "C-'"}},
		{"quote", "'", []string{"send-keys", "-t", "%1", "-l", "'"}},
		{"invalid utf8", "\xff", []string{"send-keys", "-t", "%1", "-H", "ff"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeServer{}
			tm := newTestTmux(f)

			require.NoError(t, tm.SendKeys(context.Background(), "%1", tt.input))
			lines := f.seen()
			require.Len(t, lines, 1)
			args, err := shlex.Split(lines[0])
			require.NoError(t, err, "line %q", lines[0])
			assert.Equal(t, tt.want, args)
		})
	}
}

func TestTmux_SendKeyEscapesSemicolon(t *testing.T) {
	f := &fakeServer{}
	tm := newTestTmux(f)

	require.NoError(t, tm.SendKey(context.Background(), "%1", keys.Token{Kind: keys.Literal, Value: ";"}))
	assert.Equal(t, []string{`send-keys -t '%1' -l '\;'`}, f.seen())
}

func TestTmux_SendKeysStopsOnFailure(t *testing.T) {
	f := &fakeServer{err: errors.New("can't find pane: %9")}
	tm := newTestTmux(f)

	err := tm.SendKeys(context.Background(), "%9", "abc")
	require.Error(t, err)
	assert.Len(t, f.seen(), 1)
}

func TestTmux_NewSessionAndWindow(t *testing.T) {
	f := &fakeServer{replies: map[string]string{
		"new-session": "$7:demo:0:1\n",
		"new-window":  "@9:logs:0\n",
	}}
	tm := newTestTmux(f)
	ctx := context.Background()

	s, err := tm.NewSession(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, model.Session{ID: "$7", Name: "demo", Windows: 1}, s)

	w, err := tm.NewWindow(ctx, "$7", "logs")
	require.NoError(t, err)
	assert.Equal(t, model.Window{ID: "@9", Name: "logs", SessionID: "$7"}, w)

	lines := f.seen()
	assert.Equal(t, "new-session -d -P -F '"+sessionFormat+"' -s 'demo'", lines[0])
	assert.Equal(t, "new-window -d -P -F '"+windowFormat+"' -t '$7' -n 'logs'", lines[1])
}

func TestTmux_Kill(t *testing.T) {
	f := &fakeServer{}
	tm := newTestTmux(f)
	ctx := context.Background()

	require.NoError(t, tm.KillPane(ctx, "%1"))
	require.NoError(t, tm.KillWindow(ctx, "@1"))
	require.NoError(t, tm.KillSession(ctx, "$1"))
	assert.Equal(t, []string{
		"kill-pane -t '%1'",
		"kill-window -t '@1'",
		"kill-session -t '$1'",
	}, f.seen())
}

func TestFromName(t *testing.T) {
	q := queue.New(&fakeServer{})

	m, err := FromName("tmux", q)
	require.NoError(t, err)
	assert.Equal(t, "tmux", m.Name())

	_, err = FromName("zellij", q)
	assert.Error(t, err)

	_, err = FromName("screen", q)
	assert.Error(t, err)
}
