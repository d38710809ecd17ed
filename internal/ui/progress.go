// Package ui renders interactive terminal output for the CLI.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/timvw/pane-pilot/internal/model"
)

// DefaultTailLines is how many trailing pane lines the progress view shows.
const DefaultTailLines = 8

// ErrTimeout is returned by Progress.Run when the command is still pending
// at the deadline.
var ErrTimeout = errors.New("timed out waiting for command")

// ErrInterrupted is returned when the user quits before the command finished.
// The command keeps running in its pane.
var ErrInterrupted = errors.New("interrupted")

// Poller checks a tracked execution. *tracker.Tracker implements it.
type Poller interface {
	Poll(ctx context.Context, id string) (model.Execution, bool)
}

// Progress shows a spinner while a tracked command runs, polling it at a
// fixed interval until it reaches a terminal status.
type Progress struct {
	Poller   Poller
	ID       string
	Interval time.Duration
	Timeout  time.Duration // 0 waits forever
	Theme    Theme
}

type pollMsg struct {
	exec  model.Execution
	found bool
}

type tickMsg struct{}

type progressModel struct {
	ctx      context.Context
	poller   Poller
	id       string
	interval time.Duration
	deadline time.Time
	now      func() time.Time

	spinner spinner.Model
	styles  styles

	exec        model.Execution
	found       bool
	timedOut    bool
	interrupted bool
	done        bool
}

// Run blocks until the command finishes, the timeout expires or the user
// quits, and returns the last observed state.
func (p *Progress) Run(ctx context.Context) (model.Execution, error) {
	m := newProgressModel(ctx, p)
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return m.exec, err
	}
	return final.(*progressModel).result()
}

func newProgressModel(ctx context.Context, p *Progress) *progressModel {
	st := newStyles(p.Theme)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.title

	interval := p.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	m := &progressModel{
		ctx:      ctx,
		poller:   p.Poller,
		id:       p.ID,
		interval: interval,
		now:      time.Now,
		spinner:  sp,
		styles:   st,
		found:    true,
	}
	if p.Timeout > 0 {
		m.deadline = m.now().Add(p.Timeout)
	}
	return m
}

func (m *progressModel) result() (model.Execution, error) {
	switch {
	case !m.found:
		return m.exec, fmt.Errorf("command %s not found", m.id)
	case m.interrupted:
		return m.exec, ErrInterrupted
	case m.timedOut:
		return m.exec, ErrTimeout
	}
	return m.exec, nil
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m *progressModel) poll() tea.Cmd {
	poller, ctx, id := m.poller, m.ctx, m.id
	return func() tea.Msg {
		e, ok := poller.Poll(ctx, id)
		return pollMsg{exec: e, found: ok}
	}
}

func (m *progressModel) scheduleTick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.interrupted = true
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case pollMsg:
		m.found = msg.found
		if !msg.found {
			m.done = true
			return m, tea.Quit
		}
		m.exec = msg.exec
		if m.exec.Status.Terminal() {
			m.done = true
			return m, tea.Quit
		}
		if !m.deadline.IsZero() && !m.now().Before(m.deadline) {
			m.timedOut = true
			m.done = true
			return m, tea.Quit
		}
		return m, m.scheduleTick()

	case tickMsg:
		return m, m.poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	var b strings.Builder

	b.WriteString(m.headline())
	b.WriteString("\n")

	if tail := Tail(m.exec.Snapshot, DefaultTailLines); tail != "" {
		b.WriteString(m.styles.rule.Render(strings.Repeat("─", 40)))
		b.WriteString("\n")
		for _, line := range strings.Split(tail, "\n") {
			b.WriteString(m.styles.text.Render(line))
			b.WriteString("\n")
		}
	}
	if !m.done {
		b.WriteString(m.styles.dim.Render("q: stop waiting (the command keeps running)"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *progressModel) headline() string {
	cmd := m.styles.text.Render(truncate(m.exec.Command, 60))
	id := m.styles.id.Render(m.id)
	elapsed := ""
	if !m.exec.StartedAt.IsZero() {
		elapsed = m.styles.dim.Render(m.exec.Duration(m.now()).Round(100 * time.Millisecond).String())
	}

	switch {
	case !m.found:
		return m.styles.err.Render("✗") + " command " + id + " not found"
	case m.exec.Status == model.StatusCompleted:
		return m.styles.success.Render("✓") + " " + cmd + " " + exitLabel(m.styles, m.exec) + " " + elapsed
	case m.exec.Status == model.StatusError:
		return m.styles.err.Render("✗") + " " + cmd + " " + m.styles.err.Render(m.exec.Error) + " " + elapsed
	case m.timedOut:
		return m.styles.warn.Render("…") + " " + cmd + " " + m.styles.warn.Render("still running") + " " + elapsed
	case m.interrupted:
		return m.styles.dim.Render("-") + " " + cmd + " " + m.styles.dim.Render("detached") + " " + elapsed
	}
	return m.spinner.View() + " " + cmd + " " + id + " " + elapsed
}

func exitLabel(st styles, e model.Execution) string {
	if e.ExitCode == nil {
		return ""
	}
	label := fmt.Sprintf("exit %d", *e.ExitCode)
	if e.ExitCodeSource == model.ExitCodeAssumed {
		return st.warn.Render(label + " (assumed)")
	}
	return st.success.Render(label)
}

// Tail returns the last n non-blank-trailing lines of content.
func Tail(content string, n int) string {
	content = strings.TrimRight(content, " \t\r\n")
	if content == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// truncate cuts a string to at most maxLen characters.
func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
