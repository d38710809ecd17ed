// Package tracker injects shell commands into panes and decides, by
// sampling pane content, when they have finished.
//
// tmux offers no completion event, so a command is "done" when the pane has
// changed since it was sent, ends in something that looks like a shell
// prompt, and a short dwell time has passed. Marker mode replaces that
// guess with an echoed exit status.
package tracker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/pane-pilot/internal/keys"
	"github.com/timvw/pane-pilot/internal/logx"
	"github.com/timvw/pane-pilot/internal/model"
	"github.com/timvw/pane-pilot/internal/mux"
	ppotel "github.com/timvw/pane-pilot/internal/otel"
	"github.com/timvw/pane-pilot/internal/queue"
	"github.com/timvw/pane-pilot/internal/registry"
	"github.com/timvw/pane-pilot/internal/shell"
)

var tracer = otel.Tracer("pane-pilot")

const (
	// DefaultDwell is the minimum age before a prompt counts as completion.
	DefaultDwell = 500 * time.Millisecond
	// DefaultBaselineLines is how much history Start captures.
	DefaultBaselineLines = 50
	// DefaultPollLines is how much history Poll captures.
	DefaultPollLines = 1000
)

// promptRe matches a line ending in a typical shell prompt character.
var promptRe = regexp.MustCompile(`[$>#%]\s*$`)

// Option configures a Tracker.
type Option func(*Tracker)

// WithRegistry shares an existing registry instead of creating one.
func WithRegistry(r *registry.Registry) Option {
	return func(t *Tracker) { t.reg = r }
}

// WithShell sets the initial shell family.
func WithShell(s shell.Shell) Option {
	return func(t *Tracker) { t.shell = s }
}

// WithCompletion sets the initial completion mode.
func WithCompletion(m model.CompletionMode) Option {
	return func(t *Tracker) { t.mode = m }
}

// WithDwell overrides DefaultDwell.
func WithDwell(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.dwell = d
		}
	}
}

// WithCaptureLines overrides the baseline and poll capture depths.
// Non-positive values keep the defaults.
func WithCaptureLines(baseline, poll int) Option {
	return func(t *Tracker) {
		if baseline > 0 {
			t.baselineLines = baseline
		}
		if poll > 0 {
			t.pollLines = poll
		}
	}
}

// WithMetrics records execution counters.
func WithMetrics(m *ppotel.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// Tracker starts commands in panes and follows them to completion.
type Tracker struct {
	term    mux.Terminal
	reg     *registry.Registry
	metrics *ppotel.Metrics

	dwell         time.Duration
	baselineLines int
	pollLines     int

	now   func() time.Time
	newID func() string

	mu    sync.RWMutex
	shell shell.Shell
	mode  model.CompletionMode
}

// New creates a tracker that talks to tmux through term.
func New(term mux.Terminal, opts ...Option) *Tracker {
	t := &Tracker{
		term:          term,
		dwell:         DefaultDwell,
		baselineLines: DefaultBaselineLines,
		pollLines:     DefaultPollLines,
		now:           time.Now,
		newID:         uuid.NewString,
		shell:         shell.Default,
		mode:          model.CompletionPrompt,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.reg == nil {
		t.reg = registry.New()
	}
	return t
}

// Registry returns the registry holding this tracker's executions.
func (t *Tracker) Registry() *registry.Registry {
	return t.reg
}

// Shell returns the shell family used for new executions.
func (t *Tracker) Shell() shell.Shell {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.shell
}

// SetShell changes the shell family for executions started afterwards.
func (t *Tracker) SetShell(s shell.Shell) {
	t.mu.Lock()
	t.shell = s
	t.mu.Unlock()
}

// Completion returns the completion mode used for new executions.
func (t *Tracker) Completion() model.CompletionMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// SetCompletion changes the completion mode for executions started afterwards.
func (t *Tracker) SetCompletion(m model.CompletionMode) {
	t.mu.Lock()
	t.mode = m
	t.mu.Unlock()
}

// Start sends command to a pane and registers it as pending. It returns as
// soon as the keys are sent. If sending fails part way the execution is
// kept in the error state and its id is returned with the error.
func (t *Tracker) Start(ctx context.Context, paneID, command string) (string, error) {
	ctx, span := tracer.Start(ctx, "tracker.start",
		trace.WithAttributes(
			attribute.String("pane.id", paneID),
		))
	defer span.End()

	baseline, err := t.term.Capture(ctx, paneID, t.baselineLines)
	if err != nil {
		if !queue.IsEndpointUnavailable(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "baseline capture failed")
			return "", fmt.Errorf("capture baseline: %w", err)
		}
		baseline = ""
	}

	t.mu.RLock()
	sh, mode := t.shell, t.mode
	t.mu.RUnlock()

	id := t.newID()
	span.SetAttributes(
		attribute.String("execution.id", id),
		attribute.String("completion.mode", string(mode)),
	)
	t.reg.Insert(model.Execution{
		ID:         id,
		PaneID:     paneID,
		Command:    command,
		Status:     model.StatusPending,
		StartedAt:  t.now(),
		Snapshot:   baseline,
		Shell:      string(sh),
		Completion: mode,
	})
	ctx = logx.ContextWithExecutionLogger(ctx, paneID, id)
	log := logx.Ctx(ctx)

	text := command
	if mode == model.CompletionMarker {
		text = strings.TrimRight(command, "\r\n") + sh.EndMarker(markerTag(id)) + "\n"
	}

	if err := t.send(ctx, paneID, text); err != nil {
		t.reg.Update(id, func(e *model.Execution) {
			e.Status = model.StatusError
			e.Error = err.Error()
			e.CompletedAt = t.now()
		})
		t.metrics.RecordExecutionFinished(ctx, string(model.StatusError))
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		log.Warn("command dispatch failed", "error", err)
		return id, fmt.Errorf("send command: %w", err)
	}

	t.metrics.RecordExecutionStarted(ctx, string(mode))
	log.Debug("command started", "command", command, "shell", string(sh), "completion", string(mode))
	return id, nil
}

// send types text and presses Enter unless text already ends a line.
func (t *Tracker) send(ctx context.Context, paneID, text string) error {
	for _, tok := range keys.Translate(text) {
		if err := t.term.SendKey(ctx, paneID, tok); err != nil {
			return err
		}
	}
	if !keys.EndsWithNewline(text) {
		return t.term.SendKey(ctx, paneID, keys.Token{Kind: keys.Named, Value: "Enter"})
	}
	return nil
}

// Get returns the stored execution without checking the pane.
func (t *Tracker) Get(id string) (model.Execution, bool) {
	return t.reg.Get(id)
}

// List returns all stored executions, oldest first.
func (t *Tracker) List() []model.Execution {
	return t.reg.List()
}

// Poll checks whether a pending execution has finished and returns its
// current state. The bool is false when id is unknown. Capture failures
// leave the execution unchanged and are not reported.
func (t *Tracker) Poll(ctx context.Context, id string) (model.Execution, bool) {
	ctx, span := tracer.Start(ctx, "tracker.poll",
		trace.WithAttributes(
			attribute.String("execution.id", id),
		))
	defer span.End()

	e, ok := t.reg.Update(id, func(e *model.Execution) {
		if e.Status.Terminal() {
			return
		}
		t.check(ctx, e)
	})
	if ok {
		span.SetAttributes(attribute.String("execution.status", string(e.Status)))
	}
	return e, ok
}

// check samples the pane once and applies at most one transition to e.
// The caller holds e's registry lock.
func (t *Tracker) check(ctx context.Context, e *model.Execution) {
	log := logx.WithExecution(ctx, e.PaneID, e.ID)

	content, err := t.term.Capture(ctx, e.PaneID, t.pollLines)
	if err != nil {
		log.Debug("poll capture failed", "error", err)
		return
	}
	t.metrics.RecordPoll(ctx)

	if content == e.Snapshot {
		return
	}

	if e.Completion == model.CompletionMarker {
		code, found := shell.FindExitCode(content, markerTag(e.ID))
		if !found {
			return
		}
		e.ExitCode = model.IntPtr(code)
		e.ExitCodeSource = model.ExitCodeMarker
		if code == 0 {
			e.Status = model.StatusCompleted
		} else {
			e.Status = model.StatusError
			e.Error = fmt.Sprintf("exit status %d", code)
		}
	} else {
		if !endsWithPrompt(content) {
			return
		}
		if t.now().Sub(e.StartedAt) < t.dwell {
			return
		}
		e.Status = model.StatusCompleted
		e.ExitCode = model.IntPtr(0)
		e.ExitCodeSource = model.ExitCodeAssumed
	}

	e.Snapshot = content
	e.CompletedAt = t.now()
	t.metrics.RecordExecutionFinished(ctx, string(e.Status))
	log.Info("command finished", "status", string(e.Status), "exit_code", *e.ExitCode,
		"exit_code_source", string(e.ExitCodeSource), "duration_ms", e.Duration(e.CompletedAt).Milliseconds())
}

// endsWithPrompt reports whether the last non-empty line of content looks
// like a shell prompt.
func endsWithPrompt(content string) bool {
	trimmed := strings.TrimRightFunc(content, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if trimmed == "" {
		return false
	}
	last := trimmed
	if i := strings.LastIndexByte(trimmed, '\n'); i >= 0 {
		last = trimmed[i+1:]
	}
	return promptRe.MatchString(last)
}

// markerTag is the short per-execution suffix used in marker lines.
func markerTag(id string) string {
	tag := strings.ReplaceAll(id, "-", "")
	if len(tag) > 8 {
		tag = tag[:8]
	}
	return tag
}
