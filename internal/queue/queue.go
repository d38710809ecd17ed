// Package queue serializes every tmux invocation made by the process.
//
// tmux handles one client command at a time poorly when keystrokes from
// different callers interleave, so all access goes through a single FIFO
// with a minimum spacing between dispatches. Any number of goroutines may
// Submit; exactly one drain goroutine talks to the Invoker at a time.
package queue

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"

	ppotel "github.com/timvw/pane-pilot/internal/otel"
)

// DefaultMinInterval is the minimum gap between the starts of two consecutive
// invocations.
const DefaultMinInterval = 10 * time.Millisecond

// Invoker executes one tmux command line and returns its standard output.
type Invoker interface {
	Invoke(ctx context.Context, commandLine string) (string, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, commandLine string) (string, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, commandLine string) (string, error) {
	return f(ctx, commandLine)
}

// Option configures a Queue.
type Option func(*Queue)

// WithMinInterval overrides DefaultMinInterval. Zero disables spacing.
func WithMinInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.minInterval = d
		}
	}
}

// WithMetrics records dispatch counters and wait times.
func WithMetrics(m *ppotel.Metrics) Option {
	return func(q *Queue) {
		q.metrics = m
	}
}

type result struct {
	out string
	err error
}

type command struct {
	id       uint64
	line     string
	ctx      context.Context
	enqueued time.Time
	done     chan result // buffered(1): the only send happens in drain
}

// Queue is a FIFO of tmux commands drained by a single goroutine.
type Queue struct {
	invoker     Invoker
	minInterval time.Duration
	metrics     *ppotel.Metrics

	now   func() time.Time
	sleep func(time.Duration)

	mu        sync.Mutex
	pending   []*command
	draining  bool
	closed    bool
	nextID    uint64
	lastStart time.Time
}

// New creates a queue that dispatches through invoker.
func New(invoker Invoker, opts ...Option) *Queue {
	q := &Queue{
		invoker:     invoker,
		minInterval: DefaultMinInterval,
		now:         time.Now,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit enqueues commandLine and waits for its result. The command is
// executed even if ctx is cancelled while it waits; only the caller stops
// waiting, so keystroke order in tmux is never broken.
func (q *Queue) Submit(ctx context.Context, commandLine string) (string, error) {
	cmd := &command{
		line:     commandLine,
		ctx:      ctx,
		enqueued: q.now(),
		done:     make(chan result, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrClosed
	}
	q.nextID++
	cmd.id = q.nextID
	q.pending = append(q.pending, cmd)
	startDrain := !q.draining
	if startDrain {
		q.draining = true
	}
	q.mu.Unlock()

	if startDrain {
		go q.drain()
	}

	select {
	case res := <-cmd.done:
		return res.out, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len returns the number of commands waiting to be dispatched.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting new commands. Already queued commands still run.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// drain dispatches queued commands until the queue is empty.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		cmd := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		last := q.lastStart
		q.mu.Unlock()

		// Spacing runs start to start, not end to start: a slow invocation is
		// followed at once and starts are still at least minInterval apart.
		if !last.IsZero() && q.minInterval > 0 {
			if wait := q.minInterval - q.now().Sub(last); wait > 0 {
				q.sleep(wait)
			}
		}

		start := q.now()
		q.mu.Lock()
		q.lastStart = start
		q.mu.Unlock()

		q.dispatch(cmd, start)
	}
}

func (q *Queue) dispatch(cmd *command, start time.Time) {
	ctx := context.WithoutCancel(cmd.ctx)
	log := pslog.Ctx(ctx)

	out, err := q.invoker.Invoke(ctx, cmd.line)
	err = Classify(cmd.line, err)
	cmd.done <- result{out: out, err: err}

	wait := start.Sub(cmd.enqueued)
	q.metrics.RecordQueueWait(ctx, wait)
	outcome := "ok"
	if err != nil {
		outcome = KindInvocationFailed.String()
		if IsEndpointUnavailable(err) {
			outcome = KindEndpointUnavailable.String()
		}
	}
	q.metrics.RecordQueueCommand(ctx, outcome)
	log.Trace("tmux dispatch", "id", cmd.id, "command", cmd.line, "wait_ms", wait.Milliseconds(), "outcome", outcome)
}
