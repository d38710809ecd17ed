package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pane-pilot"

// Metrics holds all OTEL metric instruments for pane-pilot.
// All instruments are safe for concurrent use; methods are nil-safe.
type Metrics struct {
	// Command queue
	QueueCommands metric.Int64Counter
	QueueWait     metric.Float64Histogram

	// Execution tracking
	ExecutionsStarted  metric.Int64Counter
	ExecutionsFinished metric.Int64Counter
	ExecutionPolls     metric.Int64Counter

	// Janitor
	RegistrySwept metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.QueueCommands, err = meter.Int64Counter("queue.commands",
		metric.WithDescription("tmux commands dispatched by the command queue, partitioned by outcome"))
	if err != nil {
		return nil, err
	}

	m.QueueWait, err = meter.Float64Histogram("queue.wait",
		metric.WithDescription("Time a tmux command spent queued before dispatch"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	m.ExecutionsStarted, err = meter.Int64Counter("executions.started",
		metric.WithDescription("Shell commands injected into panes"))
	if err != nil {
		return nil, err
	}

	m.ExecutionsFinished, err = meter.Int64Counter("executions.finished",
		metric.WithDescription("Tracked executions that reached a terminal status, partitioned by status"))
	if err != nil {
		return nil, err
	}

	m.ExecutionPolls, err = meter.Int64Counter("executions.polls",
		metric.WithDescription("Completion checks that captured pane content"))
	if err != nil {
		return nil, err
	}

	m.RegistrySwept, err = meter.Int64Counter("registry.swept",
		metric.WithDescription("Terminal executions evicted by the janitor"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordQueueCommand counts one dispatched command with its outcome.
func (m *Metrics) RecordQueueCommand(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.QueueCommands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue.outcome", outcome),
	))
}

// RecordQueueWait records how long a command waited before dispatch.
func (m *Metrics) RecordQueueWait(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.QueueWait.Record(ctx, float64(d.Microseconds())/1000)
}

// RecordExecutionStarted counts a command injected into a pane.
func (m *Metrics) RecordExecutionStarted(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.ExecutionsStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("completion.mode", mode),
	))
}

// RecordExecutionFinished counts an execution that reached a terminal status.
func (m *Metrics) RecordExecutionFinished(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.ExecutionsFinished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("execution.status", status),
	))
}

// RecordPoll counts a completion check that reached tmux.
func (m *Metrics) RecordPoll(ctx context.Context) {
	if m == nil {
		return
	}
	m.ExecutionPolls.Add(ctx, 1)
}

// RecordSwept counts executions removed by the janitor.
func (m *Metrics) RecordSwept(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RegistrySwept.Add(ctx, int64(n))
}
