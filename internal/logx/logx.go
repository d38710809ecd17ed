// Package logx holds pslog field helpers shared by the tmux control packages.
package logx

import (
	"context"

	"pkt.systems/pslog"
)

type contextKey int

const (
	paneKey contextKey = iota
	executionKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithPane annotates the logger with the pane id if present.
func WithPane(ctx context.Context, paneID string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if paneID != "" {
		if current, ok := ctx.Value(paneKey).(string); ok && current == paneID {
			return log
		}
		log = log.With("pane", paneID)
	}
	return log
}

// WithExecution annotates the logger with pane and execution identifiers.
func WithExecution(ctx context.Context, paneID, executionID string) pslog.Logger {
	log := WithPane(ctx, paneID)
	if executionID != "" {
		if current, ok := ctx.Value(executionKey).(string); ok && current == executionID {
			return log
		}
		log = log.With("execution", executionID)
	}
	return log
}

// ContextWithPaneLogger attaches an annotated logger and the pane marker to
// the context, so nested helpers do not repeat the field.
func ContextWithPaneLogger(ctx context.Context, paneID string) context.Context {
	if ctx == nil || paneID == "" {
		return ctx
	}
	ctx = pslog.ContextWithLogger(ctx, WithPane(ctx, paneID))
	return context.WithValue(ctx, paneKey, paneID)
}

// ContextWithExecutionLogger attaches pane and execution markers to the context.
func ContextWithExecutionLogger(ctx context.Context, paneID, executionID string) context.Context {
	ctx = ContextWithPaneLogger(ctx, paneID)
	if ctx == nil || executionID == "" {
		return ctx
	}
	ctx = pslog.ContextWithLogger(ctx, WithExecution(ctx, paneID, executionID))
	return context.WithValue(ctx, executionKey, executionID)
}
