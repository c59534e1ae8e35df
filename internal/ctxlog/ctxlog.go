// Package ctxlog carries a slog.Logger through context.Context so that every
// layer of the engine logs with the run and node attributes of its caller.
package ctxlog

import (
	"context"
	"log/slog"
)

// Attribute keys shared by everything that logs about runs.
const (
	KeyRunID  = "run_id"
	KeyNodeID = "node_id"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx. Contexts created outside
// the app (tests, library callers) fall back to slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// With returns a context whose logger carries the extra attributes.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}

// WithRun tags every record logged through ctx with the run id.
func WithRun(ctx context.Context, runID string) context.Context {
	return With(ctx, KeyRunID, runID)
}

// WithNode tags every record logged through ctx with the node id.
func WithNode(ctx context.Context, nodeID string) context.Context {
	return With(ctx, KeyNodeID, nodeID)
}
