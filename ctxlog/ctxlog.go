// Package ctxlog plumbs a *slog.Logger through a context.Context, the
// same pattern specialistvlad/burstgridgo's internal/ctxlog uses for its
// DAG executor. Unlike that package, FromContext never panics on a
// missing logger — this is a library, and a caller that forgets to
// thread one through should get a usable default, not a crash.
package ctxlog

import (
	"context"
	"log/slog"
	"os"
)

type key struct{}

var loggerKey = key{}

var defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelWarn,
}))

// WithLogger returns a new context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger embedded by WithLogger, or a quiet
// default (warn level, stderr) if none was threaded through.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return defaultLogger
}
