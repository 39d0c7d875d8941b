package imgcache

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/imgcache/model"
)

// Logger wraps slog.Logger with imgcache-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithTier adds a tier field to the logger.
func (l *Logger) WithTier(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("tier", name),
	}
}

// WithKey adds a key field to the logger.
func (l *Logger) WithKey(key model.Key) *Logger {
	return &Logger{
		Logger: l.Logger.With("key", key.String()),
	}
}

// LogResolve logs a batch resolution.
func (l *Logger) LogResolve(ctx context.Context, keys, failed int, duration time.Duration) {
	if failed > 0 {
		l.WarnContext(ctx, "resolve completed with failures",
			"keys", keys,
			"failed", failed,
			"duration", duration,
		)
	} else {
		l.DebugContext(ctx, "resolve completed",
			"keys", keys,
			"duration", duration,
		)
	}
}

// LogLoad logs the outcome of a remote load observed by the facade.
func (l *Logger) LogLoad(ctx context.Context, key model.Key, err error) {
	if err != nil {
		l.WarnContext(ctx, "load failed",
			"key", key.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "load completed",
			"key", key.String(),
		)
	}
}

// LogInvalidate logs an invalidation.
func (l *Logger) LogInvalidate(ctx context.Context, scope string, removed int) {
	l.DebugContext(ctx, "invalidated",
		"scope", scope,
		"removed", removed,
	)
}

// LogPrefetch logs a finished prefetch batch.
func (l *Logger) LogPrefetch(ctx context.Context, scheduled, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "prefetch completed with failures",
			"scheduled", scheduled,
			"failed", failed,
		)
	} else {
		l.DebugContext(ctx, "prefetch completed",
			"scheduled", scheduled,
		)
	}
}
