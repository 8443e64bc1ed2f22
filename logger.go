package chunkstore

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with chunkstore-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithArray adds an array name field to the logger.
func (l *Logger) WithArray(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("array", name),
	}
}

// WithChunk adds a chunk name field to the logger.
func (l *Logger) WithChunk(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("chunk", name),
	}
}

// WithEndpoint adds a store endpoint field to the logger.
func (l *Logger) WithEndpoint(url string) *Logger {
	return &Logger{
		Logger: l.Logger.With("endpoint", url),
	}
}

// LogGet logs a chunk retrieval.
func (l *Logger) LogGet(ctx context.Context, chunkName string, numBytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "get chunk failed",
			"chunk", chunkName,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "get chunk completed",
			"chunk", chunkName,
			"bytes", numBytes,
		)
	}
}

// LogPut logs a chunk store operation.
func (l *Logger) LogPut(ctx context.Context, chunkName string, numBytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "put chunk failed",
			"chunk", chunkName,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "put chunk completed",
			"chunk", chunkName,
			"bytes", numBytes,
		)
	}
}

// LogHas logs a chunk existence check.
func (l *Logger) LogHas(ctx context.Context, chunkName string, found bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "has chunk failed",
			"chunk", chunkName,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "has chunk completed",
			"chunk", chunkName,
			"found", found,
		)
	}
}

// LogList logs a chunk listing.
func (l *Logger) LogList(ctx context.Context, name string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "list chunks failed",
			"array", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "list chunks completed",
			"array", name,
			"count", count,
		)
	}
}

// LogCreateArray logs an array creation.
func (l *Logger) LogCreateArray(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create array failed",
			"array", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "array created",
			"array", name,
		)
	}
}
