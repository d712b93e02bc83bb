package retrodb

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with retrodb-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithCorpus adds a corpus name field to the logger.
func (l *Logger) WithCorpus(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("corpus", name),
	}
}

// WithPrefix adds a local dataset prefix field to the logger.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		Logger: l.Logger.With("prefix", prefix),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithChunkSize adds a chunk size field to the logger.
func (l *Logger) WithChunkSize(chunkSize int) *Logger {
	return &Logger{
		Logger: l.Logger.With("chunk_size", chunkSize),
	}
}

// LogTransfer logs the upload or download of one corpus file.
func (l *Logger) LogTransfer(ctx context.Context, direction, object string, size, stored int64, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, direction+" failed",
			"object", object,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, direction+" completed",
		"object", object,
		"size", size,
		"stored_size", stored,
		"duration", took,
	)
}

// LogPublish logs a completed or failed publish.
func (l *Logger) LogPublish(ctx context.Context, name string, files int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"corpus", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "corpus published",
		"corpus", name,
		"files", files,
		"bytes", bytes,
	)
}

// LogFetch logs a completed or failed fetch.
func (l *Logger) LogFetch(ctx context.Context, name, prefix string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fetch failed",
			"corpus", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "corpus fetched",
		"corpus", name,
		"prefix", prefix,
	)
}

// LogRetrieve logs a neighbor lookup.
func (l *Logger) LogRetrieve(ctx context.Context, chunkID int64, neighbors int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "retrieve failed",
			"chunk_id", chunkID,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "retrieve completed",
		"chunk_id", chunkID,
		"neighbors", neighbors,
	)
}
