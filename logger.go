package txjournal

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with journal-specific context.
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

// WithDir adds the journal directory to the logger.
func (l *Logger) WithDir(dir string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dir", dir),
	}
}

// WithTx adds a transaction id field to the logger.
func (l *Logger) WithTx(tx int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("tx", tx),
	}
}

// WithSegment adds a segment sequence field to the logger.
func (l *Logger) WithSegment(seq uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("segment", seq),
	}
}

// LogOpened logs a completed open, recovery included.
func (l *Logger) LogOpened(ctx context.Context, stats RecoveryStats) {
	l.InfoContext(ctx, "journal opened",
		"segments", stats.Segments,
		"records", stats.Records,
		"entries", stats.Entries,
		"transactions", stats.Transactions,
		"skipped", stats.Skipped,
		"completed", stats.Completed,
		"duration", stats.Duration,
	)
}

// LogRecoveryTruncated logs the corruption point recovery cut the log at.
func (l *Logger) LogRecoveryTruncated(ctx context.Context, seq uint64, offset int64, quarantined []string, cause error) {
	l.WarnContext(ctx, "journal truncated at corrupt record",
		"segment", seq,
		"offset", offset,
		"quarantined", quarantined,
		"error", cause,
	)
}

// LogAppend logs an append.
func (l *Logger) LogAppend(ctx context.Context, tx int64, op Operation, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "append failed",
			"tx", tx,
			"op", op.String(),
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "append completed",
			"tx", tx,
			"op", op.String(),
			"bytes", bytes,
		)
	}
}

// LogRotated logs a new head segment.
func (l *Logger) LogRotated(ctx context.Context, seq uint64) {
	l.DebugContext(ctx, "segment rotated", "segment", seq)
}

// LogReleased logs a deleted segment.
func (l *Logger) LogReleased(ctx context.Context, seq uint64, err error) {
	if err != nil {
		l.WarnContext(ctx, "segment release failed",
			"segment", seq,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "segment released", "segment", seq)
	}
}

// LogPinned logs a sealed segment kept alive by an old transaction.
func (l *Logger) LogPinned(ctx context.Context, oldest, head uint64) {
	l.WarnContext(ctx, "old segment pinned by open transaction",
		"oldest", oldest,
		"head", head,
		"behind", head-oldest,
	)
}

// LogClosed logs a close.
func (l *Logger) LogClosed(ctx context.Context, uptime time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "journal close failed",
			"uptime", uptime,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "journal closed", "uptime", uptime)
	}
}
