package embfuse

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with embfuse-specific context.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithFeature adds a feature field to the logger.
func (l *Logger) WithFeature(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("feature", name),
	}
}

// LogLoad logs the pretrained load step.
func (l *Logger) LogLoad(ctx context.Context, path string, rows, dim int, frozen bool, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "pretrained load failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "pretrained embedding loaded",
		"path", path,
		"rows", rows,
		"dim", dim,
		"frozen", frozen,
		"elapsed", elapsed,
	)
}

// LogBuild logs the finished module layout.
func (l *Logger) LogBuild(ctx context.Context, mode Mode, outDim int, projected bool) {
	l.DebugContext(ctx, "fuser built",
		"mode", mode.String(),
		"output_dim", outDim,
		"projection", projected,
	)
}

// LogApply logs a forward pass at debug level.
func (l *Logger) LogApply(ids int, elapsed time.Duration, err error) {
	if err != nil {
		l.Warn("apply failed", "ids", ids, "error", err)
		return
	}
	l.Debug("apply", "ids", ids, "elapsed", elapsed)
}
