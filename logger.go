package diaggo

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/diaggo/basis"
)

// Logger wraps slog.Logger with diaggo-specific fields.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithNSites adds a site count field to the logger.
func (l *Logger) WithNSites(n int) *Logger {
	return &Logger{Logger: l.Logger.With("nsites", n)}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int64) *Logger {
	return &Logger{Logger: l.Logger.With("dimension", dim)}
}

// WithBasis adds a short description of b to the logger.
func (l *Logger) WithBasis(b basis.Basis) *Logger {
	return &Logger{Logger: l.Logger.With("basis", basis.String(b))}
}

// LogBasisBuilt logs the construction of a basis.
func (l *Logger) LogBasisBuilt(ctx context.Context, b basis.Basis, elapsed time.Duration) {
	l.DebugContext(ctx, "basis built",
		"basis", basis.String(b),
		"size", b.Size(),
		"dim", b.Dim(),
		"elapsed", elapsed,
	)
}

// LogApply logs a matrix construction or operator application.
func (l *Logger) LogApply(ctx context.Context, op string, nterms int, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"terms", nterms,
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, op+" completed",
			"terms", nterms,
			"size", size,
		)
	}
}

// LogLanczosIteration logs one Lanczos step.
func (l *Logger) LogLanczosIteration(ctx context.Context, iteration int, alpha, beta float64) {
	l.DebugContext(ctx, "lanczos iteration",
		"iteration", iteration,
		"alpha", alpha,
		"beta", beta,
	)
}

// LogLanczosDone logs the end of a Lanczos run.
func (l *Logger) LogLanczosDone(ctx context.Context, iterations int, criterion string, e0 float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "lanczos failed",
			"iterations", iterations,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "lanczos done",
			"iterations", iterations,
			"criterion", criterion,
			"e0", e0,
		)
	}
}

// LogSnapshot logs a snapshot operation.
func (l *Logger) LogSnapshot(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"name", name,
		)
	}
}
