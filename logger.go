package difyflow

import (
	"context"
	"log/slog"
)

// Logger provides structured logging.
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

// slogLogger adapts *slog.Logger to Logger.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger returns a Logger that writes to l.
// A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

func (s slogLogger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	s.l.DebugContext(ctx, msg, keysAndValues...)
}

func (s slogLogger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	s.l.InfoContext(ctx, msg, keysAndValues...)
}

func (s slogLogger) Warn(ctx context.Context, msg string, keysAndValues ...any) {
	s.l.WarnContext(ctx, msg, keysAndValues...)
}

func (s slogLogger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	s.l.ErrorContext(ctx, msg, keysAndValues...)
}
