// Package logging provides the structured, tagged loggers used
// throughout the engine. It generalizes the Logger interface shape of
// pkg/logging/interfaces.go (Debug/Info/Warn/Error plus WithFields)
// with the task/module tagging original_source/src/core/logger.py
// applies via its `mod_name` LoggerAdapter, so every log line can be
// traced back to the module and task that produced it.
//
// log/slog is the standard library's own structured logger and is
// used here in place of a hand-rolled key=value formatter (see
// DESIGN.md for why no third-party structured logger was pulled in).
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Level mirrors the `log_level` setting: an integer,
// matching Python's logging module convention (10=DEBUG .. 50=CRITICAL).
type Level int

const (
	LevelDebug Level = 10
	LevelInfo  Level = 20
	LevelWarn  Level = 30
	LevelError Level = 40
)

func (l Level) slogLevel() slog.Level {
	switch {
	case l <= LevelDebug:
		return slog.LevelDebug
	case l <= LevelInfo:
		return slog.LevelInfo
	case l <= LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Logger is the structured logger passed to every module and internal
// component. Task/Module tagging travels with the logger instance
// rather than being passed per call, mirroring get_logger(name).
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// WithTask returns a logger tagged with the owning task's name.
	WithTask(task string) Logger

	// WithModule returns a logger tagged with the owning module's name
	// and type, mirroring `<name>` logger names in original_source.
	WithModule(name, moduleType string) Logger
}

type slogLogger struct {
	base *slog.Logger
}

// New builds a root Logger writing text-formatted records to os.Stderr
// at the given minimum level.
func New(level Level) Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level.slogLevel(),
	})
	return &slogLogger{base: slog.New(handler)}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.base.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.base.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.base.Error(msg, args...) }

func (l *slogLogger) WithTask(task string) Logger {
	return &slogLogger{base: l.base.With("task", task)}
}

func (l *slogLogger) WithModule(name, moduleType string) Logger {
	return &slogLogger{base: l.base.With("module", name, "module_type", moduleType)}
}

type ctxKey struct{}

// Into stores l in ctx so deeply nested calls (module Run methods)
// can retrieve a tagged logger without threading it through every
// function signature.
func Into(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From retrieves the Logger stored by Into, or a bare root logger at
// LevelInfo if none was stored.
func From(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return New(LevelInfo)
}
