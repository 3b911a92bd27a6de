// Package log is a thin, geth-style wrapper over log/slog: a small Logger
// interface with level methods taking alternating key/value pairs, and a
// package-level root logger that every component logs through instead of
// fmt.Println or the bare "log" package.
package log

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the interface every component in this module logs through.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)

	// New returns a derived Logger carrying ctx as persistent attributes
	// on every subsequent record.
	New(ctx ...any) Logger
}

// LevelTrace is finer-grained than slog's built-in Debug; it maps to a
// custom slog level one step below LevelDebug.
const LevelTrace = slog.Level(-8)

// LevelCrit maps to a custom slog level one step above LevelError.
const LevelCrit = slog.Level(12)

type logger struct {
	inner *slog.Logger
}

// New returns a Logger derived from Root() that carries ctx as persistent
// attributes; the default root writes text lines to stderr at LevelTrace
// and above. Components typically call the package-level helpers (Info,
// Warn, ...) instead, which log through Root().
func New(ctx ...any) Logger {
	return Root().New(ctx...)
}

func newLogger(handler slog.Handler) Logger {
	return &logger{inner: slog.New(handler)}
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

func (l *logger) Trace(msg string, ctx ...any) { l.inner.Log(context.Background(), LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }
func (l *logger) Crit(msg string, ctx ...any) {
	l.inner.Log(context.Background(), LevelCrit, msg, ctx...)
	os.Exit(1)
}

var root Logger = newLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: LevelTrace}))

// Root returns the package-level default Logger.
func Root() Logger { return root }

// SetDefault replaces the package-level root logger, e.g. to redirect to a
// JSON handler or raise the minimum level in a hosted environment.
func SetDefault(l Logger) { root = l }

func Trace(msg string, ctx ...any) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { root.Crit(msg, ctx...) }
