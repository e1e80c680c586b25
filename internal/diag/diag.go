// Package diag provides the framework's single process-wide logging sink.
// It realizes the five severities from spec.md §6 (trace, info, warning,
// critical, fatal) on top of logrus, the logging dependency the retrieved
// dolthub/go-mysql-server codebase uses for its own audit and session
// logging. Critical is non-fatal but user-visible: it logs at logrus' Error
// level with a "critical" field so it is never confused with an ordinary,
// recoverable warning.
package diag

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the framework's logging handle. It is process-wide (the one
// singleton spec.md's design notes explicitly permit) and is initialized
// before the controller runs and never mutated during a run.
type Logger struct {
	entry *logrus.Entry
	start time.Time
}

// New creates a Logger writing to stderr. verbose raises the minimum level
// to trace; otherwise info and above are emitted.
func New(verbose bool) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableColors: false})
	if verbose {
		l.SetLevel(logrus.TraceLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &Logger{entry: logrus.NewEntry(l), start: time.Now()}
}

// With returns a Logger scoped with an additional field, e.g. the module or
// analysis currently being processed.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), start: l.start}
}

// Trace logs at trace severity (spec.md §6 lowest severity).
func (l *Logger) Trace(format string, args ...any) { l.entry.Tracef(format, args...) }

// Info logs at info severity.
func (l *Logger) Info(format string, args ...any) { l.entry.Infof(format, args...) }

// Warning logs at warning severity. Used for BrokenDebugInfo and similar
// recoverable structural issues (spec.md §7).
func (l *Logger) Warning(format string, args ...any) { l.entry.Warnf(format, args...) }

// Critical logs a non-fatal, user-visible critical event — spec.md §6:
// "critical is non-fatal but user-visible". Used for BrokenModule.
func (l *Logger) Critical(format string, args ...any) {
	l.entry.WithField("critical", true).Errorf(format, args...)
}

// Fatal logs at fatal severity and terminates the process. Reserved for
// conditions the controller state machine cannot recover from at all
// (never used for per-module or per-analysis failures, which are always
// logged and skipped instead).
func (l *Logger) Fatal(format string, args ...any) { l.entry.Fatalf(format, args...) }

// Elapsed returns time since the logger was created, for progress-style
// messages that want to report wall-clock duration.
func (l *Logger) Elapsed() time.Duration { return time.Since(l.start) }
