// Package logging contains the structured logging used by the planners and the orchestrator.
package logging

import (
	"io"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLogger(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{name: name, level: NewAtomicLevelAt(level), inUTC: inUTC, appenders: appenders}
}

// NewWriterLogger returns a logger writing lines at level and above to w in UTC.
func NewWriterLogger(name string, level Level, w io.Writer) Logger {
	return newLogger(name, level, true, NewWriterAppender(w))
}

// NewTestLogger returns a new logger that outputs Debug+ logs to the test object in UTC.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	return newLogger("", DEBUG, true, NewTestAppender(tb), observerCore), observedLogs
}
