// Package testutil provides shared test helpers for atelier packages: studio
// record fixtures, loggers, SQLite stores and a fake clock.
package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger returns a logger that writes through t, so its output only shows
// for failing or verbose tests. Code that may log after the test returns,
// such as a background reorder, should use ObservedLogger instead.
func Logger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zapcore.DebugLevel))
}

// ObservedLogger returns a logger that records every entry at level or
// above, and the recorded entries for assertions.
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// Logged reports whether logs holds an entry with message msg.
func Logged(logs *observer.ObservedLogs, msg string) bool {
	return logs.FilterMessage(msg).Len() > 0
}
