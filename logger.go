// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records. Enabled returns false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for ksl and its sub-packages.
// By default ksl produces no log output. Pass nil to restore silence.
//
// Log levels used by ksl:
//   - [slog.LevelDebug]: program finalization, code generation, hook dispatch
//   - [slog.LevelWarn]: listeners or data blocks returning errors
//
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Sub-packages call it to share the same
// configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
