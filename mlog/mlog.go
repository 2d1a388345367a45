// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package mlog provides context aware logging for a configuration run.
//
// A Logger is attached to the context at the start of a run and owns
// the run's logging state: the console sink, the log file sink and the
// dedup set for warnings that must be reported only once. Nothing in
// this package is process global except the fallback console logger
// used when a context carries no Logger.
package mlog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// LogFileName is the name of the plain text log file written inside
// the log directory.
const LogFileName = "meson-log.txt"

type contextKeyType int

var contextKey contextKeyType

// Logger writes log entries to the console and, once SetupFile has
// been called, to the log file.
type Logger struct {
	con  *log.Logger
	file *os.File

	mu           sync.Mutex
	onced        map[string]bool
	warnings     int
	deprecations int
}

// New creates a Logger writing console output to w.
func New(w io.Writer) *Logger {
	return &Logger{
		con:   log.New(w),
		onced: map[string]bool{},
	}
}

// NewContext returns a context carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// FromContext returns the logger in the context. A context without a
// logger gets a plain stderr console logger without once dedup state.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey).(*Logger); ok {
		return logger
	}
	return &Logger{con: log.Default(), onced: map[string]bool{}}
}

// SetupFile starts mirroring entries to dir/meson-log.txt.
func (l *Logger) SetupFile(dir string) error {
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = f
	return nil
}

// LogFile returns the path of the log file, or "".
func (l *Logger) LogFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Warnings returns the number of warnings and deprecations issued.
func (l *Logger) Warnings() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.warnings + l.deprecations
}

func (l *Logger) toFile(severity, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		fmt.Fprintf(l.file, "%s: %s\n", severity, msg)
	}
}

// once reports whether id has been seen before and records it.
func (l *Logger) once(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := l.onced[id]
	l.onced[id] = true
	return seen
}

func (l *Logger) countWarning() {
	l.mu.Lock()
	l.warnings++
	l.mu.Unlock()
}

func (l *Logger) countDeprecation() {
	l.mu.Lock()
	l.deprecations++
	l.mu.Unlock()
}

// Debugf logs at debug log level in the manner of fmt.Printf. Debug
// entries go to the log file only.
func (l *Logger) Debugf(format string, args ...any) {
	l.toFile("DEBUG", fmt.Sprintf(format, args...))
}

// Infof logs at info log level in the manner of fmt.Printf.
func (l *Logger) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.con.Info(msg)
	l.toFile("INFO", msg)
}

// Warnf logs at warning log level in the manner of fmt.Printf.
func (l *Logger) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.countWarning()
	l.con.Warn(msg)
	l.toFile("WARNING", msg)
}

// Errorf logs at error log level in the manner of fmt.Printf.
func (l *Logger) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.con.Error(msg)
	l.toFile("ERROR", msg)
}

// Deprecationf logs a deprecation warning.
func (l *Logger) Deprecationf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.countDeprecation()
	l.con.Warn("DEPRECATION: " + msg)
	l.toFile("DEPRECATION", msg)
}

// Debugf logs at debug log level in the manner of fmt.Printf.
func Debugf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Debugf(format, args...)
}

// Infof logs at info log level in the manner of fmt.Printf.
func Infof(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Infof(format, args...)
}

// Warnf logs at warning log level in the manner of fmt.Printf.
func Warnf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Warnf(format, args...)
}

// Errorf logs at error log level in the manner of fmt.Printf.
func Errorf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Errorf(format, args...)
}

// Deprecation logs a deprecation warning.
func Deprecation(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Deprecationf(format, args...)
}

// WarnOnce logs a warning only the first time id is seen in this run.
func WarnOnce(ctx context.Context, id, format string, args ...any) {
	l := FromContext(ctx)
	if l.once(id) {
		return
	}
	l.Warnf(format, args...)
}

// DeprecationOnce logs a deprecation warning only the first time id is
// seen in this run.
func DeprecationOnce(ctx context.Context, id, format string, args ...any) {
	l := FromContext(ctx)
	if l.once(id) {
		return
	}
	l.Deprecationf(format, args...)
}
