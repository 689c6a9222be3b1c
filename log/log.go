// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log is a small leveled-logging helper shared by every PIOL
// subsystem, in the shape the teacher package imports as
// "github.com/saferwall/pe/log": a Logger interface, a level Filter and a
// Helper exposing printf-style convenience methods.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is a logging severity, ordered from most to least verbose.
type Level int

// Levels, matching the kinds named in spec.md §7 (Diagnostic/Warning/Fatal).
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every PIOL subsystem writes through.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// StdLogger writes each record as a single line to w.
type StdLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdLogger returns a Logger writing to w.
func NewStdLogger(w io.Writer) *StdLogger {
	return &StdLogger{w: w}
}

// Log implements Logger.
func (l *StdLogger) Log(level Level, keyvals ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.w, "%s %s %s\n", time.Now().Format(time.RFC3339), level, fmt.Sprint(keyvals...))
	return err
}

// filter wraps a Logger, dropping records below a minimum level.
type filter struct {
	next Logger
	min  Level
}

// FilterOption configures a Filter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level that passes the filter.
func FilterLevel(min Level) FilterOption {
	return func(f *filter) { f.min = min }
}

// NewFilter wraps next with level filtering.
func NewFilter(next Logger, opts ...FilterOption) Logger {
	f := &filter{next: next, min: LevelInfo}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Log implements Logger.
func (f *filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.min {
		return nil
	}
	return f.next.Log(level, keyvals...)
}

// Helper adds printf-style convenience methods around a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

// Debugf logs at LevelDebug.
func (h *Helper) Debugf(format string, args ...interface{}) {
	h.logger.Log(LevelDebug, fmt.Sprintf(format, args...))
}

// Infof logs at LevelInfo.
func (h *Helper) Infof(format string, args ...interface{}) {
	h.logger.Log(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf logs at LevelWarn.
func (h *Helper) Warnf(format string, args ...interface{}) {
	h.logger.Log(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs at LevelError.
func (h *Helper) Errorf(format string, args ...interface{}) {
	h.logger.Log(LevelError, fmt.Sprintf(format, args...))
}

// Fatalf logs at LevelFatal and then exits the process, mirroring spec.md
// §7's "job aborts with the log dumped" policy for the sticky-fatal case.
func (h *Helper) Fatalf(format string, args ...interface{}) {
	h.logger.Log(LevelFatal, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Default is a ready-to-use helper over a stderr StdLogger filtered at Info,
// the same default the teacher's File.New constructs when no Options.Logger
// is supplied.
func Default() *Helper {
	return NewHelper(NewFilter(NewStdLogger(os.Stderr), FilterLevel(LevelInfo)))
}
