// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured, leveled logger used across the
// detection core: a thin wrapper around charmbracelet/log with an optional
// syslog sink for deployments that forward logs off-box.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level mirrors charmbracelet/log's level set without exposing that
// package's type at the call sites.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) charm() charmlog.Level {
	switch l {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// Config controls logger construction.
type Config struct {
	Level     Level
	Prefix    string
	Output    io.Writer // defaults to os.Stderr
	Syslog    SyslogConfig
	TimeStamp bool
}

// DefaultConfig returns a Config suitable for interactive use: info level,
// timestamps on, writing to stderr, syslog disabled.
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Prefix:    "detect",
		TimeStamp: true,
		Syslog:    DefaultSyslogConfig(),
	}
}

// Logger is the structured logger handed to every component that needs to
// report state transitions, drop counters, or compile-time errors.
type Logger struct {
	l *charmlog.Logger
}

// New builds a Logger from cfg. If cfg.Syslog.Enabled, log output is
// duplicated to a syslog connection in addition to cfg.Output.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.Syslog.Enabled {
		if w, err := NewSyslogWriter(cfg.Syslog); err == nil {
			out = io.MultiWriter(out, w)
		}
	}

	l := charmlog.NewWithOptions(out, charmlog.Options{
		Prefix:          cfg.Prefix,
		Level:           cfg.Level.charm(),
		ReportTimestamp: cfg.TimeStamp,
	})
	return &Logger{l: l}
}

// With returns a child logger with the given key/value pairs attached to
// every subsequent entry.
func (lg *Logger) With(keyvals ...any) *Logger {
	return &Logger{l: lg.l.With(keyvals...)}
}

func (lg *Logger) Debug(msg string, keyvals ...any) { lg.l.Debug(msg, keyvals...) }
func (lg *Logger) Info(msg string, keyvals ...any)  { lg.l.Info(msg, keyvals...) }
func (lg *Logger) Warn(msg string, keyvals ...any)  { lg.l.Warn(msg, keyvals...) }
func (lg *Logger) Error(msg string, keyvals ...any) { lg.l.Error(msg, keyvals...) }
