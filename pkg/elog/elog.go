//go:build !silent

// Package elog is the network's logging sink: a user-installed callback
// filtered by one of four levels (info, warning, error, silent). This
// file backs it with zerolog; elog_silent.go (built with the "silent"
// tag) swaps in a zero-cost no-op so embedders who never configure
// logging pay nothing.
package elog

import (
	"os"

	"github.com/rs/zerolog"
)

// Level selects which messages reach the sink.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
	LevelSilent
)

// Logger is the network's logging sink. Infof/Warnf/Errorf are filtered
// by the configured Level; a message below the sink's level is dropped
// without formatting its arguments.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	SetLevel(Level)
}

type zlogger struct {
	z     zerolog.Logger
	level Level
}

// New returns a zerolog-backed Logger writing to os.Stderr at LevelInfo.
func New() Logger {
	z := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return &zlogger{z: z, level: LevelInfo}
}

func (l *zlogger) SetLevel(lv Level) { l.level = lv }

func (l *zlogger) Infof(format string, args ...interface{}) {
	if l.level > LevelInfo {
		return
	}
	l.z.Info().Msgf(format, args...)
}

func (l *zlogger) Warnf(format string, args ...interface{}) {
	if l.level > LevelWarning {
		return
	}
	l.z.Warn().Msgf(format, args...)
}

func (l *zlogger) Errorf(format string, args ...interface{}) {
	if l.level > LevelError {
		return
	}
	l.z.Error().Msgf(format, args...)
}
