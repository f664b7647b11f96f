// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Package logging holds the process logger shared by the CLI commands, the
// batch runner and the HTTP server.
//
// The CLI calls Init once the configuration is loaded. Until then a JSON
// logger at info level writes to stderr. Components take a child logger
// with WithComponent, and request or run scoped code uses Ctx.
//
//	logging.Init(cfg.ToLoggingConfig())
//	logging.Info().Int("users", n).Msg("ratings loaded")
//	logging.Ctx(ctx).Warn().Err(err).Msg("request failed")
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, encoding and destination of log output.
type Config struct {
	// Level is a zerolog level name. "warning" is accepted for warn and
	// unknown names fall back to info.
	Level string

	// Format is "json" or "console".
	Format string

	// Caller adds file:line to every entry.
	Caller bool

	// Timestamp adds an RFC 3339 time field.
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig is JSON at info level with timestamps, on stderr.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var global atomic.Pointer[zerolog.Logger]

// Init replaces the process logger with one built from cfg.
func Init(cfg Config) {
	l := newLogger(cfg)
	global.Store(&l)
}

func newLogger(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	ctx := zerolog.New(out).Level(parseLevel(cfg.Level)).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

func current() *zerolog.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	l := newLogger(DefaultConfig())
	global.CompareAndSwap(nil, &l)
	return global.Load()
}

// lookupLevel resolves a level name. Numeric levels are not accepted.
func lookupLevel(name string) (zerolog.Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	if name == "" {
		return zerolog.InfoLevel, false
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl.String() != name {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}

func parseLevel(name string) zerolog.Level {
	lvl, _ := lookupLevel(name)
	return lvl
}

// ValidLevel reports whether name is a level Init understands.
func ValidLevel(name string) bool {
	_, ok := lookupLevel(name)
	return ok
}

// Logger returns a copy of the process logger.
func Logger() zerolog.Logger {
	return *current()
}

// SetLogger installs l as the process logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	global.Store(&l)
}

// Info starts an info entry on the process logger.
func Info() *zerolog.Event { return current().Info() }

// Warn starts a warn entry on the process logger.
func Warn() *zerolog.Event { return current().Warn() }

// Error starts an error entry on the process logger.
func Error() *zerolog.Event { return current().Error() }

// NewTestLogger returns a JSON logger with timestamps that writes to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
