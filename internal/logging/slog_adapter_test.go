// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_Handle(t *testing.T) {
	tests := []struct {
		name      string
		level     slog.Level
		wantLevel string
	}{
		{name: "debug", level: slog.LevelDebug, wantLevel: `"level":"debug"`},
		{name: "info", level: slog.LevelInfo, wantLevel: `"level":"info"`},
		{name: "warn", level: slog.LevelWarn, wantLevel: `"level":"warn"`},
		{name: "error", level: slog.LevelError, wantLevel: `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))
			logger.Log(context.Background(), tt.level, "supervisor event", "service", "batch")

			output := buf.String()
			if !strings.Contains(output, tt.wantLevel) {
				t.Errorf("expected %s, got: %s", tt.wantLevel, output)
			}
			if !strings.Contains(output, `"service":"batch"`) {
				t.Errorf("expected attribute, got: %s", output)
			}
		})
	}
}

func TestSlogHandler_AttrTypes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.Info("types",
		slog.Int("int", 7),
		slog.Uint64("uint", 8),
		slog.Float64("float", 1.5),
		slog.Bool("bool", true),
		slog.Duration("dur", time.Second),
		slog.Any("any", []int{1}),
	)

	output := buf.String()
	for _, want := range []string{`"int":7`, `"uint":8`, `"float":1.5`, `"bool":true`, `"any":[1]`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogHandlerWithLogger(NewTestLogger(&buf))
	logger := slog.New(base.WithAttrs([]slog.Attr{slog.String("tree", "bookrec")}).WithGroup("svc"))

	logger.Info("grouped", "name", "http", slog.Group("restart", slog.Int("count", 2)))

	output := buf.String()
	for _, want := range []string{`"svc.tree":"bookrec"`, `"svc.name":"http"`, `"svc.restart.count":2`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}

	if base.WithGroup("") != base {
		t.Error("WithGroup(\"\") should return the same handler")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	NewSlogLogger().Info("through slog")
	if !strings.Contains(buf.String(), "through slog") {
		t.Errorf("NewSlogLogger() should write to global logger: %s", buf.String())
	}
}
