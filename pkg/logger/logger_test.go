// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"info", "info", zerolog.InfoLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"warning", "warning", zerolog.WarnLevel},
		{"error", "error", zerolog.ErrorLevel},
		{"fatal", "fatal", zerolog.FatalLevel},
		{"panic", "panic", zerolog.PanicLevel},
		{"invalid defaults to info", "invalid", zerolog.InfoLevel},
		{"empty defaults to info", "", zerolog.InfoLevel},
		{"uppercase", "DEBUG", zerolog.DebugLevel},
		{"mixed case", "WaRn", zerolog.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, _ := parseLogLevel(tt.level)
			if level != tt.expected {
				t.Errorf("parseLogLevel(%s) = %v, want %v", tt.level, level, tt.expected)
			}
		})
	}
}

func TestInitialize_SetsLevel(t *testing.T) {
	Initialize("warn")
	if got := Get().GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("level = %v, want %v", got, zerolog.WarnLevel)
	}
}

func TestInitializeWithFormat_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithFormat("info", FormatJSON)
	SetOutput(&buf)

	Info().Str("house_id", "h-1").Msg("json line")

	output := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("expected JSON output, got %q", output)
	}
	if !strings.Contains(output, `"house_id":"h-1"`) {
		t.Errorf("expected field in output, got %q", output)
	}
}

func TestSetLevel_KeepsOutput(t *testing.T) {
	var buf bytes.Buffer
	Initialize("error")
	SetOutput(&buf)

	Info().Msg("hidden")
	SetLevel("debug")
	Debug().Msg("visible")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("info message should be filtered at error level")
	}
	if !strings.Contains(output, "visible") {
		t.Error("debug message should be written after SetLevel(debug)")
	}
}

func TestLogFunctions(t *testing.T) {
	var buf bytes.Buffer
	Initialize("debug")
	SetOutput(&buf)

	tests := []struct {
		name    string
		logFunc func() *zerolog.Event
		message string
	}{
		{"debug", Debug, "debug message"},
		{"info", Info, "info message"},
		{"warn", Warn, "warn message"},
		{"error", Error, "error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			event := tt.logFunc()
			if event == nil {
				t.Fatalf("%s() returned nil event", tt.name)
			}
			event.Msg(tt.message)

			if !strings.Contains(buf.String(), tt.message) {
				t.Errorf("%s() output should contain message %q, got %q", tt.name, tt.message, buf.String())
			}
		})
	}
}

func TestWith(t *testing.T) {
	Initialize("info")

	var buf bytes.Buffer
	child := With().Str("component", "api").Logger().Output(&buf)
	child.Info().Msg("test message")

	if !strings.Contains(buf.String(), "component") {
		t.Error("Context-created logger should carry its fields")
	}
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name        string
		configLevel string
		logLevel    string
		shouldLog   bool
	}{
		{"info logs at info level", "info", "info", true},
		{"debug filtered at info level", "info", "debug", false},
		{"error logs at info level", "info", "error", true},
		{"debug logs at debug level", "debug", "debug", true},
		{"info filtered at error level", "error", "info", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Initialize(tt.configLevel)
			SetOutput(&buf)

			message := "test message for filtering"
			switch tt.logLevel {
			case "debug":
				Debug().Msg(message)
			case "info":
				Info().Msg(message)
			case "error":
				Error().Msg(message)
			}

			hasMessage := strings.Contains(buf.String(), message)
			if tt.shouldLog != hasMessage {
				t.Errorf("logged = %v, want %v (config %s, message level %s)", hasMessage, tt.shouldLog, tt.configLevel, tt.logLevel)
			}
		})
	}
}
