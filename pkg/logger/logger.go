// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// FormatConsole renders human readable lines (default)
	FormatConsole = "console"
	// FormatJSON renders one JSON object per line
	FormatJSON = "json"
)

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

// Initialize sets up the global logger with the specified level and console output
func Initialize(level string) {
	InitializeWithFormat(level, FormatConsole)
}

// InitializeWithFormat sets up the global logger with the specified level and output format
func InitializeWithFormat(level, format string) {
	logLevel, err := parseLogLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if strings.ToLower(format) != FormatJSON {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(output).
		Level(logLevel).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetLevel changes the level of the global logger, keeping its output
func SetLevel(level string) {
	logLevel, err := parseLogLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	mu.Lock()
	defer mu.Unlock()
	log = log.Level(logLevel)
}

// parseLogLevel converts string log level to zerolog.Level
func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "panic":
		return zerolog.PanicLevel, nil
	default:
		return zerolog.InfoLevel, nil
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info logs an info message
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error logs an error message
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// With creates a child logger with additional fields
func With() zerolog.Context {
	return Get().With()
}

// SetOutput sets the output writer for the logger
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Output(w)
}
