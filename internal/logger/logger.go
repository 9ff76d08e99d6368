package logger

import (
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"github.com/rs/zerolog"
)

var log = New(os.Stderr, false)

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

type zeroLogger struct {
	l zerolog.Logger
}

// New returns a console logger writing to w. Services get no timestamps,
// journald adds its own.
func New(w io.Writer, isService bool) Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	return &zeroLogger{l: zerolog.New(output).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &zeroLogger{l: zerolog.Nop()}
}

// Init replaces the package logger and applies the configured level.
func Init(level string, isService bool) error {
	log = New(os.Stderr, isService)

	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	SetLogLevel(l)

	return nil
}

// Default returns the package logger.
func Default() Logger {
	return log
}

// ParseLevel maps a configured level name to a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning", "":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}

	return WarnLevel, errors.New().WithData(errors.ErrInvalidLogLevel, level)
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

func (z *zeroLogger) Debug() *LogEvent {
	return &LogEvent{z.l.Debug()}
}

func (z *zeroLogger) Info() *LogEvent {
	return &LogEvent{z.l.Info()}
}

func (z *zeroLogger) Warn() *LogEvent {
	return &LogEvent{z.l.Warn()}
}

func (z *zeroLogger) Error() *LogEvent {
	return &LogEvent{z.l.Error()}
}

func (z *zeroLogger) ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{z.l.Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

// Debug logs a debug message
func Debug() *LogEvent {
	return log.Debug()
}

// Info logs an info message
func Info() *LogEvent {
	return log.Info()
}

// Warn logs a warning message
func Warn() *LogEvent {
	return log.Warn()
}

// Error logs an error message
func Error() *LogEvent {
	return log.Error()
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return log.ErrorWithCode(err)
}
