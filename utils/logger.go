package utils

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with the printf-style level methods used across the tool
type Logger struct {
	z zerolog.Logger
}

// NewLogger creates a logger at the given level ("debug", "info", "warn", "error").
// Errors go to stderr, everything else to stdout.
func NewLogger(level, format string) *Logger {
	return NewLoggerTo(os.Stdout, os.Stderr, level, format)
}

// NewLoggerTo creates a logger writing errors to errOut and other levels to out.
// format "json" emits JSON lines, anything else is console output.
func NewLoggerTo(out, errOut io.Writer, level, format string) *Logger {
	if strings.ToLower(format) != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
		errOut = zerolog.ConsoleWriter{Out: errOut, TimeFormat: "15:04:05"}
	}
	w := levelSplitWriter{out: out, errOut: errOut}
	z := zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	return &Logger{z: z}
}

// levelSplitWriter routes error and above to errOut
type levelSplitWriter struct {
	out    io.Writer
	errOut io.Writer
}

func (w levelSplitWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w levelSplitWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l >= zerolog.ErrorLevel && l != zerolog.NoLevel {
		return w.errOut.Write(p)
	}
	return w.out.Write(p)
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{z: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.z.Info().Msgf(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.z.Warn().Msgf(msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.z.Error().Msgf(msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.z.Debug().Msgf(msg, args...)
}

// With returns a child logger that stamps every line with key=value
func (l *Logger) With(key, value string) *Logger {
	return &Logger{z: l.z.With().Str(key, value).Logger()}
}
