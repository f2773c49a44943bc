// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/najoast/brigade/config"
)

// Levels beyond the four slog knows about.
const (
	LevelTrace = slog.LevelDebug - 4
	LevelFatal = slog.LevelError + 4
)

// Logger is a slog.Logger whose level can change while it is in use.
type Logger struct {
	*slog.Logger

	level  *slog.LevelVar
	closer io.Closer
}

// New creates a Logger writing to the output named in cfg: "stdout",
// "stderr" or a file path, which is opened for appending.
func New(cfg config.LogConfig) (*Logger, error) {
	var (
		w      io.Writer
		closer io.Closer
	)
	switch cfg.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.Output, err)
		}
		w, closer = f, f
	}

	l, err := NewWithWriter(cfg, w)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	l.closer = closer
	return l, nil
}

// NewWithWriter creates a Logger writing to w, ignoring cfg.Output.
func NewWithWriter(cfg config.LogConfig, w io.Writer) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	lv := new(slog.LevelVar)
	lv.Set(level)

	opts := &slog.HandlerOptions{
		Level:       lv,
		AddSource:   cfg.AddSource,
		ReplaceAttr: replaceLevel,
	}

	var h slog.Handler
	switch cfg.Format {
	case config.LogFormatJSON:
		h = slog.NewJSONHandler(w, opts)
	case config.LogFormatText:
		h = slog.NewTextHandler(w, opts)
	case "", config.LogFormatConsole:
		h = NewConsoleHandler(w, ConsoleOptions{Level: lv, Color: cfg.Color, AddSource: cfg.AddSource})
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidLogFormat, cfg.Format)
	}

	return &Logger{Logger: slog.New(h), level: lv}, nil
}

// SetLevel changes the level of the Logger and everything derived from it.
func (l *Logger) SetLevel(level config.LogLevel) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.Set(parsed)
	return nil
}

// Level returns the current level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// ParseLevel maps a configured level to a slog.Level.
func ParseLevel(level config.LogLevel) (slog.Level, error) {
	switch level {
	case config.LogLevelTrace:
		return LevelTrace, nil
	case config.LogLevelDebug:
		return slog.LevelDebug, nil
	case config.LogLevelInfo, "":
		return slog.LevelInfo, nil
	case config.LogLevelWarn:
		return slog.LevelWarn, nil
	case config.LogLevelError:
		return slog.LevelError, nil
	case config.LogLevelFatal:
		return LevelFatal, nil
	default:
		return 0, fmt.Errorf("%w: %q", config.ErrInvalidLogLevel, level)
	}
}

// LevelName is like slog.Level.String but knows TRACE and FATAL.
func LevelName(level slog.Level) string {
	switch level {
	case LevelTrace:
		return "TRACE"
	case LevelFatal:
		return "FATAL"
	default:
		return level.String()
	}
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}
