// Package logx provides component-scoped structured logging backed by zerolog.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Level is a log severity name as it appears in configuration.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger writes leveled, printf-style messages tagged with a component name.
type Logger struct {
	component string
}

//nolint:gochecknoglobals // Process-wide sink shared by all component loggers
var (
	baseMu sync.RWMutex
	base   = newBase(os.Stderr, isTerminal(os.Stderr))
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newBase(w io.Writer, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Configure sets the global level and output format. An empty level keeps info.
func Configure(level string, pretty bool) {
	ConfigureOutput(os.Stderr, level, pretty || isTerminal(os.Stderr))
}

// ConfigureOutput is Configure with an explicit writer, used by tests and the CLI.
func ConfigureOutput(w io.Writer, level string, pretty bool) {
	baseMu.Lock()
	defer baseMu.Unlock()

	base = newBase(w, pretty)
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch Level(strings.ToLower(strings.TrimSpace(level))) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a logger for the named component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// GetComponent returns the component name.
func (l *Logger) GetComponent() string {
	return l.component
}

// WithComponent returns a copy tagged with a different component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	baseMu.RLock()
	zl := base
	baseMu.RUnlock()
	return zl.WithLevel(level).Str("component", l.component)
}

func (l *Logger) log(level zerolog.Level, format string, args ...any) {
	if level < zerolog.GlobalLevel() {
		return
	}
	l.event(level).Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(zerolog.DebugLevel, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(zerolog.InfoLevel, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(zerolog.WarnLevel, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(zerolog.ErrorLevel, format, args...)
}

// Fields logs msg at info level with structured key/value fields.
func (l *Logger) Fields(fields map[string]any, msg string) {
	if zerolog.InfoLevel < zerolog.GlobalLevel() {
		return
	}
	l.event(zerolog.InfoLevel).Fields(fields).Msg(msg)
}

// Global logging functions for convenience.
var defaultLogger = NewLogger("system") //nolint:gochecknoglobals

func Debugf(format string, args ...any) {
	defaultLogger.Debug(format, args...)
}

func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf logs and returns the formatted error.
//
//	err := logx.Errorf("setup failed: %w", err)
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err.Error() and returns fmt.Errorf("%s: %w", msg, err).
//
//	if err != nil { return logx.Wrap(err, "open memory store") }
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrappedErr := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrappedErr.Error())
	return wrappedErr
}
