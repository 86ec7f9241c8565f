package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Level controls which logs are emitted.
//
// The ordering is: None < Error < Warning < Info < Debug < All.
// Any message above the configured level is ignored.
type Level int32

const (
	LevelNone Level = iota // disables all logging
	LevelError
	LevelWarning
	LevelInfo
	LevelDebug
	LevelAll // enables all logging
)

const (
	Error Level = LevelError
	Warn  Level = LevelWarning
	Info  Level = LevelInfo
	Debug Level = LevelDebug
	Off   Level = LevelNone
)

var (
	globalLevel atomic.Int32
	base        = newBase(os.Stderr)
)

func init() {
	globalLevel.Store(int32(LevelNone))
}

func newBase(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	// Filtering happens in levelEnabled; logrus must not drop anything on its own.
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	return l
}

// SetLevel changes global log level.
func SetLevel(level Level) {
	if level < LevelNone || level > LevelAll {
		level = LevelNone
	}
	globalLevel.Store(int32(level))
}

// GetLevel returns the current global log level.
func GetLevel() Level {
	return Level(globalLevel.Load())
}

// SetOutput redirects SDK logs. A nil writer restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	base.SetOutput(w)
}

func levelEnabled(level Level) bool {
	current := Level(globalLevel.Load())
	switch current {
	case LevelNone:
		return false
	case LevelAll:
		return true
	default:
		if level < LevelError || level > LevelDebug {
			return false
		}
		return level <= current
	}
}

// Logger is a prefixed entry on the shared logrus logger.
type Logger struct {
	prefix string
}

func NewLogger(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

func (l *Logger) entry() *logrus.Entry {
	prefix := ""
	if l != nil {
		prefix = strings.TrimSpace(l.prefix)
	}
	if prefix == "" {
		return logrus.NewEntry(base)
	}
	return base.WithField("component", strings.TrimSuffix(prefix, ":"))
}

func (l *Logger) log(level Level, format string, args ...any) {
	if !levelEnabled(level) {
		return
	}

	message := fmt.Sprintf(format, args...)
	e := l.entry()
	switch level {
	case LevelError:
		e.Error(message)
	case LevelWarning:
		e.Warn(message)
	case LevelInfo:
		e.Info(message)
	default:
		e.Debug(message)
	}
}

// Enabled reports whether messages at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	return levelEnabled(level)
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarning, format, args...)
}

func (l *Logger) Warning(format string, args ...any) {
	l.Warn(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// All is an alias for Debug verbosity.
func (l *Logger) All(format string, args ...any) {
	l.Debug(format, args...)
}
