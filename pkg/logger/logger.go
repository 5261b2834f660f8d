package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = newConsole(os.Stderr).Level(zerolog.InfoLevel)
)

func newConsole(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
}

// SetLevel sets the minimum level by name (debug, info, warn, error, disabled).
func SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	log = log.Level(lvl)
	mu.Unlock()
	return nil
}

// ParseLevel accepts zerolog level names; an empty string means info.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	if level == "warning" {
		level = "warn"
	}
	return zerolog.ParseLevel(level)
}

// SetOutput switches to JSON lines on w, keeping the current level.
func SetOutput(w io.Writer) {
	mu.Lock()
	log = zerolog.New(w).With().Timestamp().Logger().Level(log.GetLevel())
	mu.Unlock()
}

// UseConsole switches to the human readable console writer on w.
func UseConsole(w io.Writer) {
	mu.Lock()
	log = newConsole(w).Level(log.GetLevel())
	mu.Unlock()
}

// Disable drops every log line. Front ends that own the terminal call it.
func Disable() {
	mu.Lock()
	log = log.Level(zerolog.Disabled)
	mu.Unlock()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func logCF(level zerolog.Level, component, msg string, fields map[string]interface{}) {
	l := current()
	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if component != "" {
		ev = ev.Str("component", component)
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)
}

func DebugCF(component, msg string, fields map[string]interface{}) {
	logCF(zerolog.DebugLevel, component, msg, fields)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	logCF(zerolog.InfoLevel, component, msg, fields)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	logCF(zerolog.WarnLevel, component, msg, fields)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	logCF(zerolog.ErrorLevel, component, msg, fields)
}

func Debug(msg string) { logCF(zerolog.DebugLevel, "", msg, nil) }
func Info(msg string)  { logCF(zerolog.InfoLevel, "", msg, nil) }
func Warn(msg string)  { logCF(zerolog.WarnLevel, "", msg, nil) }
func Error(msg string) { logCF(zerolog.ErrorLevel, "", msg, nil) }
