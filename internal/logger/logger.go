// Package logger provides leveled logging to stderr. The level comes
// from configuration (logging.level) and can be raised to debug with
// the --verbose flag. User-facing output goes to stdout through the CLI;
// everything here is operational.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu     sync.RWMutex
	level  Level     = LevelInfo
	output io.Writer = os.Stderr
)

// SetLevel sets the minimum level that gets written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// ParseLevel maps a config string to a Level. Unknown strings fall back
// to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput sets the log writer. Defaults to os.Stderr. Useful for
// testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(l Level, tag, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l >= level {
		fmt.Fprintf(output, tag+" "+format+"\n", args...)
	}
}

func Debug(format string, args ...any) {
	logf(LevelDebug, "[DEBUG]", format, args...)
}

func Info(format string, args ...any) {
	logf(LevelInfo, "[INFO]", format, args...)
}

func Warn(format string, args ...any) {
	logf(LevelWarn, "[WARN]", format, args...)
}

func Error(format string, args ...any) {
	logf(LevelError, "[ERROR]", format, args...)
}
