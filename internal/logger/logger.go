// Package logger provides the levelled scan log for catdelta.
// Every line carries a timestamp and level, so a week-long scan log can be
// read back and grepped for its change markers.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

// Log levels, least severe first.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the name written in log lines.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a config value such as "warning" into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

const timeLayout = "2006-01-02 15:04:05"

var (
	mu      sync.RWMutex
	verbose bool
	level             = LevelInfo
	output  io.Writer = os.Stderr
	now               = time.Now
)

// SetVerbose enables or disables verbose logging.
// Verbose mode logs debug messages regardless of the configured level.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func enabled(l Level) bool {
	return verbose || l >= level
}

func write(l Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled(l) {
		return
	}
	fmt.Fprintf(output, "%s %s >>> %s\n", now().Format(timeLayout), l, fmt.Sprintf(format, args...))
}

// Debug logs a diagnostic message.
func Debug(format string, args ...any) {
	write(LevelDebug, format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	write(LevelInfo, format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	write(LevelWarning, format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	write(LevelError, format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
