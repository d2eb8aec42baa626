// Package logging provides leveled, optionally structured logging for the CLI.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a log severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level. Matching is case-insensitive
// but otherwise strict: no whitespace trimming.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug", "DEBUG", "Debug":
		return LevelDebug, nil
	case "info", "INFO", "Info":
		return LevelInfo, nil
	case "warn", "WARN", "Warn", "warning", "WARNING", "Warning":
		return LevelWarn, nil
	case "error", "ERROR", "Error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

var (
	mu     sync.Mutex
	level  = LevelInfo
	format = "text"
	out    io.Writer = os.Stderr
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// SetFormat sets the output format: "text" or "json".
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	format = f
}

// SetOutput redirects log output. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		out = os.Stderr
		return
	}
	out = w
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	mu.Lock()
	defer mu.Unlock()
	return level <= LevelDebug
}

func logf(l Level, msg string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}

	rendered := msg
	if len(args) > 0 {
		rendered = fmt.Sprintf(msg, args...)
	}

	if format == "json" {
		entry := map[string]any{
			"ts":    time.Now().Format(time.RFC3339),
			"level": strings.ToLower(l.String()),
			"msg":   rendered,
		}
		b, err := json.Marshal(entry)
		if err != nil {
			return
		}
		fmt.Fprintln(out, string(b))
		return
	}

	fmt.Fprintf(out, "%s [%s] %s\n",
		time.Now().Format("2006/01/02 15:04:05"), l, rendered)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { logf(LevelDebug, msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { logf(LevelInfo, msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { logf(LevelWarn, msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { logf(LevelError, msg, args...) }
