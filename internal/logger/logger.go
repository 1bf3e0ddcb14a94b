package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is a log severity level.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

const (
	// maxFileBytes is the size at which the log file is rotated.
	maxFileBytes = 2_000_000
	// backupCount is how many rotated files are kept.
	backupCount = 3
)

var (
	mu       sync.Mutex
	level    = LevelInfo
	filePath string
	file     *os.File
)

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	level = l
	mu.Unlock()
}

// SetFile enables a file sink in addition to stderr. The file is rotated
// once it grows past 2MB, keeping up to 3 backups.
func SetFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if file != nil {
		file.Close()
	}
	file = f
	filePath = path
	return nil
}

// Close closes the file sink if one is open.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
		filePath = ""
	}
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "?"
}

func logf(l Level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	line := fmt.Sprintf("%s %-5s %s\n",
		time.Now().Format("2006-01-02 15:04:05"), l, fmt.Sprintf(format, args...))
	fmt.Fprint(os.Stderr, line)
	if file == nil {
		return
	}
	if fi, err := file.Stat(); err == nil && fi.Size() >= maxFileBytes {
		rotate()
	}
	if file != nil {
		file.WriteString(line)
	}
}

// rotate shifts path -> path.1 -> path.2 ... dropping the oldest.
// Callers must hold mu.
func rotate() {
	file.Close()
	file = nil
	for i := backupCount - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", filePath, i), fmt.Sprintf("%s.%d", filePath, i+1))
	}
	os.Rename(filePath, filePath+".1")
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: reopen after rotate: %v\n", err)
		return
	}
	file = f
}

// Trace logs at trace level.
func Trace(format string, args ...interface{}) { logf(LevelTrace, format, args...) }

// Debug logs at debug level.
func Debug(format string, args ...interface{}) { logf(LevelDebug, format, args...) }

// Info logs at info level.
func Info(format string, args ...interface{}) { logf(LevelInfo, format, args...) }

// Warn logs at warn level.
func Warn(format string, args ...interface{}) { logf(LevelWarn, format, args...) }

// Error logs at error level.
func Error(format string, args ...interface{}) { logf(LevelError, format, args...) }
