// Package logging provides the orchestrator's leveled logger: a thin
// wrapper around the standard library's *log.Logger with a level-gated
// Log(level, msg) call, writing to stderr and, when a log directory is
// given, also to a log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Level is the severity of a log line; lower numeric values are more
// severe.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ILogger is the minimal surface every component depends on, so tests can
// swap in a no-op or recording implementation without touching the file
// system.
type ILogger interface {
	ShouldLog(level Level) bool
	Log(level Level, msg string)
}

// Logger is a goroutine-safe logger. Every line that passes the level gate
// goes to stderr, and also to a log file when one was opened; Warning and
// Error lines carry a level prefix. The file is named by the process start
// time and is not rotated.
type Logger struct {
	mu                sync.Mutex
	minimumLevelToLog Level
	file              io.WriteCloser
	logger            *log.Logger
}

// New creates a Logger. If dir is empty, logs go to stderr only.
func New(minimumLevel Level, dir string) (*Logger, error) {
	l := &Logger{minimumLevelToLog: minimumLevel}

	if dir == "" {
		l.logger = log.New(os.Stderr, "", log.LstdFlags|log.LUTC)
		return l, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}
	name := filepath.Join(dir, fmt.Sprintf("backupd-%s.log", time.Now().UTC().Format("20060102-150405")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	l.file = f
	l.logger = log.New(io.MultiWriter(f, os.Stderr), "", log.LstdFlags|log.LUTC)
	return l, nil
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{minimumLevelToLog: LevelError, logger: log.New(io.Discard, "", 0)}
}

func (l *Logger) ShouldLog(level Level) bool {
	return level <= l.minimumLevelToLog
}

func (l *Logger) Log(level Level, msg string) {
	if !l.ShouldLog(level) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := ""
	if level <= LevelWarning {
		prefix = level.String() + ": "
	}
	l.logger.Println(prefix + msg)
}

func (l *Logger) Logf(level Level, format string, args ...interface{}) {
	l.Log(level, fmt.Sprintf(format, args...))
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
