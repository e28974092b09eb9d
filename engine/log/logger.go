// Package log provides the module-scoped leveled loggers used across the render server.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

// Level is a logger verbosity.
type Level logging.Level

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
	Critical
)

// The logger format
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	mu             sync.Mutex
	leveledBackend logging.LeveledBackend
	currentLevel   = Notice
)

// Logger is the leveled logger interface every package logs through.
type Logger interface {
	Debug(v ...any)
	Debugf(format string, v ...any)

	Info(v ...any)
	Infof(format string, v ...any)

	Notice(v ...any)
	Noticef(format string, v ...any)

	Warning(v ...any)
	Warningf(format string, v ...any)

	Error(v ...any)
	Errorf(format string, v ...any)

	Critical(v ...any)
	Criticalf(format string, v ...any)

	Fatalf(format string, v ...any)
}

// New creates a logger for the named module.
//
// Parameters:
//   - module: the module name shown in every line
//
// Returns:
//   - Logger: the module logger
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink overrides the backend output sink. The current level is preserved.
//
// Parameters:
//   - sink: the writer receiving formatted log lines
func SetSink(sink io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	backend := logging.NewLogBackend(sink, "", 0)
	backendWithFormatter := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(backendWithFormatter)
	leveledBackend.SetLevel(toLoggingLevel(currentLevel), "")
	logging.SetBackend(leveledBackend)
}

// SetLevel sets the verbosity for every module.
//
// Parameters:
//   - level: the minimum level that is written
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	leveledBackend.SetLevel(toLoggingLevel(level), "")
}

// ParseLevel maps a level name (debug, info, notice, warning, error, critical) to a Level.
//
// Parameters:
//   - name: case-insensitive level name
//
// Returns:
//   - Level: the parsed level
//   - bool: false if the name is unknown
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return Debug, true
	case "info":
		return Info, true
	case "notice", "":
		return Notice, true
	case "warning", "warn":
		return Warning, true
	case "error":
		return Error, true
	case "critical":
		return Critical, true
	}
	return Notice, false
}

func toLoggingLevel(level Level) logging.Level {
	switch level {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	case Critical:
		return logging.CRITICAL
	}
	return logging.NOTICE
}

func init() {
	SetSink(os.Stderr)
}
