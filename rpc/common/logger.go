package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

// LoggerNames are the packages that own a logger
var LoggerNames = []string{"server", "transport", "backend", "client"}

// logOutput receives the lines of every logger created by CreateLogger
var logOutput io.Writer = os.Stderr

const logTimeFormat = "2006-01-02T15:04:05.000Z07:00"

var levelTags = map[logger.LogLevel]string{
	logger.DEBUG:    "DBG",
	logger.INFO:     "INF",
	logger.WARNING:  "WRN",
	logger.ERROR:    "ERR",
	logger.CRITICAL: "PNC",
}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboat's logger.ILogger)
// --------------------------------------------------------------------------

// rKVLogger writes one "<time> <LVL> [package] message" line per call
type rKVLogger struct {
	name  string
	level logger.LogLevel
	out   io.Writer
	mu    *sync.Mutex // shared by all loggers on the same writer
	now   func() time.Time
}

var outputMu sync.Mutex

func newLogger(name string, out io.Writer, mu *sync.Mutex) *rKVLogger {
	return &rKVLogger{name: name, level: logger.INFO, out: out, mu: mu, now: time.Now}
}

func (l *rKVLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *rKVLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *rKVLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *rKVLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *rKVLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf logs regardless of the level and panics with the message
func (l *rKVLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, message)
	panic(message)
}

func (l *rKVLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	l.write(level, fmt.Sprintf(format, args...))
}

func (l *rKVLogger) write(level logger.LogLevel, message string) {
	line := make([]byte, 0, len(logTimeFormat)+len(l.name)+len(message)+10)
	line = l.now().UTC().AppendFormat(line, logTimeFormat)
	line = append(line, ' ')
	line = append(line, levelTags[level]...)
	line = append(line, " ["...)
	line = append(line, l.name...)
	line = append(line, "] "...)
	line = append(line, strings.TrimRight(message, "\n")...)
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger is the logger.Factory installed by InitLoggers. Loggers write
// to stderr.
func CreateLogger(pkgName string) logger.ILogger {
	return newLogger(pkgName, logOutput, &outputMu)
}

// --------------------------------------------------------------------------
// Initialization
// --------------------------------------------------------------------------

// ParseLogLevel converts a level name (debug, info, warn, error) to a
// logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
	}
}

// InitLoggers installs the rKV logger factory and sets the level of all
// package loggers
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
