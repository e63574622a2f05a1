package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents an enumeration of log levels
type LogLevel int

const (
	Critical LogLevel = 50
	Fatal    LogLevel = Critical
	Error    LogLevel = 40
	Warning  LogLevel = 30
	Info     LogLevel = 20
	Debug    LogLevel = 10
	NotSet   LogLevel = 0
)

var (
	baseOnce   sync.Once
	baseLogger *zap.Logger
)

// base builds the process-wide zap logger. LOCAL=true switches to the
// human-readable development encoder.
func base() *zap.Logger {
	baseOnce.Do(func() {
		var cfg zap.Config
		if isLocal() {
			cfg = zap.NewDevelopmentConfig()
		} else {
			cfg = zap.NewProductionConfig()
		}
		// Level filtering happens per component logger.
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)

		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		baseLogger = l
	})
	return baseLogger
}

func isLocal() bool {
	v := os.Getenv("LOCAL")
	return strings.ToLower(v) == "true" || v == "1"
}

// Logger provides structured logging with context
type Logger struct {
	prefix   string
	sugar    *zap.SugaredLogger
	mu       sync.RWMutex
	logLevel LogLevel
}

// NewLogger creates a new logger with a given prefix. The default level is
// Warning, or Debug when running with LOCAL=true.
func NewLogger(prefix string, logLevel ...LogLevel) *Logger {
	level := Warning
	if isLocal() {
		level = Debug
	}
	if len(logLevel) > 0 {
		level = logLevel[0]
	}
	return &Logger{
		prefix:   prefix,
		sugar:    base().Named(prefix).Sugar(),
		logLevel: level,
	}
}

// NewLoggerWithZap wraps an existing zap logger, mainly for tests that
// want to observe output.
func NewLoggerWithZap(prefix string, z *zap.Logger, logLevel LogLevel) *Logger {
	return &Logger{
		prefix:   prefix,
		sugar:    z.Named(prefix).Sugar(),
		logLevel: logLevel,
	}
}

// SetLogLevel sets the logging level
func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logLevel = logLevel
}

func (l *Logger) enabled(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logLevel <= level
}

// Info logs an informational message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	if l.enabled(Info) {
		l.sugar.Infow(msg, keyvals...)
	}
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	if l.enabled(Error) {
		l.sugar.Errorw(msg, keyvals...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	if l.enabled(Warning) {
		l.sugar.Warnw(msg, keyvals...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	if l.enabled(Debug) {
		l.sugar.Debugw(msg, keyvals...)
	}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// LogError logs an error message
func LogError(err error) {
	if err != nil {
		base().Sugar().Errorw("error", "error", err)
	}
}
