package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.SugaredLogger
)

func init() {
	Init(os.Getenv("ENVIRONMENT"), os.Getenv("LOG_LEVEL"))
}

// Init rebuilds the process logger. Development environments get the
// console encoder, everything else JSON.
func Init(environment, level string) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level, environment))
	cfg.DisableStacktrace = true

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		z = zap.NewNop()
	}
	Set(z)
}

// Set replaces the process logger, used by tests to capture output.
func Set(z *zap.Logger) {
	mu.Lock()
	log = z.Sugar()
	mu.Unlock()
}

func parseLevel(level, environment string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "info":
		return zapcore.InfoLevel
	}
	if environment == "development" {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Info(format string, v ...interface{}) {
	current().Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// With returns a logger carrying the given key/value pairs, e.g.
// logger.With("conversation", id, "user", uid).
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return current().With(keysAndValues...)
}

func Sync() {
	_ = current().Sync()
}
