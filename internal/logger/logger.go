// Package logger wraps zap for structured logging.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// Init builds the process logger: a console core on stdout tee'd with a JSON
// core appended to file. An empty file disables the JSON core.
func Init(level, file string) *zap.Logger {
	once.Do(func() {
		lvl := zap.NewAtomicLevelAt(ParseLevel(level))

		consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), lvl)}

		if file != "" {
			if f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
				cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(f), lvl))
			}
		}

		log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	})
	return log
}

// Get returns the process logger, initializing a console-only logger if Init
// was never called.
func Get() *zap.Logger {
	if log == nil {
		return Init("info", "")
	}
	return log
}

// Sync flushes buffered log entries.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// ParseLevel maps a config string onto a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// AsynqLogger adapts zap to asynq's Logger interface.
type AsynqLogger struct {
	s *zap.SugaredLogger
}

func NewAsynqLogger(l *zap.Logger) *AsynqLogger {
	return &AsynqLogger{s: l.Named("asynq").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (a *AsynqLogger) Debug(args ...interface{}) { a.s.Debug(args...) }
func (a *AsynqLogger) Info(args ...interface{})  { a.s.Info(args...) }
func (a *AsynqLogger) Warn(args ...interface{})  { a.s.Warn(args...) }
func (a *AsynqLogger) Error(args ...interface{}) { a.s.Error(args...) }
func (a *AsynqLogger) Fatal(args ...interface{}) { a.s.Fatal(args...) }
