// Package logging provides the structured logging adapter used across
// the engine. Components depend on the LoggerAdapter interface rather
// than a concrete zap logger so tests can substitute a no-op.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerAdapter is the logging contract shared by every component.
type LoggerAdapter interface {
	Error(msg string, err error, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	With(fields ...zap.Field) LoggerAdapter
}

type stdLogger struct {
	logger *zap.Logger
}

var _ LoggerAdapter = (*stdLogger)(nil)

func (s *stdLogger) Error(msg string, err error, fields ...zap.Field) {
	s.logger.Error(msg, append(fields, zap.Error(err))...)
}

func (s *stdLogger) Warn(msg string, fields ...zap.Field) {
	s.logger.Warn(msg, fields...)
}

func (s *stdLogger) Info(msg string, fields ...zap.Field) {
	s.logger.Info(msg, fields...)
}

func (s *stdLogger) Debug(msg string, fields ...zap.Field) {
	s.logger.Debug(msg, fields...)
}

func (s *stdLogger) With(fields ...zap.Field) LoggerAdapter {
	return &stdLogger{logger: s.logger.With(fields...)}
}

// NewStdLogger returns a production JSON logger writing to stderr.
func NewStdLogger() LoggerAdapter {
	logger, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &stdLogger{logger: logger}
}

// NewFileLogger returns a logger writing JSON lines to a rotating file.
func NewFileLogger(filename string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) LoggerAdapter {
	hook := lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&hook),
		zapcore.DebugLevel,
	)

	return &stdLogger{logger: zap.New(core, zap.AddCallerSkip(1))}
}

type nopLogger struct{}

var _ LoggerAdapter = nopLogger{}

func (nopLogger) Error(string, error, ...zap.Field) {}
func (nopLogger) Warn(string, ...zap.Field)         {}
func (nopLogger) Info(string, ...zap.Field)         {}
func (nopLogger) Debug(string, ...zap.Field)        {}
func (n nopLogger) With(...zap.Field) LoggerAdapter { return n }

// NewNopLogger returns a logger that discards everything. For tests.
func NewNopLogger() LoggerAdapter { return nopLogger{} }
