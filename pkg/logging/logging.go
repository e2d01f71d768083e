// Package logging provides structured logging for the agent core.
package logging

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the logging interface used across the agent core.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
}

type zerologLogger struct {
	logger zerolog.Logger
}

// New creates a Logger backed by zerolog writing JSON to stderr.
func New() Logger {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &zerologLogger{logger: zl}
}

// NewWithLevel creates a Logger with an explicit minimum level ("debug", "info", ...).
func NewWithLevel(level string) Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	return &zerologLogger{logger: zl}
}

func (l *zerologLogger) emit(event *zerolog.Event, msg string, fields map[string]interface{}) {
	for key, value := range fields {
		event = event.Interface(key, value)
	}
	event.Msg(msg)
}

func (l *zerologLogger) Debug(_ context.Context, msg string, fields map[string]interface{}) {
	l.emit(l.logger.Debug(), msg, fields)
}

func (l *zerologLogger) Info(_ context.Context, msg string, fields map[string]interface{}) {
	l.emit(l.logger.Info(), msg, fields)
}

func (l *zerologLogger) Warn(_ context.Context, msg string, fields map[string]interface{}) {
	l.emit(l.logger.Warn(), msg, fields)
}

func (l *zerologLogger) Error(_ context.Context, msg string, fields map[string]interface{}) {
	l.emit(l.logger.Error(), msg, fields)
}

type noOpLogger struct{}

// NewNoOpLogger returns a Logger that discards everything. Useful in tests.
func NewNoOpLogger() Logger { return noOpLogger{} }

func (noOpLogger) Debug(context.Context, string, map[string]interface{}) {}
func (noOpLogger) Info(context.Context, string, map[string]interface{})  {}
func (noOpLogger) Warn(context.Context, string, map[string]interface{})  {}
func (noOpLogger) Error(context.Context, string, map[string]interface{}) {}
