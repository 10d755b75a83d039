package explorer

import "go.uber.org/zap"

// Logger is the logging interface used throughout the client.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// zapLogger adapts a zap logger to Logger.
type zapLogger struct {
	log *zap.Logger
}

// NewZapLogger wraps a zap logger. A nil logger yields a no-op logger.
func NewZapLogger(log *zap.Logger) Logger {
	if log == nil {
		log = zap.NewNop()
	}

	return &zapLogger{log: log}
}

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() Logger {
	return &zapLogger{log: zap.NewNop()}
}

func (l *zapLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(msg string, fields map[string]interface{}) {
	l.log.Error(msg, zapFields(fields)...)
}

func zapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		out = append(out, zap.Any(key, value))
	}

	return out
}
