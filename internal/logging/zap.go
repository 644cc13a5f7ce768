package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KJWesthoff/ventiscan/internal/interfaces"
)

// ZapLogger adapts go.uber.org/zap to interfaces.Logger. It is the
// production backend; StdoutLogger stays around for development runs.
type ZapLogger struct {
	z *zap.Logger
}

// NewZapLogger builds a production zap core writing JSON to stdout.
// component is attached as a persistent field when non-empty.
func NewZapLogger(component string) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}
	if component != "" {
		z = z.With(zap.String("component", component))
	}
	return &ZapLogger{z: z}, nil
}

func zapFields(fields []interfaces.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func (l *ZapLogger) Debug(msg string, fields ...interfaces.Field) {
	l.z.Debug(msg, zapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields ...interfaces.Field) {
	l.z.Info(msg, zapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...interfaces.Field) {
	l.z.Warn(msg, zapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...interfaces.Field) {
	l.z.Error(msg, zapFields(fields)...)
}

func (l *ZapLogger) With(fields ...interfaces.Field) interfaces.Logger {
	return &ZapLogger{z: l.z.With(zapFields(fields)...)}
}

// Sync flushes buffered log entries. Call before process exit.
func (l *ZapLogger) Sync() error {
	return l.z.Sync()
}
