package types

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StandardLogger provides standard logging methods for custom logger
// implementations, following the traditional Debug/Info/Warn/Error/Fatal
// pattern with simple and formatted variants.
//
// Grounded on forbearing-gst's types.StandardLogger.
type StandardLogger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// StructuredLogger provides key-value structured logging methods.
//
// Grounded on forbearing-gst's types.StructuredLogger.
type StructuredLogger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Fatalw(msg string, keysAndValues ...any)
}

// ZapLogger exposes zap-native structured logging methods.
//
// Grounded on forbearing-gst's types.ZapLogger.
type ZapLogger interface {
	Debugz(msg string, fields ...zap.Field)
	Infoz(msg string, fields ...zap.Field)
	Warnz(msg string, fields ...zap.Field)
	Errorz(msg string, fields ...zap.Field)
	Fatalz(msg string, fields ...zap.Field)
}

// Logger unifies the three logging styles used across the core. Unlike
// forbearing-gst's types.Logger, it carries no gin/HTTP-context-aware
// With*Context methods: this core has no HTTP framework dependency, so
// context-scoped fields are attached via With(key, value, ...) only.
type Logger interface {
	With(fields ...string) Logger
	WithObject(name string, obj zapcore.ObjectMarshaler) Logger
	WithArray(name string, arr zapcore.ArrayMarshaler) Logger

	StandardLogger
	StructuredLogger
	ZapLogger
}

// NopLogger discards everything. Used as the default when no logger is
// supplied to a registry constructor.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Debug(args ...any) {}
func (NopLogger) Info(args ...any)  {}
func (NopLogger) Warn(args ...any)  {}
func (NopLogger) Error(args ...any) {}
func (NopLogger) Fatal(args ...any) {}

func (NopLogger) Debugf(format string, args ...any) {}
func (NopLogger) Infof(format string, args ...any)  {}
func (NopLogger) Warnf(format string, args ...any)  {}
func (NopLogger) Errorf(format string, args ...any) {}
func (NopLogger) Fatalf(format string, args ...any) {}

func (NopLogger) Debugw(msg string, kv ...any) {}
func (NopLogger) Infow(msg string, kv ...any)  {}
func (NopLogger) Warnw(msg string, kv ...any)  {}
func (NopLogger) Errorw(msg string, kv ...any) {}
func (NopLogger) Fatalw(msg string, kv ...any) {}

func (NopLogger) Debugz(msg string, fields ...zap.Field) {}
func (NopLogger) Infoz(msg string, fields ...zap.Field)  {}
func (NopLogger) Warnz(msg string, fields ...zap.Field)  {}
func (NopLogger) Errorz(msg string, fields ...zap.Field) {}
func (NopLogger) Fatalz(msg string, fields ...zap.Field) {}

func (n NopLogger) With(fields ...string) Logger                            { return n }
func (n NopLogger) WithObject(name string, obj zapcore.ObjectMarshaler) Logger { return n }
func (n NopLogger) WithArray(name string, arr zapcore.ArrayMarshaler) Logger   { return n }
