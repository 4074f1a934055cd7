package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// newObservedLogger creates a LoggerClient backed by an in-memory observer.
func newObservedLogger(level zapcore.Level, tracingEnabled bool) (*LoggerClient, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return New(zap.New(core), Config{EnableTracing: tracingEnabled}), logs
}

var _ Logger = (*LoggerClient)(nil)

func TestNewLoggerClient(t *testing.T) {
	t.Parallel()
	for _, level := range []string{Debug, Info, Warning, Error, "unknown"} {
		l, err := NewLoggerClient(Config{Level: level, ServiceName: "test"})
		require.NoError(t, err, level)
		assert.NotNil(t, l.Zap)
	}

	l, err := NewLoggerClient(Config{Encoding: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewLoggerClient(Config{Encoding: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, zapcore.DebugLevel, parseLevel(Debug))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(Info))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(Warning))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(Error))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestConvertToZapFields(t *testing.T) {
	t.Parallel()
	l, _ := newObservedLogger(zapcore.DebugLevel, false)

	assert.Empty(t, l.convertToZapFields(nil))

	fields := l.convertToZapFields(errors.New("oops"),
		map[string]interface{}{"key1": "val1"},
		map[string]interface{}{"key2": 42},
	)
	require.Len(t, fields, 3)
	assert.Equal(t, "error", fields[0].Key)
}

func TestLevels(t *testing.T) {
	t.Parallel()
	l, logs := newObservedLogger(zapcore.DebugLevel, false)

	l.Debug("d", nil)
	l.Info("i", nil, map[string]interface{}{"k": "v"})
	l.Warn("w", nil)
	l.Error("e", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "v", entries[1].ContextMap()["k"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestDebug_SuppressedAtInfoLevel(t *testing.T) {
	t.Parallel()
	l, logs := newObservedLogger(zapcore.InfoLevel, false)
	l.Debug("should not appear", nil)
	l.DebugWithContext(context.Background(), "nor this", nil)
	assert.Equal(t, 0, logs.Len())
}

func TestRedaction(t *testing.T) {
	t.Parallel()
	l, logs := newObservedLogger(zapcore.InfoLevel, false)

	l.Info("connecting", nil, map[string]interface{}{
		"username": "app",
		"password": "hunter2",
	})

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "app", fields["username"])
	assert.Equal(t, Redacted, fields["password"])
}

func TestRedaction_CustomKeys(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core), Config{RedactKeys: []string{"dsn"}})

	l.Info("opening", nil, map[string]interface{}{"dsn": "mysql:user:pw@/db", "password": "kept"})

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, Redacted, fields["dsn"])
	assert.Equal(t, "kept", fields["password"])
}

func TestWithContext_NoSpan(t *testing.T) {
	t.Parallel()
	l, logs := newObservedLogger(zapcore.DebugLevel, true)

	l.InfoWithContext(context.Background(), "ctx info", nil)
	l.WarnWithContext(context.Background(), "ctx warn", nil)
	l.ErrorWithContext(context.Background(), "ctx error", errors.New("x"))

	require.Equal(t, 3, logs.Len())
	_, ok := logs.All()[0].ContextMap()["trace_id"]
	assert.False(t, ok)
}

func TestWithContext_RecordingSpan(t *testing.T) {
	t.Parallel()
	l, logs := newObservedLogger(zapcore.DebugLevel, true)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	l.DebugWithContext(ctx, "traced", nil)

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}

func TestExtractTracingFields_Disabled(t *testing.T) {
	t.Parallel()
	l, _ := newObservedLogger(zapcore.DebugLevel, false)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.Empty(t, l.extractTracingFields(ctx))
}

func TestFXModule(t *testing.T) {
	t.Parallel()
	var log Logger

	app := fxtest.New(t,
		FXModule,
		fx.Provide(func() Config { return Config{Level: Info, ServiceName: "fx-test"} }),
		fx.Populate(&log),
	)
	app.RequireStart()
	app.RequireStop()

	assert.NotNil(t, log)
}
