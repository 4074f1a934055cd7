package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultRedactKeys = []string{"password", "passwd"}

// LoggerClient is a wrapper around Uber's Zap logger. It implements Logger.
type LoggerClient struct {
	// Zap is the underlying logger, exposed for zap-specific use.
	Zap *zap.Logger

	tracingEnabled bool
	redact         map[string]struct{}
}

// NewLoggerClient builds a zap logger writing to stderr from cfg.
//
// Entries carry an ISO8601 "timestamp", a capitalized level, the caller and the
// "pid" and "service" fields.
//
// Example:
//
//	log, err := logger.NewLoggerClient(logger.Config{
//	    Level:       logger.Info,
//	    ServiceName: "billing",
//	})
//	if err != nil {
//	    return err
//	}
//	log.Info("service started", nil)
func NewLoggerClient(cfg Config) (*LoggerClient, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeCaller = zapcore.ShortCallerEncoder
	encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder

	encoding := cfg.Encoding
	switch encoding {
	case "":
		encoding = "json"
	case "json", "console":
	default:
		return nil, fmt.Errorf("logger: unsupported encoding %q", cfg.Encoding)
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields: map[string]interface{}{
			"pid":     os.Getpid(),
			"service": cfg.ServiceName,
		},
	}

	callerSkip := cfg.CallerSkip
	if callerSkip <= 0 {
		callerSkip = 1
	}

	z, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(callerSkip))
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return New(z, cfg), nil
}

// New wraps an existing zap logger. Only the tracing and redaction settings of
// cfg are used.
func New(z *zap.Logger, cfg Config) *LoggerClient {
	keys := cfg.RedactKeys
	if len(keys) == 0 {
		keys = defaultRedactKeys
	}
	redact := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		redact[k] = struct{}{}
	}
	return &LoggerClient{
		Zap:            z,
		tracingEnabled: cfg.EnableTracing,
		redact:         redact,
	}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case Debug:
		return zap.DebugLevel
	case Warning:
		return zap.WarnLevel
	case Error:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
