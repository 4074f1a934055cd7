package logger

// Log level names accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Redacted replaces the value of fields named in Config.RedactKeys.
const Redacted = "[REDACTED]"

// Config defines the configuration structure for the logger.
type Config struct {
	// Level is the minimum level written: "debug", "info", "warning" or "error".
	// Anything else means "info".
	Level string `yaml:"level" envconfig:"LOGGER_LEVEL"`

	// EnableTracing adds "trace_id" and "span_id" to entries logged with a context
	// that carries a recording span.
	EnableTracing bool `yaml:"enable_tracing" envconfig:"LOGGER_ENABLE_TRACING"`

	// ServiceName populates the "service" field of every entry.
	ServiceName string `yaml:"service_name" envconfig:"LOGGER_SERVICE_NAME"`

	// Encoding is "json" (default) or "console".
	Encoding string `yaml:"encoding" envconfig:"LOGGER_ENCODING"`

	// CallerSkip is the number of wrapper frames to skip when reporting the caller.
	// Defaults to 1.
	CallerSkip int `yaml:"caller_skip" envconfig:"LOGGER_CALLER_SKIP"`

	// RedactKeys lists field names whose values are never written. Defaults to
	// "password" and "passwd".
	RedactKeys []string `yaml:"redact_keys" envconfig:"LOGGER_REDACT_KEYS"`
}
