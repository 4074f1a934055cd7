package metrics

// DefaultAddress is where the metrics endpoint listens when Config.Address is nil.
const DefaultAddress = ":9090"

// DefaultNamespace prefixes every metric created through a Metrics instance.
const DefaultNamespace = "sqlconn"

// Config defines the configuration for the Prometheus metrics endpoint.
type Config struct {
	// Address is the listen address of the /metrics endpoint. Nil selects
	// DefaultAddress, an empty string disables the HTTP server while metrics are
	// still collected.
	Address *string `yaml:"address" envconfig:"METRICS_ADDRESS"`

	// Namespace prefixes metric names. Defaults to DefaultNamespace.
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	// ServiceName is attached to every metric as the "service" label.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`

	// DurationBuckets are the histogram buckets, in seconds, of the operation
	// duration metric. Defaults to prometheus.DefBuckets.
	DurationBuckets []float64 `yaml:"duration_buckets" envconfig:"METRICS_DURATION_BUCKETS"`
}

// Ptr returns a pointer to s, for filling Config.Address.
func Ptr(s string) *string {
	return &s
}
