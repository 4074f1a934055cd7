package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a Prometheus registry and the HTTP server exposing it.
type Metrics struct {
	// Server serves /metrics; nil when the endpoint is disabled.
	Server *http.Server

	// Registry holds the process collectors and every metric created here.
	Registry *prometheus.Registry

	namespace  string
	buckets    []float64
	registerer prometheus.Registerer
}

// NewMetrics creates the registry, registers the Go and process collectors and
// prepares, but does not start, the HTTP server.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "billing"})
//	observer := metrics.NewDatabaseObserver(m)
//	conn.WithObserver(observer)
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	registerer := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": cfg.ServiceName},
		registry,
	)
	registerer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		Registry:   registry,
		namespace:  namespace,
		buckets:    buckets,
		registerer: registerer,
	}

	addr := DefaultAddress
	if cfg.Address != nil {
		addr = *cfg.Address
	}
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		m.Server = &http.Server{
			Addr:    addr,
			Handler: mux,
		}
	}

	return m
}
