package metrics

// MetricsCollector creates metrics registered with the instance's registry under
// its namespace and service label.
//
// This interface is implemented by the concrete *Metrics type.
type MetricsCollector interface {
	CreateCounter(name, help string, labels []string) Counter
	CreateHistogram(name, help string, labels []string, buckets []float64) Histogram
	CreateGauge(name, help string, labels []string) Gauge
}
