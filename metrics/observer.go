package metrics

import (
	"github.com/aalemi-dev/sqlconn/database"
	"github.com/aalemi-dev/sqlconn/observability"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DatabaseObserver turns connection operations into Prometheus metrics:
//
//   - operations_total{config_id, driver, operation, status}
//   - operation_duration_seconds{config_id, operation}
//   - errors_total{config_id, operation, category}
//   - rows_affected_total{config_id}
//   - open_connections{config_id}
//
// Operations of other components are ignored.
type DatabaseObserver struct {
	operations   Counter
	duration     Histogram
	errors       Counter
	rowsAffected Counter
	open         Gauge
}

var _ observability.Observer = (*DatabaseObserver)(nil)

// NewDatabaseObserver registers the connection metrics with collector.
func NewDatabaseObserver(collector MetricsCollector) *DatabaseObserver {
	return &DatabaseObserver{
		operations: collector.CreateCounter("operations_total",
			"Database connection operations by outcome.",
			[]string{"config_id", "driver", "operation", "status"}),
		duration: collector.CreateHistogram("operation_duration_seconds",
			"Duration of database connection operations.",
			[]string{"config_id", "operation"}, nil),
		errors: collector.CreateCounter("errors_total",
			"Failed database operations by error category.",
			[]string{"config_id", "operation", "category"}),
		rowsAffected: collector.CreateCounter("rows_affected_total",
			"Rows affected by exec operations.",
			[]string{"config_id"}),
		open: collector.CreateGauge("open_connections",
			"Currently open native connections.",
			[]string{"config_id"}),
	}
}

func (o *DatabaseObserver) ObserveOperation(ctx observability.OperationContext) {
	if ctx.Component != database.Component {
		return
	}

	status := StatusSuccess
	if ctx.Error != nil {
		status = StatusError
	}

	o.operations.WithLabelValues(ctx.Resource, ctx.SubResource, ctx.Operation, status).Inc()
	o.duration.WithLabelValues(ctx.Resource, ctx.Operation).Observe(ctx.Duration.Seconds())

	// A failed disconnect still releases the handle.
	if ctx.Operation == "disconnect" {
		o.open.WithLabelValues(ctx.Resource).Dec()
	}

	if ctx.Error != nil {
		o.errors.WithLabelValues(ctx.Resource, ctx.Operation, database.Category(ctx.Error).String()).Inc()
		return
	}

	if ctx.Operation == "connect" {
		o.open.WithLabelValues(ctx.Resource).Inc()
	}
	if ctx.Size > 0 {
		o.rowsAffected.WithLabelValues(ctx.Resource).Add(float64(ctx.Size))
	}
}
