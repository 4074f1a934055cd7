package database

import (
	"time"

	"github.com/aalemi-dev/sqlconn/observability"
)

// Component is the observability component name reported by connections.
const Component = "sqlconn"

// observeOperation notifies the observer about an operation if one is configured.
// The resource is the configuration id, the sub-resource the driver name once known.
func (c *DriverConnection) observeOperation(operation string, duration time.Duration, err error, size int64, metadata map[string]interface{}) {
	if c == nil || c.observer == nil {
		return
	}

	var driver string
	if c.handle != nil {
		driver = c.handle.DriverName()
	}

	c.observer.ObserveOperation(observability.OperationContext{
		Component:   Component,
		Operation:   operation,
		Resource:    c.cfg.ID(),
		SubResource: driver,
		Duration:    duration,
		Error:       err,
		Size:        size,
		Metadata:    metadata,
	})
}
