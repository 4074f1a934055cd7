package tracer

import (
	"context"
)

// Tracer starts spans around database operations.
//
// This interface is implemented by the concrete *TracerClient type.
type Tracer interface {
	// StartSpan creates a new span with the given name as a child of the span in ctx,
	// if any. Always call span.End() when the operation completes.
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span is a single traced operation.
//
// To use a span effectively:
// 1. Always call End() when the operation completes (typically with defer)
// 2. Add attributes that identify the connection and statement
// 3. Record any error the operation returned
type Span interface {
	// End completes the span and hands it to the configured exporters.
	//
	// Example:
	//   ctx, span := tracer.StartSpan(ctx, "sqlconn.query")
	//   defer span.End()
	End()

	// SetAttributes adds key-value pairs to the span. Strings, ints, int64s,
	// float64s and bools keep their type; anything else is stored as its
	// fmt.Sprint form.
	//
	// Example:
	//   span.SetAttributes(map[string]interface{}{
	//     "db.config_id": "main",
	//     "db.statement": "SELECT 1",
	//   })
	SetAttributes(attrs map[string]interface{})

	// RecordError records err on the span and marks the span as failed.
	RecordError(err error)
}
