package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/broady/proxykit"
)

// Tracing creates a hook that records a span per completed proxy call. The
// span starts at the call's start time and is named after the method.
func Tracing(tracer trace.Tracer) proxykit.AfterCallFunc {
	return func(method string, args, results []any, start time.Time) []any {
		_, span := tracer.Start(context.Background(), method,
			trace.WithTimestamp(start),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("proxy.method", method),
				attribute.Int("proxy.args", len(args)),
				attribute.Int("proxy.results", len(results)),
			),
		)
		span.End(trace.WithTimestamp(time.Now()))
		return results
	}
}
