package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// GlobalTracer is used by repos, services and handlers to start spans. Span
// export is wired by the OTEL SDK of whatever collector the deployment uses;
// with no SDK configured the spans are no-ops.
var GlobalTracer = otel.Tracer("workout-backend")

// EndSpanWithErrCheck ends the span, recording err on it first if set.
func EndSpanWithErrCheck(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}
