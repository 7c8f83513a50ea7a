package sagatx

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	tracerName = "github.com/fortressi/sagatx"

	spanExecute    = "saga.execute"
	spanStep       = "saga.step"
	spanCompensate = "saga.compensate"

	attrTransactionID = attribute.Key("saga.transaction_id")
	attrStepName      = attribute.Key("saga.step.name")
	attrStepPosition  = attribute.Key("saga.step.position")
	attrStepCount     = attribute.Key("saga.step.count")
	attrOutcome       = attribute.Key("saga.outcome")
)

func defaultTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(tracerName)
}

// endSpan marks span as failed when err is a real failure and ends it.
func endSpan(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case IsSkip(err):
		span.SetAttributes(attrOutcome.String(stepSkipped))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
