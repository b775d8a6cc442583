package middleware

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/miladsoleymani/qmux/core"
)

const tracerName = "github.com/miladsoleymani/qmux"

// Tracing returns middleware that wraps each message in a consumer span.
// The span context replaces the Context's context.Context so processors
// can start child spans. A nil provider uses the global one.
func Tracing(provider trace.TracerProvider) core.Middleware {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	tracer := provider.Tracer(tracerName)

	return func(next core.Processor) core.Processor {
		return core.ProcessorFunc(func(c core.Context) (core.Result, error) {
			ctx, span := tracer.Start(c.Context(), "process "+c.Queue(),
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("messaging.destination.name", c.Queue()),
					attribute.String("messaging.message.id", c.Property(core.MessageIDProperty)),
				),
			)
			defer span.End()
			c.SetContext(ctx)

			res, err := next.Process(c)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return res, err
			}
			span.SetAttributes(attribute.String("qmux.result.status", string(res.Status)))
			return res, nil
		})
	}
}
