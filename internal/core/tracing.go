package core

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/appetiteclub/dinein"

// OTelTracer adapts an OpenTelemetry tracer to apt.Tracer. Without an SDK
// provider installed the global tracer is a no-op.
type OTelTracer struct {
	tracer trace.Tracer
}

func NewOTelTracer() *OTelTracer {
	return &OTelTracer{tracer: otel.Tracer(instrumentation)}
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs map[string]any) (context.Context, apt.Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func toAttributes(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case int64:
			out = append(out, attribute.Int64(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		default:
			out = append(out, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return out
}

// NewTelemetry is the per handler instrumentation, backed by OpenTelemetry.
func NewTelemetry() *telemetry.HTTP {
	return telemetry.NewHTTP(telemetry.WithTracer(NewOTelTracer()))
}
