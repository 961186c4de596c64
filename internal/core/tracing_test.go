package core

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestToAttributes(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  attribute.Value
	}{
		{name: "string", value: "table-5", want: attribute.StringValue("table-5")},
		{name: "int", value: 3, want: attribute.IntValue(3)},
		{name: "float", value: 12.5, want: attribute.Float64Value(12.5)},
		{name: "bool", value: true, want: attribute.BoolValue(true)},
		{name: "other", value: []int{1}, want: attribute.StringValue("[1]")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toAttributes(map[string]any{"k": tt.value})
			if len(got) != 1 {
				t.Fatalf("toAttributes() returned %d attributes", len(got))
			}
			if got[0].Value != tt.want {
				t.Errorf("value = %v, want %v", got[0].Value.Emit(), tt.want.Emit())
			}
		})
	}
}

func TestOTelTracerWithoutProvider(t *testing.T) {
	tracer := NewOTelTracer()
	ctx, span := tracer.Start(context.Background(), "close-session", map[string]any{"sessionId": "s-1"})
	if ctx == nil {
		t.Fatal("Start() returned nil context")
	}
	span.End(errors.New("boom"))
}
