package contextprop

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestExtract_NilContextReturnsNullCorrelation(t *testing.T) {
	out := Extract(nil)
	if out["correlation_id"] != nil {
		t.Errorf("correlation_id = %v, want nil", out["correlation_id"])
	}
}

func TestExtract_ExplicitCorrelationIDWins(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-1")
	out := Extract(ctx)
	if out["correlation_id"] != "corr-1" {
		t.Errorf("correlation_id = %v, want corr-1", out["correlation_id"])
	}
}

func TestExtract_AllIDsPresentWhenSet(t *testing.T) {
	ctx := context.Background()
	ctx = WithCorrelationID(ctx, "c1")
	ctx = WithRequestID(ctx, "r1")
	ctx = WithUserID(ctx, "u1")
	ctx = WithTenantID(ctx, "t1")

	out := Extract(ctx)
	if out["correlation_id"] != "c1" || out["request_id"] != "r1" || out["user_id"] != "u1" || out["tenant_id"] != "t1" {
		t.Errorf("out = %+v", out)
	}
}

func TestExtract_FallsBackToSpanTraceID(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	out := Extract(ctx)
	if out["correlation_id"] != traceID.String() {
		t.Errorf("correlation_id = %v, want fallback to trace id %v", out["correlation_id"], traceID.String())
	}
	if out["trace_id"] != traceID.String() {
		t.Errorf("trace_id = %v", out["trace_id"])
	}
	if out["span_id"] != spanID.String() {
		t.Errorf("span_id = %v", out["span_id"])
	}
}

func TestExtract_ExplicitCorrelationIDBeatsSpanFallback(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithCorrelationID(ctx, "explicit")

	out := Extract(ctx)
	if out["correlation_id"] != "explicit" {
		t.Errorf("correlation_id = %v, want explicit value to win over span fallback", out["correlation_id"])
	}
}
