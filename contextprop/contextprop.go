// Package contextprop extracts the ambient identifiers a log call's
// context.Context carries: correlation, request, user, and tenant IDs;
// falling back to the active OpenTelemetry span's trace/span IDs when no
// explicit correlation ID has been set. This is how a logger's "context
// vars" get sourced automatically instead of being threaded manually
// through every call site.
package contextprop

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"logpipe/envelope"
)

type ctxKey int

const (
	keyCorrelationID ctxKey = iota
	keyRequestID
	keyUserID
	keyTenantID
)

// WithCorrelationID returns a child context carrying correlationID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyCorrelationID, id)
}

// WithRequestID returns a child context carrying requestID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// WithUserID returns a child context carrying userID.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyUserID, id)
}

// WithTenantID returns a child context carrying tenantID.
func WithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyTenantID, id)
}

// Extract builds the Context map a logger call merges into the event's
// envelope context. correlation_id falls back to the active span's
// trace ID when neither an explicit correlation ID was set nor a parent
// value is present, so traced and untraced call sites both get a stable
// identifier to group by.
func Extract(ctx context.Context) envelope.Map {
	if ctx == nil {
		return envelope.Map{"correlation_id": nil}
	}

	out := envelope.Map{}

	correlationID, _ := ctx.Value(keyCorrelationID).(string)
	requestID, _ := ctx.Value(keyRequestID).(string)
	userID, _ := ctx.Value(keyUserID).(string)
	tenantID, _ := ctx.Value(keyTenantID).(string)

	span := trace.SpanContextFromContext(ctx)
	if span.IsValid() {
		out["trace_id"] = span.TraceID().String()
		out["span_id"] = span.SpanID().String()
		if correlationID == "" {
			correlationID = span.TraceID().String()
		}
	}

	if correlationID != "" {
		out["correlation_id"] = correlationID
	} else {
		out["correlation_id"] = nil
	}
	if requestID != "" {
		out["request_id"] = requestID
	}
	if userID != "" {
		out["user_id"] = userID
	}
	if tenantID != "" {
		out["tenant_id"] = tenantID
	}

	return out
}
