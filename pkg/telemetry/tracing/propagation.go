package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Worker messages carry the W3C trace context of the calling span as a
// plain string map, so spans started inside a worker join the caller's
// trace.

// Propagator returns the global text map propagator.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// InjectToMap returns the trace context of ctx as a carrier map, or nil
// when ctx carries no span.
func InjectToMap(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	Propagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	return carrier
}

// ExtractFromMap returns ctx with the trace context from carrier.
func ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	if len(carrier) == 0 {
		return ctx
	}
	return Propagator().Extract(ctx, propagation.MapCarrier(carrier))
}

// ValidateTraceParent reports whether traceparent is a well-formed W3C
// traceparent value: version-traceid-parentid-flags.
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}

	widths := []int{2, 32, 16, 2}
	for i, part := range parts {
		if len(part) != widths[i] || !isHexString(part) {
			return false
		}
	}

	// All-zero ids are invalid
	if parts[1] == strings.Repeat("0", 32) || parts[2] == strings.Repeat("0", 16) {
		return false
	}

	return true
}

func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
