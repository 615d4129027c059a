package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampling strategies.
const (
	// SamplerAlways records every trace.
	SamplerAlways = "always"

	// SamplerNever records no trace.
	SamplerNever = "never"

	// SamplerRatio records a share of traces chosen by trace id.
	SamplerRatio = "ratio"
)

// createSampler builds the root sampler for a strategy. The result is
// always parent based: spans started inside a worker from a propagated
// context follow the caller's decision, so a batch is traced entirely or
// not at all.
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 0.1
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	var base sdktrace.Sampler

	switch strategy {
	case SamplerAlways, "":
		base = sdktrace.AlwaysSample()
	case SamplerNever:
		base = sdktrace.NeverSample()
	case SamplerRatio:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		base = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio)", strategy)
	}

	return sdktrace.ParentBased(base), nil
}
