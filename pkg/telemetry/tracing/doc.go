// Package tracing provides OpenTelemetry spans for the calculation engine.
//
// # Spans
//
//	engine.batch                 one CalculateBatch call
//	  engine.chunk               one chunk of the batch
//	    worker.calculate         one request evaluated inside a worker
//	engine.calculate             one Calculate call
//	engine.recalculate_affected  one RecalculateAffected call
//	engine.initialize            one schema (re)initialization
//
// Span helpers use the global tracer provider. New installs an SDK provider
// when tracing is enabled; otherwise spans are non-recording and cost close
// to nothing.
//
// # Worker Propagation
//
// Worker requests cross a message boundary as JSON. The caller's trace
// context travels inside the request as a W3C traceparent map:
//
//	req.TraceContext = tracing.InjectToMap(ctx)
//	// inside the worker
//	ctx := tracing.ExtractFromMap(context.Background(), req.TraceContext)
//
// # Sampling
//
// Samplers are parent based: "always", "never" or "ratio" decides at the
// root span and every child follows.
//
// # Export
//
// Exporter "otlp" ships spans over gRPC to an OpenTelemetry collector;
// "none" keeps them in process, which is useful with WithSpanProcessor.
package tracing
