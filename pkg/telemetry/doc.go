// Package telemetry wires structured logging, Prometheus metrics and
// OpenTelemetry tracing from one configuration block.
//
// # Components
//
//   - logging: slog handlers with PII redaction and context ids
//   - metrics: calculation, batch and cache collectors
//   - tracing: batch, chunk and worker spans
//   - health: liveness and readiness probes
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	eng, err := engine.New(engine.FromConfig(cfg), tel.Logger(),
//	    engine.WithMetrics(tel.Metrics()),
//	    engine.WithCacheMetrics(tel.Metrics().Cache("calculation")),
//	)
package telemetry
