package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tabula-hq/formula/pkg/config"
	"tabula-hq/formula/pkg/telemetry/logging"
	"tabula-hq/formula/pkg/telemetry/metrics"
	"tabula-hq/formula/pkg/telemetry/tracing"
)

// Telemetry bundles the logger, the metrics collector and the tracer built
// from one telemetry configuration.
type Telemetry struct {
	logger    *slog.Logger
	collector *metrics.Collector
	tracer    *tracing.Tracer
	config    *config.TelemetryConfig
}

// New builds the telemetry stack. The metrics registry also carries the Go
// runtime and process collectors.
func New(cfg *config.TelemetryConfig) (*Telemetry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telemetry config is nil")
	}

	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(&cfg.Metrics, registry)

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return &Telemetry{
		logger:    logger,
		collector: collector,
		tracer:    tracer,
		config:    cfg,
	}, nil
}

// Logger returns the structured logger.
func (t *Telemetry) Logger() *slog.Logger {
	return t.logger
}

// Metrics returns the Prometheus collector.
func (t *Telemetry) Metrics() *metrics.Collector {
	return t.collector
}

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer {
	return t.tracer
}

// MetricsHandler serves the registry, or nil when metrics are disabled.
func (t *Telemetry) MetricsHandler() http.Handler {
	if !t.config.Metrics.Enabled {
		return nil
	}
	return t.collector.Handler()
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
