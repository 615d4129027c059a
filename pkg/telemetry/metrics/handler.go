package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the collector's registry in the Prometheus or OpenMetrics
// exposition format. Scrapes are themselves counted in
// promhttp_metric_handler_requests_total on the same registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
			Registry:          c.registry,
		},
	))
}
