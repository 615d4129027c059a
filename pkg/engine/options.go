package engine

import (
	"tabula-hq/formula/pkg/cache"
	"tabula-hq/formula/pkg/formula/functions"
)

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the function registry. The default is the built-in
// registry.
func WithRegistry(registry *functions.Registry) Option {
	return func(e *Engine) {
		if registry != nil {
			e.registry = registry
		}
	}
}

// WithMetrics sets the receiver of calculation and batch events.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithCacheMetrics sets the receiver of calculation cache events.
func WithCacheMetrics(m cache.Metrics) Option {
	return func(e *Engine) {
		e.cacheMetrics = m
	}
}
