package config

import "time"

// Config is the root configuration structure for the formula engine.
// It contains sections for the calculation engine, the result cache,
// the column schema source, record sources and telemetry.
type Config struct {
	// Engine contains worker pool and batch settings.
	Engine EngineConfig `yaml:"engine"`

	// Cache contains calculation result cache settings.
	Cache CacheConfig `yaml:"cache"`

	// Schema contains the location of the column schema and watch mode.
	Schema SchemaConfig `yaml:"schema"`

	// Records contains the record source used by the calc and watch commands.
	Records RecordsConfig `yaml:"records"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains calculation engine configuration.
type EngineConfig struct {
	// WorkerCount is the requested number of workers. The pool runs at
	// most min(WorkerCount, NumCPU, 8).
	// Default: number of CPUs
	WorkerCount int `yaml:"worker_count"`

	// ChunkSize is the number of requests sent to a worker in one message
	// during batch calculation.
	// Default: 100
	ChunkSize int `yaml:"chunk_size"`

	// MaxDepth bounds expression nesting.
	// Default: 64
	MaxDepth int `yaml:"max_depth"`

	// MaxExpressionLength bounds expression length in characters.
	// Default: 8192
	MaxExpressionLength int `yaml:"max_expression_length"`

	// CalculationTimeout bounds a single calculation request.
	// Default: 30s
	CalculationTimeout time.Duration `yaml:"calculation_timeout"`

	// ASTCacheSize is the number of parsed expressions each worker keeps.
	// Default: 512
	ASTCacheSize int `yaml:"ast_cache_size"`
}

// CacheConfig contains calculation result cache configuration.
type CacheConfig struct {
	// Enabled controls whether calculation results are cached.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TTL is how long a cached result stays fresh.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// MaxSize bounds the number of cached results.
	// Default: 10000
	MaxSize int `yaml:"max_size"`

	// CleanupSchedule is the cron schedule of the cache janitor.
	// Empty disables periodic cleanup.
	// Default: "@every 1m"
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// SchemaConfig contains column schema source configuration.
type SchemaConfig struct {
	// Path is the YAML file holding the column schema.
	// Default: "./columns.yaml"
	Path string `yaml:"path"`

	// Watch enables reloading the schema when the file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces bursts of file events into one reload.
	// Default: 250ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// RecordsConfig contains record source configuration.
type RecordsConfig struct {
	// Backend selects the record source.
	// Options: "json", "sqlite"
	// Default: "json"
	Backend string `yaml:"backend"`

	// Path is the JSON file or SQLite database path.
	Path string `yaml:"path"`

	// Table is the SQLite table to read records from.
	// Default: "records"
	Table string `yaml:"table"`

	// IDColumn is the field holding the record id.
	// Default: "id"
	IDColumn string `yaml:"id_column"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks email addresses and phone numbers found in record
	// values before they reach the log output.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// ListenAddress is where the watch command serves metrics.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Namespace is the metric name prefix.
	// Default: "formula"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "engine"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for calculation duration (seconds).
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "formulacalc"
	ServiceName string `yaml:"service_name"`

	// Sampler is the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the share of traces kept by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter selects where spans go.
	// Options: "none" (spans are only visible to in-process processors), "otlp"
	// Default: "none"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`
}
