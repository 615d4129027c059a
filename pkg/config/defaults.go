package config

import (
	"runtime"
	"time"
)

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultChunkSize           = 100
	DefaultMaxDepth            = 64
	DefaultMaxExpressionLength = 8192
	DefaultCalculationTimeout  = 30 * time.Second
	DefaultASTCacheSize        = 512

	// Cache defaults
	DefaultCacheEnabled         = true
	DefaultCacheTTL             = 5 * time.Minute
	DefaultCacheMaxSize         = 10000
	DefaultCacheCleanupSchedule = "@every 1m"

	// Schema defaults
	DefaultSchemaPath             = "./columns.yaml"
	DefaultSchemaWatch            = false
	DefaultSchemaDebounceInterval = 250 * time.Millisecond

	// Records defaults
	DefaultRecordsBackend  = "json"
	DefaultRecordsTable    = "records"
	DefaultRecordsIDColumn = "id"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultLoggingRedactPII     = true
	DefaultMetricsEnabled       = true
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsNamespace     = "formula"
	DefaultMetricsSubsystem     = "engine"
	DefaultTracingEnabled       = false
	DefaultTracingServiceName   = "formulacalc"
	DefaultTracingSampler       = "always"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingExporter      = "none"
	DefaultTracingEndpoint      = "localhost:4317"
)

// DefaultDurationBuckets are histogram buckets for calculation duration in
// seconds, from 100µs to 1s.
var DefaultDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// DefaultConfig returns a configuration with every field at its default.
// Loading starts from this value, so boolean fields absent from the YAML
// file keep their defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		Cache: CacheConfig{
			Enabled:         DefaultCacheEnabled,
			CleanupSchedule: DefaultCacheCleanupSchedule,
		},
		Schema: SchemaConfig{
			Watch: DefaultSchemaWatch,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: DefaultLoggingRedactPII},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{
				Enabled:     DefaultTracingEnabled,
				SampleRatio: DefaultTracingSampleRatio,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.WorkerCount == 0 {
		cfg.Engine.WorkerCount = runtime.NumCPU()
	}
	if cfg.Engine.ChunkSize == 0 {
		cfg.Engine.ChunkSize = DefaultChunkSize
	}
	if cfg.Engine.MaxDepth == 0 {
		cfg.Engine.MaxDepth = DefaultMaxDepth
	}
	if cfg.Engine.MaxExpressionLength == 0 {
		cfg.Engine.MaxExpressionLength = DefaultMaxExpressionLength
	}
	if cfg.Engine.CalculationTimeout == 0 {
		cfg.Engine.CalculationTimeout = DefaultCalculationTimeout
	}
	if cfg.Engine.ASTCacheSize == 0 {
		cfg.Engine.ASTCacheSize = DefaultASTCacheSize
	}

	// Cache defaults. An empty cleanup schedule is meaningful (disabled),
	// so it is only set by DefaultConfig.
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxSize == 0 {
		cfg.Cache.MaxSize = DefaultCacheMaxSize
	}

	// Schema defaults
	if cfg.Schema.Path == "" {
		cfg.Schema.Path = DefaultSchemaPath
	}
	if cfg.Schema.DebounceInterval == 0 {
		cfg.Schema.DebounceInterval = DefaultSchemaDebounceInterval
	}

	// Records defaults
	if cfg.Records.Backend == "" {
		cfg.Records.Backend = DefaultRecordsBackend
	}
	if cfg.Records.Table == "" {
		cfg.Records.Table = DefaultRecordsTable
	}
	if cfg.Records.IDColumn == "" {
		cfg.Records.IDColumn = DefaultRecordsIDColumn
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
}
