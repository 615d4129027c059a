package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "engine.chunk_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateSchema(&cfg.Schema)...)
	errs = append(errs, validateRecords(&cfg.Records)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateEngine validates engine configuration.
func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.WorkerCount < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.worker_count",
			Message: "worker count must be at least 1",
		})
	}
	if cfg.ChunkSize < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.chunk_size",
			Message: "chunk size must be at least 1",
		})
	}
	if cfg.MaxDepth < 1 || cfg.MaxDepth > 1024 {
		errs = append(errs, FieldError{
			Field:   "engine.max_depth",
			Message: fmt.Sprintf("max depth %d out of range: must be between 1 and 1024", cfg.MaxDepth),
		})
	}
	if cfg.MaxExpressionLength < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.max_expression_length",
			Message: "max expression length must be positive",
		})
	}
	if cfg.CalculationTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "engine.calculation_timeout",
			Message: "calculation timeout must not be negative",
		})
	}
	if cfg.ASTCacheSize < 0 {
		errs = append(errs, FieldError{
			Field:   "engine.ast_cache_size",
			Message: "AST cache size must not be negative",
		})
	}

	return errs
}

// validateCache validates cache configuration.
func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	if cfg.TTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "cache.ttl",
			Message: "ttl must be positive",
		})
	}
	if cfg.MaxSize < 1 {
		errs = append(errs, FieldError{
			Field:   "cache.max_size",
			Message: "max size must be at least 1",
		})
	}
	if cfg.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(cfg.CleanupSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "cache.cleanup_schedule",
				Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.CleanupSchedule, err),
			})
		}
	}

	return errs
}

// validateSchema validates schema source configuration.
func validateSchema(cfg *SchemaConfig) []FieldError {
	var errs []FieldError

	if cfg.Watch && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "schema.path",
			Message: "schema path is required when watch is enabled",
		})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "schema.debounce_interval",
			Message: "debounce interval must not be negative",
		})
	}

	return errs
}

// validateRecords validates record source configuration.
func validateRecords(cfg *RecordsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "json":
	case "sqlite":
		if cfg.Table == "" {
			errs = append(errs, FieldError{
				Field:   "records.table",
				Message: "table is required for the sqlite backend",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "records.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'json' or 'sqlite'", cfg.Backend),
		})
	}
	if cfg.IDColumn == "" {
		errs = append(errs, FieldError{
			Field:   "records.id_column",
			Message: "id column is required",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
		if _, _, err := net.SplitHostPort(cfg.Metrics.ListenAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: fmt.Sprintf("invalid listen address %q: %v", cfg.Metrics.ListenAddress, err),
			})
		}
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.ServiceName == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.service_name",
			Message: "service name is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q (valid: always, never, ratio)", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("sample ratio must be between 0.0 and 1.0, got %g", cfg.Tracing.SampleRatio),
		})
	}
	switch cfg.Tracing.Exporter {
	case "none":
	case "otlp":
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required for the otlp exporter",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("invalid exporter %q (valid: none, otlp)", cfg.Tracing.Exporter),
		})
	}

	return errs
}
