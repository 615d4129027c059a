package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "FORMULA_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Fields absent from the file keep their defaults. The configuration is
// validated but not modified by environment variables; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration on top of the defaults. It does not
// validate.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention FORMULA_SECTION_FIELD (e.g., FORMULA_ENGINE_CHUNK_SIZE).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Load YAML from file
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// An empty path skips the file and starts from defaults only.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Engine overrides
	envInt("ENGINE_WORKER_COUNT", &cfg.Engine.WorkerCount)
	envInt("ENGINE_CHUNK_SIZE", &cfg.Engine.ChunkSize)
	envInt("ENGINE_MAX_DEPTH", &cfg.Engine.MaxDepth)
	envInt("ENGINE_MAX_EXPRESSION_LENGTH", &cfg.Engine.MaxExpressionLength)
	envDuration("ENGINE_CALCULATION_TIMEOUT", &cfg.Engine.CalculationTimeout)
	envInt("ENGINE_AST_CACHE_SIZE", &cfg.Engine.ASTCacheSize)

	// Cache overrides
	envBool("CACHE_ENABLED", &cfg.Cache.Enabled)
	envDuration("CACHE_TTL", &cfg.Cache.TTL)
	envInt("CACHE_MAX_SIZE", &cfg.Cache.MaxSize)
	envString("CACHE_CLEANUP_SCHEDULE", &cfg.Cache.CleanupSchedule)

	// Schema overrides
	envString("SCHEMA_PATH", &cfg.Schema.Path)
	envBool("SCHEMA_WATCH", &cfg.Schema.Watch)
	envDuration("SCHEMA_DEBOUNCE_INTERVAL", &cfg.Schema.DebounceInterval)

	// Records overrides
	envString("RECORDS_BACKEND", &cfg.Records.Backend)
	envString("RECORDS_PATH", &cfg.Records.Path)
	envString("RECORDS_TABLE", &cfg.Records.Table)
	envString("RECORDS_ID_COLUMN", &cfg.Records.IDColumn)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envString("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	envString("TELEMETRY_METRICS_SUBSYSTEM", &cfg.Telemetry.Metrics.Subsystem)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envString("TELEMETRY_TRACING_EXPORTER", &cfg.Telemetry.Tracing.Exporter)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			*dst = d
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			*dst = f
		}
	}
}
