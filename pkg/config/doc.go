// Package config provides configuration management for the formula engine
// and the formulacalc command.
//
// Configuration is read from a YAML file, completed with defaults,
// overridden from the environment and validated.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("formula.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("formula.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention FORMULA_SECTION_FIELD:
//
//   - FORMULA_ENGINE_CHUNK_SIZE overrides engine.chunk_size
//   - FORMULA_CACHE_TTL overrides cache.ttl
//   - FORMULA_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example Configuration
//
//	engine:
//	  worker_count: 4
//	  chunk_size: 100
//
//	cache:
//	  ttl: 5m
//	  max_size: 10000
//	  cleanup_schedule: "@every 1m"
//
//	schema:
//	  path: ./columns.yaml
//	  watch: true
//
//	records:
//	  backend: sqlite
//	  path: ./crm.db
//	  table: contacts
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: text
package config
