package engine

import (
	"fmt"
	"runtime"
	"time"

	"tabula-hq/formula/pkg/cache"
	"tabula-hq/formula/pkg/config"
	"tabula-hq/formula/pkg/formula/parser"
)

// DefaultChunkSize is the number of requests dispatched per batch chunk.
const DefaultChunkSize = 100

// Config contains configuration for the calculation engine.
type Config struct {
	// Workers is the requested number of workers. The pool runs
	// min(Workers, NumCPU, 8).
	// Default: runtime.NumCPU()
	Workers int

	// ChunkSize is the number of requests per batch chunk.
	// Default: 100
	ChunkSize int

	// MaxDepth bounds expression nesting.
	// Default: 64
	MaxDepth int

	// MaxExpressionLength bounds expression length in characters.
	// Default: 8192
	MaxExpressionLength int

	// CalculationTimeout bounds a single Calculate call and each batch
	// chunk. Zero disables the timeout.
	// Default: 30s
	CalculationTimeout time.Duration

	// ASTCacheSize bounds the parsed expressions each worker keeps.
	// Default: 512
	ASTCacheSize int

	// CacheEnabled controls the calculation cache.
	// Default: true
	CacheEnabled bool

	// Cache configures the calculation cache.
	Cache cache.Config

	// CleanupSchedule is the cron schedule of the cache janitor. Empty
	// disables the janitor.
	// Default: "@every 1m"
	CleanupSchedule string
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers:             runtime.NumCPU(),
		ChunkSize:           DefaultChunkSize,
		MaxDepth:            parser.DefaultMaxDepth,
		MaxExpressionLength: parser.DefaultMaxLength,
		CalculationTimeout:  config.DefaultCalculationTimeout,
		ASTCacheSize:        config.DefaultASTCacheSize,
		CacheEnabled:        true,
		Cache:               cache.DefaultConfig(),
		CleanupSchedule:     cache.DefaultCleanupSchedule,
	}
}

// FromConfig converts the application configuration.
func FromConfig(cfg *config.Config) *Config {
	return &Config{
		Workers:             cfg.Engine.WorkerCount,
		ChunkSize:           cfg.Engine.ChunkSize,
		MaxDepth:            cfg.Engine.MaxDepth,
		MaxExpressionLength: cfg.Engine.MaxExpressionLength,
		CalculationTimeout:  cfg.Engine.CalculationTimeout,
		ASTCacheSize:        cfg.Engine.ASTCacheSize,
		CacheEnabled:        cfg.Cache.Enabled,
		Cache: cache.Config{
			TTL:     cfg.Cache.TTL,
			MaxSize: cfg.Cache.MaxSize,
		},
		CleanupSchedule: cfg.Cache.CleanupSchedule,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1, got %d", c.ChunkSize)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1, got %d", c.MaxDepth)
	}
	if c.MaxExpressionLength < 1 {
		return fmt.Errorf("max expression length must be at least 1, got %d", c.MaxExpressionLength)
	}
	if c.CalculationTimeout < 0 {
		return fmt.Errorf("calculation timeout cannot be negative, got %v", c.CalculationTimeout)
	}
	if c.CacheEnabled {
		if err := c.Cache.Validate(); err != nil {
			return fmt.Errorf("invalid cache config: %w", err)
		}
	}
	return nil
}
