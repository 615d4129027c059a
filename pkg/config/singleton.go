package config

import (
	"fmt"
	"sync"
)

var (
	// current holds the process-wide configuration.
	current *Config

	// currentMu protects current.
	currentMu sync.RWMutex

	// initOnce ensures Initialize loads only once.
	initOnce sync.Once
)

// Initialize loads configuration from path (defaults only when path is
// empty) with environment overrides and installs it as the process-wide
// configuration. Only the first call loads; later calls return nil.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		SetConfig(cfg)
	})

	return initErr
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize or SetConfig.
func GetConfig() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetConfig installs cfg as the process-wide configuration.
func SetConfig(cfg *Config) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = cfg
}

// ReloadConfig loads path again and, if it is valid, installs it. On error
// the previous configuration stays in place. The new configuration is
// returned so callers can apply the sections that changed.
func ReloadConfig(path string) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	SetConfig(cfg)
	return cfg, nil
}

// MustGetConfig is like GetConfig but panics when no configuration is
// installed.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
