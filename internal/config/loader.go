package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return applyDefaults(&Config{})
}

// Load reads and parses configuration from a YAML file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg = applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) *Config {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "dyright"
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = "INFO"
	}
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:8765"
	}
	if cfg.Scripts.Dir == "" {
		cfg.Scripts.Dir = "inspection_scripts"
	}
	if cfg.Scripts.VMMemoryLimitMB == 0 {
		cfg.Scripts.VMMemoryLimitMB = 128
	}
	if cfg.Execute.Workers == 0 {
		cfg.Execute.Workers = 4
	}
	if cfg.Execute.QueueDepth == 0 {
		cfg.Execute.QueueDepth = 64
	}
	if cfg.Execute.DefaultTimeout == 0 {
		cfg.Execute.DefaultTimeout = 5 * time.Second
	}
	if cfg.Execute.ShutdownDelay == 0 {
		cfg.Execute.ShutdownDelay = 500 * time.Millisecond
	}
	if cfg.History.Keep == 0 {
		cfg.History.Keep = 256
	}
	return cfg
}

func validate(cfg *Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if cfg.Execute.Workers < 1 {
		return fmt.Errorf("execute.workers must be at least 1 (got %d)", cfg.Execute.Workers)
	}
	if cfg.Execute.QueueDepth < 1 {
		return fmt.Errorf("execute.queue_depth must be at least 1 (got %d)", cfg.Execute.QueueDepth)
	}
	if cfg.Execute.DefaultTimeout <= 0 {
		return fmt.Errorf("execute.default_timeout must be positive (got %s)", cfg.Execute.DefaultTimeout)
	}
	if cfg.Execute.DefaultRAMMB < 0 {
		return fmt.Errorf("execute.default_ram_mb must not be negative (got %d)", cfg.Execute.DefaultRAMMB)
	}
	if cfg.Scripts.VMMemoryLimitMB < 0 {
		return fmt.Errorf("scripts.vm_memory_limit_mb must not be negative (got %d)", cfg.Scripts.VMMemoryLimitMB)
	}
	if cfg.History.Keep < 1 {
		return fmt.Errorf("history.keep must be at least 1 (got %d)", cfg.History.Keep)
	}
	return nil
}
