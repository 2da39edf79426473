package config

import "time"

// Config represents the complete dyright configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Listen  string        `yaml:"listen"`
	Scripts ScriptsConfig `yaml:"scripts"`
	Execute ExecuteConfig `yaml:"execute"`
	API     APIConfig     `yaml:"api,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// ScriptsConfig defines inspection script settings.
type ScriptsConfig struct {
	// Dir is the directory scanned for default inspection scripts at startup.
	// Relative registration paths are resolved against it.
	Dir string `yaml:"dir"`
	// VMMemoryLimitMB caps the interpreter heap of each loaded script.
	VMMemoryLimitMB int `yaml:"vm_memory_limit_mb"`
}

// ExecuteConfig defines execution settings for inspection requests.
type ExecuteConfig struct {
	// Workers is the size of the inspection worker pool.
	Workers int `yaml:"workers"`
	// QueueDepth bounds how many submitted inspections may wait for a worker.
	QueueDepth int `yaml:"queue_depth"`
	// DefaultTimeout applies when a request omits timeoutMs.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	// DefaultRAMMB is the memory ceiling applied when a request carries no
	// resource limit override. Zero disables the default ceiling.
	DefaultRAMMB int `yaml:"default_ram_mb"`
	// ShutdownDelay is how long the shutdown endpoint waits before stopping
	// the control loop.
	ShutdownDelay time.Duration `yaml:"shutdown_delay"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	// APIKey is an optional bearer token guarding mutating routes.
	APIKey string `yaml:"api_key,omitempty"`
}

// HistoryConfig defines the in-memory inspection history settings.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Keep bounds how many completed inspections are retained.
	Keep int `yaml:"keep"`
}
