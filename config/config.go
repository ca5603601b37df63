// Package config holds the runtime configuration for a sync run: worker
// ceilings, batching, timeouts, and the external tool and scratch paths.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the recognized option set for one sync run.
type Config struct {
	// MaxParallel is the worker ceiling, bounding both concurrent batches
	// and workers within a batch.
	MaxParallel int

	// BatchSizeLimit chunks the job list when optimization is disabled.
	BatchSizeLimit int

	// Timeout bounds each direct-sync tool invocation.
	Timeout time.Duration

	// RetryCount bounds the fallback promotion; effectively one.
	RetryCount int

	// OptimizationEnabled caps batch count and runs batches concurrently.
	OptimizationEnabled bool

	// CollectMetrics adds per-batch timings and an efficiency score.
	CollectMetrics bool

	// ToolPath is the external copy tool used by the direct-sync strategy.
	ToolPath string

	// ScratchDir is where traditional jobs stage objects. Empty means the
	// system temp directory.
	ScratchDir string

	// StateDir holds the job state database. Empty disables persistence.
	StateDir string

	// LogFormat is "text" or "json".
	LogFormat string
}

// Default returns the configuration a run gets when nothing is set.
func Default() Config {
	return Config{
		MaxParallel:         4,
		BatchSizeLimit:      100,
		Timeout:             10 * time.Minute,
		RetryCount:          1,
		OptimizationEnabled: true,
		CollectMetrics:      true,
		ToolPath:            "rclone",
		LogFormat:           "text",
	}
}

// yamlConfig is the on-disk YAML structure. Timeout is a Go duration
// string such as "10m" or "90s".
type yamlConfig struct {
	MaxParallel         *int   `yaml:"max_parallel"`
	BatchSizeLimit      *int   `yaml:"batch_size_limit"`
	Timeout             string `yaml:"timeout"`
	RetryCount          *int   `yaml:"retry_count"`
	OptimizationEnabled *bool  `yaml:"optimization_enabled"`
	CollectMetrics      *bool  `yaml:"collect_metrics"`
	ToolPath            string `yaml:"tool_path"`
	ScratchDir          string `yaml:"scratch_dir"`
	StateDir            string `yaml:"state_dir"`
	LogFormat           string `yaml:"log_format"`
}

// LoadFromFile reads a YAML config file and merges the values it sets into
// Config, leaving unset fields alone.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if yc.MaxParallel != nil {
		c.MaxParallel = *yc.MaxParallel
	}
	if yc.BatchSizeLimit != nil {
		c.BatchSizeLimit = *yc.BatchSizeLimit
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return fmt.Errorf("parse timeout %q: %w", yc.Timeout, err)
		}
		c.Timeout = d
	}
	if yc.RetryCount != nil {
		c.RetryCount = *yc.RetryCount
	}
	if yc.OptimizationEnabled != nil {
		c.OptimizationEnabled = *yc.OptimizationEnabled
	}
	if yc.CollectMetrics != nil {
		c.CollectMetrics = *yc.CollectMetrics
	}
	if yc.ToolPath != "" {
		c.ToolPath = yc.ToolPath
	}
	if yc.ScratchDir != "" {
		c.ScratchDir = yc.ScratchDir
	}
	if yc.StateDir != "" {
		c.StateDir = yc.StateDir
	}
	if yc.LogFormat != "" {
		c.LogFormat = yc.LogFormat
	}
	return nil
}

// Validate rejects configurations no run could honor. It does not fill
// defaults; start from Default() for that.
func (c *Config) Validate() error {
	if c.MaxParallel <= 0 {
		return fmt.Errorf("max_parallel must be positive, got %d", c.MaxParallel)
	}
	if c.BatchSizeLimit <= 0 {
		return fmt.Errorf("batch_size_limit must be positive, got %d", c.BatchSizeLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("retry_count must not be negative, got %d", c.RetryCount)
	}
	if c.ToolPath == "" {
		return fmt.Errorf("tool_path is required for the direct-sync strategy")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}
