// Package config provides configuration loading and management for dicom4d.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"dicom4d/pkg/reconstruction"
	"dicom4d/pkg/velocity"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores bounds how many slices are decoded concurrently
		NumCores int `yaml:"numCores"`

		// Venc is the velocity encoding in the unit of the output field
		Venc float64 `yaml:"venc"`

		// RescaleMode is one of directory, slice or identity
		RescaleMode string `yaml:"rescaleMode"`

		// Ordering is one of lexical, numeric or instance
		Ordering string `yaml:"ordering"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Verbose raises the log level to debug regardless of LogLevel
		Verbose bool `yaml:"verbose"`

		// LogLevel is any level logrus can parse
		LogLevel string `yaml:"logLevel"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Venc = velocity.DefaultVENC
	cfg.Processing.RescaleMode = velocity.RescaleDirectory.String()
	cfg.Processing.Ordering = "lexical"

	cfg.Output.Verbose = false
	cfg.Output.LogLevel = logrus.InfoLevel.String()

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks that every named option is recognized
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be at least 1, got %d", c.Processing.NumCores)
	}

	if _, err := velocity.ParseRescaleMode(c.Processing.RescaleMode); err != nil {
		return fmt.Errorf("processing.rescaleMode: %w", err)
	}

	if !reconstruction.IsOrdering(c.Processing.Ordering) {
		return fmt.Errorf("processing.ordering: unknown slice ordering %q", c.Processing.Ordering)
	}

	if _, err := c.Level(); err != nil {
		return fmt.Errorf("output.logLevel: %w", err)
	}

	return nil
}

// Level returns the configured log level. Verbose forces debug.
func (c *Config) Level() (logrus.Level, error) {
	if c.Output.Verbose {
		return logrus.DebugLevel, nil
	}
	if c.Output.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(c.Output.LogLevel)
}

// Params builds assembly parameters for inputDir from the processing section
func (c *Config) Params(inputDir string) *reconstruction.Params {
	return &reconstruction.Params{
		InputDir: inputDir,
		NumCores: c.Processing.NumCores,
	}
}
