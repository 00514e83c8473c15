// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/valpere/PriceScrapexter/internal/browser"
	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/ingest"
	"github.com/valpere/PriceScrapexter/internal/output"
	"github.com/valpere/PriceScrapexter/internal/security"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

// DefaultConfig returns the configuration used when a section is omitted.
func DefaultConfig() *Config {
	return &Config{
		Log: utils.LogConfig{
			Level:  "info",
			Format: "console",
		},
		Browser:  *browser.DefaultConfig(),
		Sink:     output.DefaultSinkConfig(),
		Ingest:   ingest.Options{Encoding: "utf-8"},
		Security: security.DefaultConfig(),
		Retry:    errors.DefaultRetryConfig(),
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "pricescrapexter",
		},
		Server: ServerConfig{
			Listen:            ":8080",
			MaxUploadMB:       10,
			RequestsPerMinute: 6,
			ShutdownTimeout:   30 * time.Second,
		},
	}
}

// LoadFromFile loads configuration from a YAML file. A .env file next to it
// and one in the working directory are loaded first; variables already set in
// the environment win.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, errors.New(errors.KindConfig, "load config", fmt.Errorf("configuration filename cannot be empty"))
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, errors.New(errors.KindConfig, "load config", fmt.Errorf("configuration file not found: %s", filename))
	}

	if err := LoadDotEnv(filepath.Dir(filename)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New(errors.KindConfig, "load config", fmt.Errorf("failed to read configuration file: %w", err))
	}

	return LoadFromBytes(data)
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, errors.New(errors.KindConfig, "load config", fmt.Errorf("reader cannot be nil"))
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.New(errors.KindConfig, "load config", fmt.Errorf("failed to read from reader: %w", err))
	}

	return LoadFromBytes(data)
}

// LoadFromBytes expands ${VAR} references, decodes YAML over the defaults and
// validates the result. Empty input yields the defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	config := DefaultConfig()

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, errors.New(errors.KindConfig, "parse config", fmt.Errorf("failed to parse YAML configuration: %w", err))
	}

	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, errors.New(errors.KindConfig, "validate config", err)
	}

	return config, nil
}

// LoadDotEnv loads dir/.env and ./.env when they exist.
func LoadDotEnv(dir string) error {
	seen := make(map[string]bool)
	for _, candidate := range []string{filepath.Join(dir, ".env"), ".env"} {
		abs, err := filepath.Abs(candidate)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true

		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return errors.New(errors.KindConfig, "load env", fmt.Errorf("failed to load %s: %w", abs, err))
		}
	}
	return nil
}

// GenerateTemplate renders the default configuration as YAML.
func GenerateTemplate() ([]byte, error) {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template: %w", err)
	}
	return data, nil
}

// SaveToFile validates config and writes it as YAML.
func SaveToFile(config *Config, filename string) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// applyDefaults fills fields that an explicit empty value in YAML cleared
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Log.Level == "" {
		config.Log.Level = defaults.Log.Level
	}
	if config.Log.Format == "" {
		config.Log.Format = defaults.Log.Format
	}

	if config.Browser.Driver == "" {
		config.Browser.Driver = defaults.Browser.Driver
	}
	if config.Browser.Timeout == 0 {
		config.Browser.Timeout = defaults.Browser.Timeout
	}

	if config.Sink.Driver == "" {
		config.Sink.Driver = defaults.Sink.Driver
	}
	if config.Sink.Table == "" {
		config.Sink.Table = defaults.Sink.Table
	}
	if config.Sink.Collection == "" {
		config.Sink.Collection = defaults.Sink.Collection
	}
	if config.Sink.Driver == output.DriverSQLite && config.Sink.Path == "" && config.Sink.DSN == "" {
		config.Sink.Path = defaults.Sink.Path
	}
	if config.Sink.Timeout == 0 {
		config.Sink.Timeout = defaults.Sink.Timeout
	}

	if config.Ingest.Encoding == "" {
		config.Ingest.Encoding = "utf-8"
	}

	if config.Report.File != "" && config.Report.Format == "" {
		if format, err := output.InferFormat(config.Report.File); err == nil {
			config.Report.Format = format
		}
	}

	if config.Retry.BackoffFactor == 0 {
		config.Retry.BackoffFactor = defaults.Retry.BackoffFactor
	}

	if config.Metrics.Namespace == "" {
		config.Metrics.Namespace = defaults.Metrics.Namespace
	}

	if config.Server.Listen == "" {
		config.Server.Listen = defaults.Server.Listen
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = defaults.Server.MaxUploadMB
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
}
