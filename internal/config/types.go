// internal/config/types.go

// Package config loads the YAML configuration shared by the CLI and the server.
// It covers logging, the browser session, the result sink, ingestion, reports,
// URL policy, retries, metrics and the HTTP front end.
package config

import (
	"time"

	"github.com/valpere/PriceScrapexter/internal/browser"
	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/ingest"
	"github.com/valpere/PriceScrapexter/internal/output"
	"github.com/valpere/PriceScrapexter/internal/security"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

// Config is the root configuration document.
type Config struct {
	// Log controls the zap logger
	Log utils.LogConfig `yaml:"log" json:"log"`

	// Browser selects and tunes the headless browser driver
	Browser browser.Config `yaml:"browser" json:"browser"`

	// Sink is where every processed row is persisted
	Sink output.SinkConfig `yaml:"sink" json:"sink"`

	// Ingest controls how uploaded files are decoded
	Ingest ingest.Options `yaml:"ingest" json:"ingest"`

	// Report is an optional file written after each batch
	Report ReportConfig `yaml:"report" json:"report"`

	// Security restricts which row URLs may be visited
	Security security.Config `yaml:"security" json:"security"`

	// Retry applies to transient fetch failures
	Retry errors.RetryConfig `yaml:"retry" json:"retry"`

	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	Server ServerConfig `yaml:"server" json:"server"`
}

// ReportConfig defines the batch report file.
type ReportConfig struct {
	// Format is xlsx, json or yaml; empty means infer from File
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// File is the report path; empty disables the report
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// MetricsConfig defines Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// ServerConfig defines the HTTP front end.
type ServerConfig struct {
	Listen            string        `yaml:"listen" json:"listen"`
	MaxUploadMB       int           `yaml:"max_upload_mb" json:"max_upload_mb"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Valid option values
var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"console", "json"}
	validDrivers    = []string{browser.DriverChromedp, browser.DriverRod, browser.DriverStatic}
	validSinks      = []string{
		output.DriverSQLite, output.DriverPostgres, output.DriverMySQL,
		output.DriverMSSQL, output.DriverMongoDB, output.DriverNone,
	}
	validReportFormats = []string{output.FormatXLSX, output.FormatJSON, output.FormatYAML}
)
