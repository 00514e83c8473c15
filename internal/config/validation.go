// internal/config/validation.go - Validation with detailed error messages
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/valpere/PriceScrapexter/internal/browser"
	"github.com/valpere/PriceScrapexter/internal/ingest"
	"github.com/valpere/PriceScrapexter/internal/output"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationErrors is returned by Validate when at least one check fails
type ValidationErrors []ValidationError

// Error lists every failure, one per line
func (ve ValidationErrors) Error() string {
	var msg strings.Builder
	msg.WriteString("Configuration validation failed:\n")
	for i, err := range ve {
		msg.WriteString(fmt.Sprintf("  %d. %s", i+1, err.Message))
		if err.Field != "" {
			msg.WriteString(fmt.Sprintf(" (field: %s)", err.Field))
		}
		if err.Value != "" {
			msg.WriteString(fmt.Sprintf(" (value: %s)", err.Value))
		}
		msg.WriteString("\n")
	}
	return msg.String()
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) fail(field, value, format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// prometheus metric name prefix
var namespaceRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate returns ValidationErrors when the configuration cannot be used.
func (c *Config) Validate() error {
	result := c.ValidateWithDetails()
	if len(result.Errors) > 0 {
		return ValidationErrors(result.Errors)
	}
	return nil
}

// ValidateWithDetails runs every check and also collects warnings.
func (c *Config) ValidateWithDetails() *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]ValidationError, 0),
		Warnings: make([]string, 0),
	}

	c.validateLog(result)
	c.validateBrowser(result)
	c.validateSink(result)
	c.validateIngest(result)
	c.validateReport(result)
	c.validateSecurity(result)
	c.validateRetry(result)
	c.validateMetrics(result)
	c.validateServer(result)

	return result
}

func (c *Config) validateLog(result *ValidationResult) {
	if _, err := utils.ParseLevel(c.Log.Level); err != nil {
		result.fail("log.level", c.Log.Level, "Invalid log level, must be one of: %s", strings.Join(validLogLevels, ", "))
	}
	if !contains(validLogFormats, c.Log.Format) {
		result.fail("log.format", c.Log.Format, "Invalid log format, must be one of: %s", strings.Join(validLogFormats, ", "))
	}
}

func (c *Config) validateBrowser(result *ValidationResult) {
	b := c.Browser
	if !contains(validDrivers, b.Driver) {
		result.fail("browser.driver", b.Driver, "Unsupported browser driver, must be one of: %s", strings.Join(validDrivers, ", "))
	}
	if b.Timeout <= 0 {
		result.fail("browser.timeout", b.Timeout.String(), "Browser timeout must be positive")
	}
	if b.MinInterval < 0 {
		result.fail("browser.min_interval", b.MinInterval.String(), "Minimum interval cannot be negative")
	}
	if b.ViewportWidth < 0 || b.ViewportHeight < 0 {
		result.fail("browser.viewport", fmt.Sprintf("%dx%d", b.ViewportWidth, b.ViewportHeight), "Viewport dimensions cannot be negative")
	}
	if b.Proxy != "" {
		if u, err := url.Parse(b.Proxy); err != nil || u.Scheme == "" || u.Host == "" {
			result.fail("browser.proxy", b.Proxy, "Proxy must be a URL such as http://host:port or socks5://host:port")
		}
	}
	if b.Driver == browser.DriverStatic {
		if b.Stealth {
			result.warn("browser.stealth has no effect with the static driver")
		}
		if !b.Headless {
			result.warn("browser.headless=false has no effect with the static driver")
		}
	}
}

func (c *Config) validateSecurity(result *ValidationResult) {
	s := c.Security
	for _, scheme := range s.AllowedSchemes {
		if scheme != "http" && scheme != "https" {
			result.fail("security.allowed_schemes", scheme, "Only http and https can be allowed")
		}
	}
	if s.MaxURLLength < 0 {
		result.fail("security.max_url_length", fmt.Sprintf("%d", s.MaxURLLength), "Maximum URL length cannot be negative")
	}
	if s.BlockPrivateNetworks && c.Browser.Proxy != "" {
		result.warn("security.block_private_networks checks addresses locally; the proxy may resolve hosts differently")
	}
}

func (c *Config) validateSink(result *ValidationResult) {
	s := c.Sink
	if !contains(validSinks, s.Driver) {
		result.fail("sink.driver", s.Driver, "Unsupported sink driver, must be one of: %s", strings.Join(validSinks, ", "))
		return
	}
	if s.Timeout < 0 {
		result.fail("sink.timeout", s.Timeout.String(), "Sink timeout cannot be negative")
	}

	var maxLen int
	switch s.Driver {
	case output.DriverSQLite:
		maxLen = output.MaxSQLiteIdentifierLength
		if s.Path == "" && s.DSN == "" {
			result.fail("sink.path", "", "SQLite sink requires a path")
		}
	case output.DriverPostgres:
		maxLen = output.MaxPostgreSQLIdentifierLength
	case output.DriverMySQL:
		maxLen = output.MaxMySQLIdentifierLength
	case output.DriverMSSQL:
		maxLen = output.MaxMSSQLIdentifierLength
	case output.DriverMongoDB:
		if s.Database == "" {
			result.fail("sink.database", "", "MongoDB sink requires a database")
		}
	case output.DriverNone:
		result.warn("sink.driver is none; processed rows are not persisted")
		return
	}

	if s.Driver != output.DriverSQLite && s.DSN == "" {
		result.fail("sink.dsn", "", "Sink %s requires a dsn", s.Driver)
	}
	if maxLen > 0 {
		if err := output.ValidateSQLIdentifier(s.Table, maxLen); err != nil {
			result.fail("sink.table", s.Table, "Invalid table name: %v", err)
		}
	}
}

func (c *Config) validateIngest(result *ValidationResult) {
	if err := ingest.ValidEncoding(c.Ingest.Encoding); err != nil {
		result.fail("ingest.encoding", c.Ingest.Encoding, "Unsupported csv encoding")
	}
}

func (c *Config) validateReport(result *ValidationResult) {
	r := c.Report
	if r.File == "" {
		if r.Format != "" {
			result.warn("report.format is set but report.file is empty; no report will be written")
		}
		return
	}
	if !contains(validReportFormats, r.Format) {
		result.fail("report.format", r.Format, "Unsupported report format, must be one of: %s", strings.Join(validReportFormats, ", "))
	}
}

func (c *Config) validateRetry(result *ValidationResult) {
	r := c.Retry
	if r.MaxRetries < 0 {
		result.fail("retry.max_retries", fmt.Sprintf("%d", r.MaxRetries), "Max retries cannot be negative")
	}
	if r.MaxRetries > 10 {
		result.warn("retry.max_retries above 10 keeps the browser busy on dead pages")
	}
	if r.BaseDelay < 0 || r.MaxDelay < 0 {
		result.fail("retry.base_delay", r.BaseDelay.String(), "Retry delays cannot be negative")
	}
	if r.BackoffFactor < 1 {
		result.fail("retry.backoff_factor", fmt.Sprintf("%g", r.BackoffFactor), "Backoff factor must be at least 1")
	}
}

func (c *Config) validateMetrics(result *ValidationResult) {
	if c.Metrics.Enabled && !namespaceRegex.MatchString(c.Metrics.Namespace) {
		result.fail("metrics.namespace", c.Metrics.Namespace, "Metrics namespace must be a valid Prometheus name")
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	s := c.Server
	if s.Listen == "" {
		result.fail("server.listen", "", "Listen address is required")
	}
	if s.MaxUploadMB <= 0 {
		result.fail("server.max_upload_mb", fmt.Sprintf("%d", s.MaxUploadMB), "Upload limit must be positive")
	}
	if s.RequestsPerMinute < 0 {
		result.fail("server.requests_per_minute", fmt.Sprintf("%d", s.RequestsPerMinute), "Request rate cannot be negative")
	}
	if s.ShutdownTimeout < 0 {
		result.fail("server.shutdown_timeout", s.ShutdownTimeout.String(), "Shutdown timeout cannot be negative")
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
