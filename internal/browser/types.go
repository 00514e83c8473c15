// internal/browser/types.go
package browser

import (
	"context"
	"fmt"
	"time"
)

// Driver names accepted in Config.Driver.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
	DriverStatic   = "static"
)

// Config defines browser automation configuration
type Config struct {
	Driver         string        `yaml:"driver" json:"driver"`
	Headless       bool          `yaml:"headless" json:"headless"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	Binary         string        `yaml:"binary,omitempty" json:"binary,omitempty"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	MinInterval    time.Duration `yaml:"min_interval,omitempty" json:"min_interval,omitempty"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Proxy          string        `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	Stealth        bool          `yaml:"stealth" json:"stealth"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
}

// DefaultConfig returns default browser configuration
func DefaultConfig() *Config {
	return &Config{
		Driver:         DriverChromedp,
		Headless:       true,
		UserDataDir:    "./browser_data",
		Timeout:        30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		DisableImages:  true, // Faster loading
	}
}

// Driver is a headless-browser capability holding exactly one page.
// Implementations are not safe for concurrent FetchText calls; Session serializes them.
type Driver interface {
	// Name identifies the driver in logs and health output
	Name() string

	// Start launches the browser and opens its single page
	Start(ctx context.Context) error

	// FetchText navigates the page to url, waits for DOMContentLoaded and
	// returns the text of the first element matching xpath
	FetchText(ctx context.Context, url, xpath string) (string, error)

	// Stop releases whatever Start acquired; safe after a partial Start
	Stop() error
}

// Stats contains browser automation statistics
type Stats struct {
	Driver          string        `json:"driver"`
	Started         bool          `json:"started"`
	Stopped         bool          `json:"stopped"`
	PagesLoaded     int           `json:"pages_loaded"`
	AverageLoadTime time.Duration `json:"average_load_time"`
	Errors          int           `json:"errors"`
	Timeouts        int           `json:"timeouts_occurred"`
}

// NewDriver returns the driver selected by cfg.Driver.
func NewDriver(cfg *Config) (Driver, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	switch cfg.Driver {
	case "", DriverChromedp:
		return NewChromeDriver(cfg), nil
	case DriverRod:
		return NewRodDriver(cfg), nil
	case DriverStatic:
		return NewStaticDriver(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported browser driver: %s", cfg.Driver)
	}
}
