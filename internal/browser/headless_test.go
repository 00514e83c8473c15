// internal/browser/headless_test.go
package browser

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// headlessConfig points both browser drivers at a locally installed Chrome and
// skips the test when there is none.
func headlessConfig(t *testing.T, driver string) *Config {
	t.Helper()
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome or Chromium installed")
	}

	config := DefaultConfig()
	config.Driver = driver
	config.Binary = bin
	config.Headless = true
	config.UserDataDir = t.TempDir()
	config.Timeout = 3 * time.Second
	return config
}

func TestBrowserDrivers_FetchText(t *testing.T) {
	server := newShop(t)

	for _, name := range []string{DriverChromedp, DriverRod} {
		t.Run(name, func(t *testing.T) {
			config := headlessConfig(t, name)
			driver, err := NewDriver(config)
			if err != nil {
				t.Fatalf("new driver: %v", err)
			}
			session := NewSession(config, driver, nil)
			if err := session.Start(context.Background()); err != nil {
				t.Skipf("browser did not start: %v", err)
			}
			defer session.Stop()

			tests := []struct {
				name       string
				path       string
				xpath      string
				want       string
				wantReason string
			}{
				{"element text", "/item", "//span[@class='price']", "12 990 ₽", ""},
				{"windows-1251 page", "/cp1251", "//b[@id='p']", "Цена: 499 руб.", ""},
				{"hidden element", "/hidden", "//span[@class='price']", "8 490 ₽", ""},
				{"missing element", "/item", "//span[@class='old-price']", "", errors.ReasonLocatorNotFound},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := session.FetchText(context.Background(), server.URL+tt.path, tt.xpath)
					if tt.wantReason != "" {
						if errors.ReasonOf(err) != tt.wantReason {
							t.Fatalf("expected %s, got %v", tt.wantReason, err)
						}
						return
					}
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					if got != tt.want {
						t.Errorf("expected %q, got %q", tt.want, got)
					}
				})
			}
		})
	}
}

func TestBrowserDrivers_MissingBinary(t *testing.T) {
	for _, name := range []string{DriverChromedp, DriverRod} {
		t.Run(name, func(t *testing.T) {
			config := DefaultConfig()
			config.Driver = name
			config.Binary = filepath.Join(t.TempDir(), "no-such-chrome")
			config.UserDataDir = t.TempDir()

			driver, err := NewDriver(config)
			if err != nil {
				t.Fatalf("new driver: %v", err)
			}
			session := NewSession(config, driver, nil)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := session.Start(ctx); !errors.IsKind(err, errors.KindFatalStartup) {
				t.Fatalf("expected startup error, got %v", err)
			}

			_, err = session.FetchText(context.Background(), "https://a.example", "//b")
			if !errors.IsKind(err, errors.KindFetch) {
				t.Errorf("expected fetch on a failed session to be refused, got %v", err)
			}
			session.Stop()
		})
	}
}
