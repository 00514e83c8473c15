// internal/browser/rod.go
package browser

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// RodDriver implements Driver using go-rod
type RodDriver struct {
	config   *Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewRodDriver creates a rod driver; nothing is launched until Start
func NewRodDriver(config *Config) *RodDriver {
	if config == nil {
		config = DefaultConfig()
	}
	return &RodDriver{config: config}
}

// Name implements Driver
func (r *RodDriver) Name() string { return DriverRod }

// Start launches the browser process, connects over CDP and opens the page
func (r *RodDriver) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := launcher.New().
		Headless(r.config.Headless).
		NoSandbox(true)

	if r.config.Binary != "" {
		l = l.Bin(r.config.Binary)
	}
	if r.config.UserDataDir != "" {
		l = l.UserDataDir(r.config.UserDataDir)
	}
	if r.config.Proxy != "" {
		l = l.Proxy(r.config.Proxy)
	}
	if r.config.DisableImages {
		l.Set(flags.Flag("blink-settings"), "imagesEnabled=false")
	}
	if r.config.Stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
	}
	r.launcher = l

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	r.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	r.page = page

	if r.config.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			return fmt.Errorf("stealth injection failed: %w", err)
		}
	}
	if r.config.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.config.UserAgent}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	if r.config.ViewportWidth > 0 && r.config.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             r.config.ViewportWidth,
			Height:            r.config.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	return nil
}

// FetchText implements Driver
func (r *RodDriver) FetchText(ctx context.Context, url, xpath string) (string, error) {
	if r.page == nil {
		return "", errors.Fetch(errors.ReasonNotStarted, url, xpath, fmt.Errorf("rod page not open"))
	}

	p := r.page.Context(ctx)

	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return "", errors.Fetch(r.navigationReason(ctx), url, xpath, err)
	}
	wait()
	if ctx.Err() != nil {
		return "", errors.Fetch(errors.ReasonTimeout, url, xpath, ctx.Err())
	}

	// ElementX retries until the node appears or ctx expires.
	el, err := p.ElementX(xpath)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.Fetch(errors.ReasonLocatorNotFound, url, xpath, err)
		}
		return "", errors.Fetch(errors.ReasonNavigation, url, xpath, err)
	}

	text, err := el.Text()
	if err != nil {
		return "", errors.Fetch(errors.ReasonLocatorNotFound, url, xpath, err)
	}
	return text, nil
}

func (r *RodDriver) navigationReason(ctx context.Context) string {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.ReasonTimeout
	}
	return errors.ReasonNavigation
}

// Stop closes the page and the browser, then kills the process if it lingers
func (r *RodDriver) Stop() error {
	var errs []error
	if r.page != nil {
		if err := r.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if r.launcher != nil {
		r.launcher.Kill()
	}
	return stderrors.Join(errs...)
}
