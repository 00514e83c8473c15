// internal/browser/chromedp.go
package browser

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// ChromeDriver implements Driver using chromedp
type ChromeDriver struct {
	config      *Config
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewChromeDriver creates a chromedp driver; nothing is launched until Start
func NewChromeDriver(config *Config) *ChromeDriver {
	if config == nil {
		config = DefaultConfig()
	}
	return &ChromeDriver{config: config}
}

// Name implements Driver
func (c *ChromeDriver) Name() string { return DriverChromedp }

// Start launches Chrome and opens the tab that every fetch reuses
func (c *ChromeDriver) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}

	if c.config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if c.config.Binary != "" {
		opts = append(opts, chromedp.ExecPath(c.config.Binary))
	}
	if c.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(c.config.UserDataDir))
	}
	if c.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.config.UserAgent))
	}
	if c.config.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(c.config.Proxy))
	}
	if c.config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	if c.config.Stealth {
		opts = append(opts, chromedp.Flag("disable-blink-features", "AutomationControlled"))
	}

	// The browser outlives Start, so its contexts hang off Background and are
	// released in Stop.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx)
	c.allocCancel = allocCancel
	c.ctx = tabCtx
	c.cancel = cancel

	tasks := []chromedp.Action{
		chromedp.EmulateViewport(int64(c.config.ViewportWidth), int64(c.config.ViewportHeight)),
	}
	if c.config.ViewportWidth > 0 && c.config.ViewportWidth < 768 {
		tasks = append(tasks, chromedp.Emulate(device.IPhone8))
	}

	// First Run on the tab context allocates the browser; it must not be a
	// derived context or the browser would die with it.
	if err := chromedp.Run(tabCtx, tasks...); err != nil {
		return fmt.Errorf("failed to launch chrome: %w", err)
	}
	return nil
}

// FetchText implements Driver
func (c *ChromeDriver) FetchText(ctx context.Context, url, xpath string) (string, error) {
	if c.ctx == nil {
		return "", errors.Fetch(errors.ReasonNotStarted, url, xpath, fmt.Errorf("chrome not started"))
	}

	runCtx, cancel := c.runContext(ctx)
	defer cancel()

	if err := c.navigate(runCtx, url); err != nil {
		reason := errors.ReasonNavigation
		if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
			reason = errors.ReasonTimeout
		}
		return "", errors.Fetch(reason, url, xpath, err)
	}

	// textContent of any node in the DOM, hidden ones included, matching what
	// the static driver reads.
	var text string
	if err := chromedp.Run(runCtx, chromedp.TextContent(xpath, &text, chromedp.BySearch, chromedp.NodeReady)); err != nil {
		// Queries poll until the node appears, so an expired deadline here
		// means the locator never matched.
		if runCtx.Err() != nil {
			return "", errors.Fetch(errors.ReasonLocatorNotFound, url, xpath, err)
		}
		return "", errors.Fetch(errors.ReasonNavigation, url, xpath, err)
	}
	return text, nil
}

// runContext derives a context from the tab that carries ctx's deadline and
// cancellation.
func (c *ChromeDriver) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(c.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(c.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// navigate returns once the document fires DOMContentLoaded rather than waiting
// for the full load event.
func (c *ChromeDriver) navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	domReady := make(chan struct{}, 1)
	chromedp.ListenTarget(navCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			select {
			case domReady <- struct{}{}:
			default:
			}
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(navCtx, chromedp.Navigate(url))
	}()

	select {
	case err := <-done:
		return err
	case <-domReady:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the tab and the browser process
func (c *ChromeDriver) Stop() error {
	var err error
	if c.ctx != nil {
		err = chromedp.Cancel(c.ctx)
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	if stderrors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}
