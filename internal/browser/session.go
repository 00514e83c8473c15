// internal/browser/session.go
package browser

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

// Session owns one browser page for the lifetime of the process. Every FetchText
// takes exclusive access to the page for its whole duration.
type Session struct {
	config  *Config
	driver  Driver
	logger  utils.Logger
	limiter *rate.Limiter

	// page is a one-slot semaphore guarding the driver's page
	page chan struct{}

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopOnce sync.Once
	stopErr  error
	stats    Stats
}

// NewSession wraps driver without launching anything.
func NewSession(config *Config, driver Driver, logger utils.Logger) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	s := &Session{
		config: config,
		driver: driver,
		logger: logger.WithField("component", "browser"),
		page:   make(chan struct{}, 1),
		stats:  Stats{Driver: driver.Name()},
	}
	if config.MinInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(config.MinInterval), 1)
	}
	return s
}

// Start launches the browser. A failure is fatal for the batch; anything the
// driver managed to acquire is released before returning.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.New(errors.KindFatalStartup, "start browser", fmt.Errorf("session already stopped"))
	}
	if s.started {
		return errors.New(errors.KindFatalStartup, "start browser", fmt.Errorf("session already started"))
	}

	if err := s.driver.Start(ctx); err != nil {
		if stopErr := s.driver.Stop(); stopErr != nil {
			s.logger.Warnf("cleanup after failed start: %v", stopErr)
		}
		return errors.New(errors.KindFatalStartup, "start "+s.driver.Name(), err)
	}

	s.started = true
	s.stats.Started = true
	s.logger.Infof("browser started (driver=%s headless=%t)", s.driver.Name(), s.config.Headless)
	return nil
}

// FetchText navigates the shared page and returns the text at xpath.
// All failures are *errors.Error values of kind fetch.
func (s *Session) FetchText(ctx context.Context, url, xpath string) (string, error) {
	select {
	case s.page <- struct{}{}:
	case <-ctx.Done():
		return "", errors.Fetch(errors.ReasonTimeout, url, xpath, ctx.Err())
	}
	defer func() { <-s.page }()

	if err := s.ready(); err != nil {
		return "", errors.Fetch(errorsReason(err), url, xpath, err)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", errors.Fetch(errors.ReasonTimeout, url, xpath, err)
		}
	}

	fetchCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.driver.FetchText(fetchCtx, url, xpath)
	elapsed := time.Since(start)

	if err != nil {
		err = classify(fetchCtx, url, xpath, err)
		s.record(elapsed, err)
		s.logger.WithFields(map[string]interface{}{
			"url":     url,
			"xpath":   xpath,
			"elapsed": elapsed.String(),
		}).Debugf("fetch failed: %v", err)
		return "", err
	}

	s.record(elapsed, nil)
	return strings.TrimSpace(text), nil
}

// Stop releases the page and the browser. It runs the driver's Stop at most once
// and may be called from any goroutine, including while a fetch is in flight.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.stats.Stopped = true
		s.mu.Unlock()

		s.stopErr = s.driver.Stop()
		if s.stopErr != nil {
			s.logger.Warnf("browser stop: %v", s.stopErr)
			return
		}
		s.logger.Info("browser stopped")
	})
	return s.stopErr
}

// Stats returns a snapshot of the session statistics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Driver returns the driver name.
func (s *Session) Driver() string {
	return s.driver.Name()
}

func (s *Session) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopped:
		return errSessionStopped
	case !s.started:
		return errSessionNotStarted
	}
	return nil
}

func (s *Session) record(elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.stats.Errors++
		if errors.ReasonOf(err) == errors.ReasonTimeout {
			s.stats.Timeouts++
		}
		return
	}

	s.stats.PagesLoaded++
	if s.stats.PagesLoaded == 1 {
		s.stats.AverageLoadTime = elapsed
	} else {
		n := time.Duration(s.stats.PagesLoaded)
		s.stats.AverageLoadTime += (elapsed - s.stats.AverageLoadTime) / n
	}
}

var (
	errSessionStopped    = stderrors.New("browser session stopped")
	errSessionNotStarted = stderrors.New("browser session not started; call Start first")
)

func errorsReason(err error) string {
	if err == errSessionStopped {
		return errors.ReasonStopped
	}
	return errors.ReasonNotStarted
}

// classify makes sure a driver error is a fetch *errors.Error. Driver errors that
// are already classified keep their reason unless the deadline ran out during
// navigation.
func classify(ctx context.Context, url, xpath string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Kind == errors.KindFetch {
		if e.URL == "" {
			e.URL = url
		}
		if e.Locator == "" {
			e.Locator = xpath
		}
		return e
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Fetch(errors.ReasonTimeout, url, xpath, err)
	}
	return errors.Fetch(errors.ReasonNavigation, url, xpath, err)
}
