// internal/scraper/engine.go
package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/valpere/PriceScrapexter/internal/browser"
	"github.com/valpere/PriceScrapexter/internal/config"
	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/monitoring"
	"github.com/valpere/PriceScrapexter/internal/output"
	"github.com/valpere/PriceScrapexter/internal/pipeline"
	"github.com/valpere/PriceScrapexter/internal/security"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

// EngineOptions override pieces normally built from the configuration.
type EngineOptions struct {
	// Driver replaces the driver selected by browser.driver
	Driver browser.Driver

	// Sink replaces the sink selected by sink.driver
	Sink output.Sink

	// Metrics is used instead of building a manager when metrics are enabled
	Metrics *monitoring.MetricsManager

	Logger utils.Logger
}

// Engine owns the long-lived pieces of a price run: one browser session, one
// result sink and the metrics recorder. Batches run one at a time.
type Engine struct {
	config  *config.Config
	session *browser.Session
	sink    output.Sink
	metrics *monitoring.MetricsManager
	policy  *security.URLPolicy
	retry   *errors.Service
	logger  utils.Logger

	batch     sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewScrapingEngine builds the engine without launching the browser.
func NewScrapingEngine(ctx context.Context, cfg *config.Config, opts EngineOptions) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "create engine", fmt.Errorf("config cannot be nil"))
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	driver := opts.Driver
	if driver == nil {
		var err error
		driver, err = browser.NewDriver(&cfg.Browser)
		if err != nil {
			return nil, errors.New(errors.KindConfig, "create engine", err)
		}
	}

	sink := opts.Sink
	if sink == nil {
		var err error
		sink, err = output.NewSink(ctx, cfg.Sink, logger)
		if err != nil {
			return nil, err
		}
	}

	metrics := opts.Metrics
	if metrics == nil && cfg.Metrics.Enabled {
		metrics = monitoring.NewMetricsManager(monitoring.MetricsConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableGoMetrics:      true,
			EnableProcessMetrics: true,
		})
	}

	return &Engine{
		config:  cfg,
		session: browser.NewSession(&cfg.Browser, driver, logger),
		sink:    sink,
		metrics: metrics,
		policy:  security.NewURLPolicy(cfg.Security),
		retry:   errors.NewServiceWithRetry(cfg.Retry),
		logger:  logger.WithField("component", "engine"),
	}, nil
}

// Start launches the browser. A failure is fatal: no batch can run.
func (e *Engine) Start(ctx context.Context) error {
	return e.session.Start(ctx)
}

// RunBatch processes rows and reports every outcome to notifier as it happens.
// notifier may be nil. A configured report file is written after the batch.
func (e *Engine) RunBatch(ctx context.Context, rows []pipeline.ProductRow, notifier pipeline.Notifier) (pipeline.Result, error) {
	e.batch.Lock()
	defer e.batch.Unlock()

	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Fetcher:             e.session,
		Guard:               e.policy,
		Sink:                e.sink,
		Notifier:            notifier,
		Retry:               e.retry,
		Logger:              e.logger,
		PersistUnresolvable: e.config.Sink.PersistUnresolvable,
		SinkTimeout:         e.config.Sink.Timeout,
	})

	var recorder pipeline.Recorder
	if e.metrics != nil {
		recorder = e.metrics
	}

	result, runErr := pipeline.New(processor, recorder, e.logger).Run(ctx, rows)

	if e.config.Report.File != "" {
		if err := output.WriteReport(e.config.Report.File, e.config.Report.Format, result); err != nil {
			e.logger.Errorf("report not written: %v", err)
			if runErr == nil {
				runErr = errors.New(errors.KindSink, "write report", err)
			}
		} else {
			e.logger.Infof("report written to %s", e.config.Report.File)
		}
	}

	return result, runErr
}

// Recent reads back stored records, newest first
func (e *Engine) Recent(ctx context.Context, limit int) ([]output.StoredProduct, error) {
	return e.sink.Recent(ctx, limit)
}

// Session returns the browser session
func (e *Engine) Session() *browser.Session { return e.session }

// Sink returns the result sink
func (e *Engine) Sink() output.Sink { return e.sink }

// Metrics returns the metrics manager, nil when metrics are disabled
func (e *Engine) Metrics() *monitoring.MetricsManager { return e.metrics }

// Close stops the browser, waits for a running batch to return and closes
// the sink. Safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if err := e.session.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop browser: %w", err))
		}

		e.batch.Lock()
		defer e.batch.Unlock()
		if err := e.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink: %w", err))
		}
		e.closeErr = stderrors.Join(errs...)
	})
	return e.closeErr
}

// GetStats returns statistics about the engine
func (e *Engine) GetStats() map[string]interface{} {
	s := e.session.Stats()
	return map[string]interface{}{
		"driver":            s.Driver,
		"started":           s.Started,
		"stopped":           s.Stopped,
		"pages_loaded":      s.PagesLoaded,
		"errors":            s.Errors,
		"timeouts":          s.Timeouts,
		"average_load_time": s.AverageLoadTime.String(),
		"sink":              e.config.Sink.Driver,
		"max_retries":       e.config.Retry.MaxRetries,
	}
}
