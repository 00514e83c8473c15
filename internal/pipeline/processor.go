// internal/pipeline/processor.go
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/price"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

// ProcessorConfig wires a Processor. Fetcher is required; the rest are optional.
type ProcessorConfig struct {
	Fetcher  Fetcher
	Guard    URLGuard
	Sink     Sink
	Notifier Notifier
	Retry    *errors.Service
	Logger   utils.Logger

	// PersistUnresolvable also stores rows whose URL has no host.
	PersistUnresolvable bool
	SinkTimeout         time.Duration
}

// Processor turns one row into one Outcome. It never returns an error and
// never lets a collaborator's panic escape.
type Processor struct {
	fetcher  Fetcher
	guard    URLGuard
	sink     Sink
	notifier Notifier
	retry    *errors.Service
	logger   utils.Logger

	persistUnresolvable bool
	sinkTimeout         time.Duration
}

// NewProcessor creates a row processor
func NewProcessor(cfg ProcessorConfig) *Processor {
	logger := cfg.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Processor{
		fetcher:             cfg.Fetcher,
		guard:               cfg.Guard,
		sink:                cfg.Sink,
		notifier:            cfg.Notifier,
		retry:               cfg.Retry,
		logger:              logger.WithField("component", "processor"),
		persistUnresolvable: cfg.PersistUnresolvable,
		sinkTimeout:         cfg.SinkTimeout,
	}
}

// Process extracts, parses, stores and announces the price of row.
func (p *Processor) Process(ctx context.Context, row ProductRow) (out Outcome) {
	start := time.Now()
	out = Outcome{Row: row}
	defer func() { out.Duration = time.Since(start) }()

	log := p.logger.WithFields(map[string]interface{}{
		"title": row.Title,
		"url":   row.URL,
		"xpath": row.XPath,
	})

	domain, err := ExtractDomain(row.URL)
	if err != nil {
		out.Failure = failureFrom(err)
		log.Warnf("skipping row: %v", err)
		if p.persistUnresolvable {
			p.save(ctx, row, nil, &out)
		}
		p.notify(ctx, Notice{Kind: NoticeFailure, Row: row})
		return out
	}
	out.Domain = domain
	log = log.WithField("domain", domain)

	value, err := p.extract(ctx, row)
	if err != nil {
		out.Failure = failureFrom(err)
		log.Errorf("failed to extract price: %v", err)
		p.save(ctx, row, nil, &out)
		p.notify(ctx, Notice{Kind: NoticeFailure, Row: row})
		return out
	}

	out.Price = &value
	log.WithField("price", value).Info("price extracted")
	p.save(ctx, row, &value, &out)
	p.notify(ctx, Notice{Kind: NoticePrice, Row: row, Price: &value})
	return out
}

// ExtractDomain returns the network location of rawURL, port included and
// userinfo dropped.
func ExtractDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.New(errors.KindDomainExtraction, "extract domain", err)
	}
	if u.Host == "" {
		return "", errors.New(errors.KindDomainExtraction, "extract domain", fmt.Errorf("no host in %q", rawURL))
	}
	return u.Host, nil
}

func (p *Processor) extract(ctx context.Context, row ProductRow) (float64, error) {
	if p.guard != nil {
		if err := p.guard.Check(ctx, row.URL); err != nil {
			return 0, err
		}
	}

	var text string
	fetch := func() error {
		return safely(func() error {
			var err error
			text, err = p.fetcher.FetchText(ctx, row.URL, row.XPath)
			return err
		}, func(r interface{}) error {
			return errors.Fetch(errors.ReasonPanic, row.URL, row.XPath, fmt.Errorf("panic: %v", r))
		})
	}

	var err error
	if p.retry != nil {
		err = p.retry.ExecuteWithRetry(ctx, fetch, "fetch "+row.URL)
	} else {
		err = fetch()
	}
	if err != nil {
		if errors.KindOf(err) == "" {
			err = &errors.Error{Kind: errors.KindFetch, Op: "fetch text", URL: row.URL, Locator: row.XPath, Err: err}
		}
		return 0, err
	}

	return price.Parse(text)
}

func (p *Processor) save(ctx context.Context, row ProductRow, value *float64, out *Outcome) {
	if p.sink == nil {
		return
	}

	// A finished row is stored even if the batch is being cancelled.
	saveCtx := context.WithoutCancel(ctx)
	if p.sinkTimeout > 0 {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(saveCtx, p.sinkTimeout)
		defer cancel()
	}

	rec := Record{Title: row.Title, URL: row.URL, XPath: row.XPath, Price: value}
	err := safely(func() error {
		return p.sink.Save(saveCtx, rec)
	}, func(r interface{}) error {
		return errors.New(errors.KindSink, "save", fmt.Errorf("panic: %v", r))
	})
	if err != nil {
		out.SinkErr = err.Error()
		p.logger.WithField("url", row.URL).Errorf("failed to save result: %v", err)
	}
}

func (p *Processor) notify(ctx context.Context, n Notice) {
	if p.notifier == nil {
		return
	}
	err := safely(func() error {
		p.notifier.Notify(ctx, n)
		return nil
	}, func(r interface{}) error {
		return fmt.Errorf("notifier panic: %v", r)
	})
	if err != nil {
		p.logger.Warn(err.Error())
	}
}

// safely runs fn and converts a panic into an error via onPanic.
func safely(fn func() error, onPanic func(r interface{}) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = onPanic(r)
		}
	}()
	return fn()
}

func failureFrom(err error) *Failure {
	kind := errors.KindOf(err)
	if kind == "" {
		kind = errors.KindFetch
	}
	return &Failure{
		Kind:    kind,
		Reason:  errors.ReasonOf(err),
		Message: err.Error(),
	}
}
