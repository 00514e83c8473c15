// pkg/api/api.go

// Package api is the public face of PriceScrapexter: an in-process Extractor
// for Go programs and a Client for the HTTP server.
package api

import (
	"context"

	"github.com/valpere/PriceScrapexter/internal/ingest"
	"github.com/valpere/PriceScrapexter/internal/pipeline"
	"github.com/valpere/PriceScrapexter/internal/scraper"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

// Extractor owns a started browser session and sink. Batches run one at a time.
type Extractor struct {
	engine *scraper.Engine
}

// NewExtractor builds the engine from cfg and launches the browser. A nil
// config means DefaultConfig.
func NewExtractor(ctx context.Context, cfg *Config) (*Extractor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	engine, err := scraper.NewScrapingEngine(ctx, cfg, scraper.EngineOptions{Logger: logger})
	if err != nil {
		return nil, err
	}
	if err := engine.Start(ctx); err != nil {
		engine.Close()
		return nil, err
	}
	return &Extractor{engine: engine}, nil
}

// Extract processes rows. onNotice, if not nil, receives every row's notice
// as soon as the row is done.
func (x *Extractor) Extract(ctx context.Context, rows []ProductRow, onNotice func(Notice)) (Result, error) {
	var notifier pipeline.Notifier
	if onNotice != nil {
		notifier = pipeline.NotifierFunc(func(_ context.Context, n pipeline.Notice) { onNotice(n) })
	}
	return x.engine.RunBatch(ctx, rows, notifier)
}

// ExtractFile loads a csv or Excel file and processes its rows
func (x *Extractor) ExtractFile(ctx context.Context, path string, opts IngestOptions, onNotice func(Notice)) (Result, error) {
	rows, err := ingest.LoadFile(path, opts)
	if err != nil {
		return Result{}, err
	}
	return x.Extract(ctx, rows, onNotice)
}

// Close stops the browser and closes the sink
func (x *Extractor) Close() error {
	return x.engine.Close()
}
