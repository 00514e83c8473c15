// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"time"

	"github.com/valpere/PriceScrapexter/internal/utils"
)

// Result is everything a batch produced.
type Result struct {
	Outcomes []Outcome `yaml:"outcomes" json:"outcomes"`
	Summary  Summary   `yaml:"summary" json:"summary"`
}

// Pipeline runs a batch of rows through a Processor strictly one at a time.
type Pipeline struct {
	processor *Processor
	recorder  Recorder
	logger    utils.Logger
}

// New creates a pipeline. recorder may be nil.
func New(processor *Processor, recorder Recorder, logger utils.Logger) *Pipeline {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Pipeline{
		processor: processor,
		recorder:  recorder,
		logger:    logger.WithField("component", "pipeline"),
	}
}

// Run processes rows in input order. Row failures never abort the batch; the only
// error returned is ctx's, together with the result of the rows already done.
func (p *Pipeline) Run(ctx context.Context, rows []ProductRow) (Result, error) {
	start := time.Now()
	aggregator := NewAggregator()
	outcomes := make([]Outcome, 0, len(rows))

	p.logger.Infof("processing %d rows", len(rows))

	var runErr error
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			p.logger.Warnf("batch cancelled after %d of %d rows: %v", i, len(rows), err)
			runErr = err
			break
		}

		outcome := p.processor.Process(ctx, row)
		outcomes = append(outcomes, outcome)
		aggregator.Observe(outcome)
		if p.recorder != nil {
			p.recorder.RecordOutcome(outcome)
		}
	}

	summary := aggregator.Summarize()
	if p.recorder != nil {
		p.recorder.RecordSummary(summary)
	}

	p.logger.WithFields(map[string]interface{}{
		"rows":      summary.TotalRows,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"domains":   len(summary.Domains),
		"elapsed":   time.Since(start).String(),
	}).Info("batch finished")

	return Result{Outcomes: outcomes, Summary: summary}, runErr
}
