// cmd/pricescrapexter/cmd_run.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/ingest"
	"github.com/valpere/PriceScrapexter/internal/output"
	"github.com/valpere/PriceScrapexter/internal/pipeline"
	"github.com/valpere/PriceScrapexter/internal/scraper"
)

type runOptions struct {
	sheet    string
	encoding string
	report   string
	quiet    bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <rows.csv|rows.xlsx>",
		Short: "Extract prices for every row of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, root, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.sheet, "sheet", "", "Workbook sheet to read (default: first sheet)")
	f.StringVar(&opts.encoding, "encoding", "", "CSV charset: utf-8, windows-1251, koi8-r, cp866")
	f.StringVarP(&opts.report, "report", "o", "", "Write a report file (.xlsx, .json or .yaml)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print a notice per row")

	return cmd
}

func runBatch(cmd *cobra.Command, root *rootOptions, opts *runOptions, rowsFile string) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if opts.sheet != "" {
		cfg.Ingest.Sheet = opts.sheet
	}
	if opts.encoding != "" {
		cfg.Ingest.Encoding = opts.encoding
	}
	if opts.report != "" {
		format, err := output.InferFormat(opts.report)
		if err != nil {
			return errors.New(errors.KindConfig, "report", err)
		}
		cfg.Report.File = opts.report
		cfg.Report.Format = format
	}

	logger, flush, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return errors.New(errors.KindConfig, "logger", err)
	}
	defer flush()

	if !ingest.IsSupported(rowsFile) {
		return errors.New(errors.KindInput, "load "+rowsFile, ingest.ErrUnsupportedFormat)
	}
	rows, err := ingest.LoadFile(rowsFile, cfg.Ingest)
	if err != nil {
		return err
	}
	logger.Infof("loaded %d rows from %s", len(rows), rowsFile)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := scraper.NewScrapingEngine(ctx, cfg, scraper.EngineOptions{Logger: logger})
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Start(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var notifier pipeline.Notifier
	if !opts.quiet {
		notifier = pipeline.NotifierFunc(func(ctx context.Context, n pipeline.Notice) {
			fmt.Fprintf(out, "%s\n\n", n)
		})
	}

	result, runErr := engine.RunBatch(ctx, rows, notifier)

	for _, line := range output.FormatSummary(result.Summary) {
		fmt.Fprintln(out, line)
	}
	if cfg.Report.File != "" && runErr == nil {
		fmt.Fprintf(out, "Report saved to %s\n", cfg.Report.File)
	}

	return runErr
}
