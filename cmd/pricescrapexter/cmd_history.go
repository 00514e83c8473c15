// cmd/pricescrapexter/cmd_history.go
package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/output"
	"github.com/valpere/PriceScrapexter/internal/pipeline"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recently stored rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New(errors.KindConfig, "history", fmt.Errorf("--limit must be positive"))
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			logger, flush, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return errors.New(errors.KindConfig, "logger", err)
			}
			defer flush()

			sink, err := output.NewSink(cmd.Context(), cfg.Sink, logger)
			if err != nil {
				return err
			}
			defer sink.Close()

			products, err := sink.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(products) == 0 {
				fmt.Fprintln(out, "No stored rows.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tPRICE\tTITLE\tURL")
			for _, p := range products {
				price := "-"
				if p.Price != nil {
					price = pipeline.FormatPrice(*p.Price)
				}
				created := ""
				if !p.CreatedAt.IsZero() {
					created = p.CreatedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, created, price, p.Title, p.URL)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows to show")
	return cmd
}
