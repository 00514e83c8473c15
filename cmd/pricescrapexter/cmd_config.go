// cmd/pricescrapexter/cmd_config.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/PriceScrapexter/internal/config"
	"github.com/valpere/PriceScrapexter/internal/errors"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if root.configFile == "" {
				return errors.New(errors.KindConfig, "validate", fmt.Errorf("--config is required"))
			}

			cfg, err := config.LoadFromFile(root.configFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result := cfg.ValidateWithDetails()
			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "⚠ %s\n", warning)
			}
			if root.verbose {
				fmt.Fprintf(out, "Configuration details:\n")
				fmt.Fprintf(out, "  Browser driver: %s (headless=%t, timeout=%s)\n", cfg.Browser.Driver, cfg.Browser.Headless, cfg.Browser.Timeout)
				fmt.Fprintf(out, "  Sink: %s\n", cfg.Sink.Driver)
				fmt.Fprintf(out, "  Retries: %d\n", cfg.Retry.MaxRetries)
			}
			fmt.Fprintf(out, "✓ Configuration file '%s' is valid\n", root.configFile)
			return nil
		},
	}
}

func newTemplateCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print a configuration template with every default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GenerateTemplate()
			if err != nil {
				return err
			}
			if outputFile == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outputFile, data, 0644); err != nil {
				return fmt.Errorf("failed to write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the template to a file instead of stdout")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PriceScrapexter %s\n", version)
			fmt.Fprintf(out, "Build time: %s\n", buildTime)
			fmt.Fprintf(out, "Git commit: %s\n", gitCommit)
		},
	}
}
