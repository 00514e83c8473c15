// cmd/pricescrapexter/root.go
package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/valpere/PriceScrapexter/internal/config"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

// rootOptions holds the persistent flags
type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "pricescrapexter",
		Short: "Extract product prices from shop pages with a headless browser",
		Long: "PriceScrapexter reads a csv or Excel file of products (title, url, xpath),\n" +
			"opens every url in a headless browser, extracts the price at the xpath,\n" +
			"stores each row and reports the average price per site.",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.configFile, "config", "c", "", "Configuration file (YAML); defaults apply when omitted")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Show technical error details and debug logs")

	root.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newTemplateCmd(),
		newHistoryCmd(opts),
		newVersionCmd(),
	)

	return root, opts
}

// loadConfig reads --config, or the defaults plus ./.env when no file is given
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile == "" {
		if err := config.LoadDotEnv("."); err != nil {
			return nil, err
		}
		cfg, err = config.LoadFromBytes(nil)
	} else {
		cfg, err = config.LoadFromFile(o.configFile)
	}
	if err != nil {
		return nil, err
	}

	if o.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the zap-backed logger and a flush func for defer
func newLogger(cfg *config.Config, w io.Writer) (utils.Logger, func(), error) {
	logger, err := utils.NewLoggerWithWriter(cfg.Log, w)
	if err != nil {
		return nil, nil, err
	}
	flush := func() {
		if s, ok := logger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}
	return logger, flush, nil
}
