// cmd/pricescrapexter/main.go
package main

import (
	"fmt"
	"os"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	root, opts := newRootCmd()
	if err := root.Execute(); err != nil {
		errorService := errors.NewService().WithVerbose(opts.verbose)
		fmt.Fprint(os.Stderr, errorService.FormatErrorForCLI(err))
		os.Exit(errorService.GetExitCode(err))
	}
}
