// cmd/server/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/PriceScrapexter/internal/config"
	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/monitoring"
	"github.com/valpere/PriceScrapexter/internal/scraper"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

var version = "dev"

func main() {
	var configFile string

	root := &cobra.Command{
		Use:           "pricescrapexter-server",
		Short:         "HTTP front end: upload a rows file, get prices back",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				cfg *config.Config
				err error
			)
			if configFile == "" {
				if err := config.LoadDotEnv("."); err != nil {
					return err
				}
				cfg, err = config.LoadFromBytes(nil)
			} else {
				cfg, err = config.LoadFromFile(configFile)
			}
			if err != nil {
				return err
			}

			logger, err := utils.NewLogger(cfg.Log)
			if err != nil {
				return errors.New(errors.KindConfig, "logger", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, configFile, logger)
		},
	}
	root.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML); reloaded on change")

	if err := root.Execute(); err != nil {
		errorService := errors.NewService()
		fmt.Fprint(os.Stderr, errorService.FormatErrorForCLI(err))
		os.Exit(errorService.GetExitCode(err))
	}
}

// run listens on the configured address and serves until ctx is done
func run(ctx context.Context, cfg *config.Config, configFile string, logger utils.Logger) error {
	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Listen, err)
	}
	return serve(ctx, cfg, configFile, logger, ln)
}

// serve starts the browser and handles requests on ln until ctx is done. Request
// contexts derive from ctx, so a batch in flight at shutdown stops before its
// next row and is answered as partial.
func serve(ctx context.Context, cfg *config.Config, configFile string, logger utils.Logger, ln net.Listener) error {
	engine, err := scraper.NewScrapingEngine(ctx, cfg, scraper.EngineOptions{Logger: logger})
	if err != nil {
		ln.Close()
		return err
	}
	defer engine.Close()

	if err := engine.Start(ctx); err != nil {
		ln.Close()
		return err
	}

	srv := newServer(engine, cfg, logger)

	if configFile != "" {
		watcher, err := config.NewWatcher(configFile, logger)
		if err != nil {
			logger.Warnf("config reload disabled: %v", err)
		} else {
			defer watcher.Close()
			watcher.OnChange(srv.applyConfig)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		logger.Infof("listening on %s", ln.Addr())
		if err := httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return engine.Close()
	})

	return g.Wait()
}

// healthManager registers the checks served on /health
func healthManager(engine *scraper.Engine) *monitoring.HealthManager {
	hm := monitoring.NewHealthManager(version)
	hm.RegisterCheck(monitoring.BrowserHealthCheck(engine.Session().Stats))
	hm.RegisterCheck(monitoring.PingHealthCheck("sink", false, engine.Sink().Ping))
	hm.RegisterCheck(monitoring.GoroutineHealthCheck(10000))
	return hm
}
