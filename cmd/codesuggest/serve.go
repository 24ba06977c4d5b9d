package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/gyeh/codesuggest/internal/catalog"
	"github.com/gyeh/codesuggest/internal/config"
	"github.com/gyeh/codesuggest/internal/exitcode"
	"github.com/gyeh/codesuggest/internal/httpapi"
)

var (
	serveHost  string
	servePort  int
	serveWatch bool
	serveAudit string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the suggestion API over HTTP",
	RunE:  runServe,
}

func init() {
	addCatalogFlags(serveCmd)
	f := serveCmd.Flags()
	f.StringVar(&serveHost, "host", "", "Listen host (default from config, localhost)")
	f.IntVar(&servePort, "port", 0, "Listen port (default from config, 8080)")
	f.BoolVar(&serveWatch, "watch", false, "Reload the catalog when its files change")
	f.StringVar(&serveAudit, "audit", "", "Audit sink: none, log, postgres or sqlite")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := setup(func(c *config.Config) {
		if serveAudit != "" {
			c.Audit.Sink = serveAudit
		}
		if serveHost != "" {
			c.Server.Host = serveHost
		}
		if servePort != 0 {
			c.Server.Port = servePort
		}
		if serveWatch {
			c.Catalog.Watch = true
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := buildPipeline(ctx, log, reg, cfg.Audit.Sink)

	if cfg.Catalog.Watch && cfg.Catalog.Source == config.SourceFile {
		w, err := catalog.NewWatcher(p.store, []string{cfg.Catalog.ItemsPath, cfg.Catalog.RulesPath}, cfg.Catalog.Debounce, log)
		if err != nil {
			log.Error().Err(err).Msg("catalog watcher failed to start")
			os.Exit(exitcode.ServeError)
		}
		go w.Run(ctx)
	}

	srv, err := httpapi.NewServer(p.service, log, httpapi.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		Gatherer: reg,
	})
	if err != nil {
		log.Error().Err(err).Msg("http server setup failed")
		os.Exit(exitcode.ServeError)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			p.close(context.Background(), log)
			os.Exit(exitcode.ServeError)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}
	p.close(shutdownCtx, log)
	return nil
}
