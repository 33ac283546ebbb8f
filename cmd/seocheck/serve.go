package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nao1215/seocheck/internal/engine"
	"github.com/nao1215/seocheck/internal/metrics"
	"github.com/nao1215/seocheck/internal/server"
)

// shutdownTimeout bounds the graceful shutdown of the API server.
const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve runs an HTTP API around the scanner.

Routes:
  POST /v1/scans                        crawl a site and return its report
  POST /v1/analyze                      analyze a list of pages
  GET  /v1/sites/{site}/reports/latest  latest stored report of a site
  GET  /healthz                         liveness probe
  GET  /metrics                         Prometheus metrics

Examples:
  # Listen on port 9000
  seocheck serve --addr :9000

  # Do not store reports
  seocheck serve --no-db`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", server.DefaultAddr, "Listen address")
	cmd.Flags().Duration("request-timeout", 5*time.Minute,
		"Upper bound of a single request, including synchronous scans")
	cmd.Flags().Bool("no-db", false, "Do not store reports in the history database")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noDB
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	requestTimeout, err := cmd.Flags().GetDuration("request-timeout")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts := []server.Option{
		server.WithAddr(addr),
		server.WithLogger(logger),
		server.WithMetrics(m, reg),
		server.WithRequestTimeout(requestTimeout),
		server.WithEngineOptions(
			engine.WithConfig(cfg),
			engine.WithLogger(logger),
			engine.WithMetrics(m),
		),
	}
	if db != nil {
		defer db.Close()
		opts = append(opts, server.WithHistory(db))
	}
	srv := server.New(opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("received shutdown signal, stopping api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	return nil
}
