package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/seocheck/internal/engine"
	"github.com/nao1215/seocheck/internal/report"
)

// errNoURLs is returned when analyze is called without a URL.
var errNoURLs = errors.New("no URLs provided (specify one or more URLs as arguments)")

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [url]...",
		Short: "Analyze a fixed list of pages without crawling",
		Long: `Analyze builds a report for exactly the given URLs. No links are followed.

By default every URL is fetched. With --bodies-dir the page bodies are read
from files instead: the files of the directory, in name order, belong to the
URLs in argument order. The number of files must match the number of URLs.

Examples:
  # Analyze two pages of a site
  seocheck analyze https://example.com/ https://example.com/about

  # Analyze saved pages
  seocheck analyze --bodies-dir ./pages https://example.com/ https://example.com/about

  # Report under a different site name
  seocheck analyze --site https://example.com https://example.com/blog/post-1`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().String("site", "",
		"Site the report belongs to (default: the first URL)")
	cmd.Flags().String("bodies-dir", "",
		"Directory with one saved body per URL, matched in file name order")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Timeout for each request (default: 30s)")
	cmd.Flags().Duration("check-timeout", 0,
		"Timeout for each sitemap, robots and TLS check (default: 15s)")
	addReportFlags(cmd)

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, urls []string) error {
	if len(urls) == 0 {
		return errNoURLs
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if timeout, err := cmd.Flags().GetDuration("timeout"); err != nil {
		return err
	} else if timeout > 0 {
		cfg.Timeout = timeout
	}
	if checkTimeout, err := cmd.Flags().GetDuration("check-timeout"); err != nil {
		return err
	} else if checkTimeout > 0 {
		cfg.CheckTimeout = checkTimeout
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	site, err := cmd.Flags().GetString("site")
	if err != nil {
		return err
	}
	if site == "" {
		site = urls[0]
	}
	bodiesDir, err := cmd.Flags().GetString("bodies-dir")
	if err != nil {
		return err
	}
	bodies, err := loadBodies(bodiesDir)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(site, engine.WithConfig(cfg), engine.WithLogger(logger))
	if err != nil {
		return err
	}

	out := eng.Analyze(ctx, urls, bodies)
	if !out.OK {
		return fmt.Errorf("analysis failed: %w", out.Err())
	}

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	if err := saveReport(ctx, db, out.Value, nil, logger); err != nil {
		logger.Error("failed to save report", "site", out.Value.Site, "error", err)
	}

	output, closeOutput, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	writer, err := report.NewWriter(cfg.ReportFormat, output, cfg.Verbose)
	if err != nil {
		_ = closeOutput()
		return err
	}
	if _, err := writer.Write(out.Value); err != nil {
		_ = closeOutput()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeOutput()
}

// loadBodies reads every regular file of dir in name order.
// An empty dir means the pages are fetched, so it returns nil.
func loadBodies(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read bodies directory: %w", err)
	}

	bodies := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name())) //nolint:gosec // User-provided directory is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to read body %s: %w", entry.Name(), err)
		}
		bodies = append(bodies, string(data))
	}
	return bodies, nil
}
