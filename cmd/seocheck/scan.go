package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/engine"
	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/model"
	"github.com/nao1215/seocheck/internal/report"
)

// errNoTargets is returned when scan is called without a URL.
var errNoTargets = errors.New("no targets provided (specify one or more URLs as arguments)")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "Crawl a website and report SEO problems",
		Long: `Scan crawls a website starting at the given URL and analyzes every page it finds.

The report covers:
- Page findings (missing or duplicate titles, missing descriptions, mixed content)
- sitemap.xml and robots.txt presence
- TLS grade of every address the host resolves to

Examples:
  # Scan a site with the default depth
  seocheck scan example.com

  # Follow links three levels deep, at most 100 pages
  seocheck scan -d 3 -p 100 https://example.com

  # Scan several sites, two at a time, write a Markdown report to a file
  seocheck scan -b 2 -f markdown -o report.md example.com example.org

  # Keep crawl errors in a CSV file
  seocheck scan --errors-csv errors.csv example.com

Configuration file (.seocheck.yaml) example:
  defaults:
    depth: 2
  sites:
    www.example.com:
      userAgent: "MyBot/1.0"
      headers:
        Authorization: "Bearer token"
      maxPages: 50`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link depth followed from the seed URL")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl per site (0 means no limit)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("check-timeout", config.DefaultCheckTimeout,
		"Timeout for each sitemap, robots and TLS check")
	cmd.Flags().Int("concurrency", config.DefaultMaxConcurrency,
		"Number of concurrent requests")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between two crawler requests")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Bool("ignore-robots", false,
		"Crawl URLs disallowed by robots.txt")
	cmd.Flags().Bool("lowercase", false,
		"Lower-case URLs before fetching them")
	cmd.Flags().Bool("download-unsupported", config.DefaultDownloadUnsupported,
		"Also download responses that are not HTML")
	cmd.Flags().Int("max-attempts", config.DefaultMaxAttempts,
		"Total number of attempts when fetching a page body")
	cmd.Flags().Duration("retry-backoff", config.DefaultRetryBackoff,
		"Base delay between fetch attempts (doubles after each failure)")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", engine.DefaultBatchConcurrency,
		"Number of sites scanned concurrently")

	addReportFlags(cmd)
	cmd.Flags().String("errors-csv", "",
		"Write crawl errors of all targets to this CSV file")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if len(args) == 0 {
		return errNoTargets
	}

	errorsCSV, err := cmd.Flags().GetString("errors-csv")
	if err != nil {
		return err
	}
	batch, err := cmd.Flags().GetInt("batch")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cmd, cfg, args, batch, errorsCSV, logger)
}

// buildScanConfig creates a Config from the global and scan flags.
func buildScanConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CheckTimeout, err = flags.GetDuration("check-timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	ignoreRobots, err := flags.GetBool("ignore-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobotsTxt = !ignoreRobots
	if cfg.LowercaseURLs, err = flags.GetBool("lowercase"); err != nil {
		return nil, err
	}
	if cfg.DownloadUnsupported, err = flags.GetBool("download-unsupported"); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = flags.GetInt("max-attempts"); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = flags.GetDuration("retry-backoff"); err != nil {
		return nil, err
	}

	if err := applyReportFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runScan crawls every target, up to batch sites at a time. A failed target
// is reported and skipped; the command fails when no target produced a report.
func runScan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, targets []string, batch int, errorsCSV string, logger *slog.Logger) error {
	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	output, closeOutput, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // Closing a written report file only fails on broken filesystems

	writer, err := report.NewWriter(cfg.ReportFormat, output, cfg.Verbose)
	if err != nil {
		return err
	}

	status := cmd.ErrOrStderr()
	if len(targets) > 1 {
		fmt.Fprintf(status, "Scanning %d sites (concurrency: %d)...\n\n", len(targets), batch)
	}
	for _, target := range targets {
		fmt.Fprintf(status, "Scanning %s...\n", target)
	}
	start := time.Now()

	b := engine.NewBatch(
		[]engine.Option{engine.WithConfig(cfg), engine.WithLogger(logger)},
		engine.WithBatchConcurrency(batch),
		engine.WithBatchLogger(logger),
		engine.WithPageHook(func(site, u string) {
			if safe, ok := log.SanitizeURL(u); ok {
				logger.Debug("page added", "site", site, "url", safe)
			}
		}),
	)

	var (
		allEvents []model.ErrorEvent
		failures  int
		writeErr  error
	)
	_, err = b.Run(ctx, targets, func(res engine.BatchResult, index int) {
		allEvents = append(allEvents, res.Errors...)
		if res.Err != nil {
			failures++
			logger.Error("scan failed", "target", res.Seed, "error", res.Err)
			fmt.Fprintf(status, "[%d/%d] Scan error for %s: %v\n", index+1, len(targets), res.Seed, res.Err)
			return
		}
		fmt.Fprintf(status, "[%d/%d] Scan completed: %s\n", index+1, len(targets), res.Site)

		if writeErr == nil {
			if _, err := writer.Write(res.Report); err != nil {
				writeErr = fmt.Errorf("failed to write report: %w", err)
			}
		}
		if err := saveReport(ctx, db, res.Report, res.Errors, logger); err != nil {
			logger.Error("failed to save report", "site", res.Site, "error", err)
		}
	})
	fmt.Fprintf(status, "\nScan finished in %s\n", time.Since(start).Round(time.Millisecond))
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}

	if errorsCSV != "" {
		if err := writeErrorsCSV(cmd, errorsCSV, allEvents); err != nil {
			return err
		}
	}

	if failures == len(targets) {
		return fmt.Errorf("all %d scans failed", failures)
	}
	return nil
}

// writeErrorsCSV writes events to path as CSV.
func writeErrorsCSV(cmd *cobra.Command, path string, events []model.ErrorEvent) error {
	output, closeOutput, err := openOutput(cmd, path)
	if err != nil {
		return err
	}
	if _, err := report.NewCSVWriter(output).WriteErrors(events); err != nil {
		_ = closeOutput()
		return fmt.Errorf("failed to write crawl errors: %w", err)
	}
	return closeOutput()
}
